package app

import (
	"alarm-relay/internal/common/logging"
	"alarm-relay/internal/dispatcher"
	"alarm-relay/internal/redis"
)

func (app *App) initializeRedis() error {
	if app.Config.DoubleFilterWindowDuration() == 0 {
		app.Logger.Info("Double alarm filter: Disabled")
		return nil
	}
	if app.Config.RedisAddress == "" {
		app.Logger.Info("Double alarm filter: In memory",
			logging.Duration("window", app.Config.DoubleFilterWindowDuration()))
		return nil
	}

	redisClient, err := redis.NewClient(&redis.Config{
		Address:   app.Config.RedisAddress,
		Password:  app.Config.RedisPassword,
		DB:        app.Config.RedisDBNumber(),
		Namespace: app.Config.RedisNamespace,
	})
	if err != nil {
		return err
	}

	app.RedisClient = redisClient
	app.Logger.Info("Double alarm filter: Redis",
		logging.String("address", app.Config.RedisAddress),
		logging.String("namespace", redisClient.Config().Namespace),
		logging.Duration("window", app.Config.DoubleFilterWindowDuration()),
	)
	return nil
}

// doubleFilter picks Redis when connected and the in-memory filter otherwise
func (app *App) doubleFilter() dispatcher.DoubleFilter {
	if app.RedisClient != nil {
		return dispatcher.SeenRecentlyFunc(app.RedisClient.SeenRecently)
	}
	return dispatcher.NewMemoryFilter()
}
