package app

import (
	"context"

	"alarm-relay/internal/adapters"
	"alarm-relay/internal/common/logging"
	"alarm-relay/internal/config"
	"alarm-relay/internal/dispatcher"
	"alarm-relay/internal/handlers"
	"alarm-relay/internal/redis"
)

// App holds all the application dependencies
type App struct {
	Config      *config.Config
	Settings    *config.Settings
	Registry    *adapters.Registry
	Dispatcher  *dispatcher.Dispatcher
	Handlers    *handlers.Handlers
	RedisClient *redis.Client
	Logger      logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates the application from a validated configuration. Adapters
// that fail to load are left out; New only fails when the settings file
// cannot be read or no adapter could be constructed.
func New(cfg *config.Config) (*App, error) {
	settings, err := config.LoadSettings(cfg.AdapterConfig, logging.GetGlobalLogger())
	if err != nil {
		return nil, err
	}
	return NewWithSettings(cfg, settings)
}

// NewWithSettings is New with settings already loaded
func NewWithSettings(cfg *config.Config, settings *config.Settings) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:   cfg,
		Settings: settings,
		Logger:   logging.GetGlobalLogger().WithFields(logging.String("component", "app")),
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := app.initializeRedis(); err != nil {
		app.Logger.Warn("Redis initialization failed, double alarm filter stays in memory",
			logging.Err(err))
	}

	if err := app.initializeAdapters(); err != nil {
		app.Cleanup()
		return nil, err
	}

	opts := []handlers.Option{
		handlers.WithBaseContext(ctx),
		handlers.WithLogger(app.Logger.WithFields(logging.String("component", "api"))),
	}
	if app.RedisClient != nil {
		opts = append(opts, handlers.WithRedis(app.RedisClient))
	}
	app.Handlers = handlers.New(app.Dispatcher, opts...)

	return app, nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	app.cancel()
	if app.RedisClient != nil {
		if err := app.RedisClient.Close(); err != nil {
			app.Logger.Warn("Error closing Redis client", logging.Err(err))
		}
	}
}
