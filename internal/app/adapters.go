package app

import (
	"fmt"

	"alarm-relay/internal/adapters"
	"alarm-relay/internal/adapters/bosmon"
	"alarm-relay/internal/adapters/divera"
	"alarm-relay/internal/adapters/fcm"
	"alarm-relay/internal/common/errors"
	"alarm-relay/internal/common/http"
	"alarm-relay/internal/common/logging"
	"alarm-relay/internal/dispatcher"
)

// RegisterAdapterFactories registers every built-in adapter
func RegisterAdapterFactories(registry *adapters.Registry) error {
	for _, f := range []adapters.Factory{bosmon.Factory(), divera.Factory(), fcm.Factory()} {
		if err := registry.Register(f); err != nil {
			return err
		}
	}
	return nil
}

// initializeAdapters builds the adapters named in ADAPTERS, each with its own
// transport so that a breaker trips per provider, and loads them.
func (app *App) initializeAdapters() error {
	app.Registry = adapters.NewRegistry()
	if err := RegisterAdapterFactories(app.Registry); err != nil {
		return err
	}

	client := http.NewHTTPClient(http.WithTimeout(app.Config.HTTPTimeoutDuration()))

	var built []adapters.Adapter
	for _, name := range app.Config.Adapters {
		logger := logging.GetGlobalLogger()

		opts := []http.TransportOption{http.WithLogger(logger)}
		if app.Config.BreakerEnabled {
			opts = append(opts, http.WithBreaker(name))
		}

		a, err := app.Registry.Create(name, adapters.Dependencies{
			Settings:  app.Settings,
			Transport: http.NewTransport(client, opts...),
			Logger:    logger,
		})
		if err != nil {
			app.Logger.Error("Failed to create adapter", err, logging.String("adapter", name))
			continue
		}
		built = append(built, a)
	}

	if len(built) == 0 {
		return errors.FatalInitError(fmt.Sprintf("no adapter could be created from %v", app.Config.Adapters), nil)
	}

	app.Dispatcher = dispatcher.New(built,
		dispatcher.WithRunTimeout(app.Config.DispatchTimeoutDuration()),
		dispatcher.WithDoubleFilter(app.doubleFilter(), app.Config.DoubleFilterWindowDuration()),
		dispatcher.WithLogger(logging.GetGlobalLogger()),
	)

	loaded := app.Dispatcher.Load(app.ctx)
	app.Logger.Info("Adapters ready",
		logging.Strings("loaded", loaded),
		logging.Int("configured", len(app.Config.Adapters)),
	)
	return nil
}
