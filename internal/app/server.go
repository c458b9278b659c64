package app

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"alarm-relay/internal/common/logging"
	"alarm-relay/internal/common/ratelimit"
	"alarm-relay/internal/server"
)

// RunServer builds the router and the server without starting it
func (app *App) RunServer() (*server.Server, http.Handler) {
	router := mux.NewRouter()
	SetupRoutes(router, app.Handlers, app.initializeRateLimiter())

	srv := server.New(router, app.Config.Port, app.Config.TLSCertFile, app.Config.TLSKeyFile, app.Logger)
	return srv, router
}

// Shutdown waits for in-flight dispatches. When ctx expires first the
// remaining adapter runs are cancelled.
func (app *App) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		app.Handlers.Wait()
		close(done)
	}()

	select {
	case <-done:
		app.Logger.Info("In-flight alarms delivered")
		return nil
	case <-ctx.Done():
		app.cancel()
		<-done
		return ctx.Err()
	}
}

// initializeRateLimiter returns nil when RATE_LIMIT_RPS is 0
func (app *App) initializeRateLimiter() *ratelimit.Limiter {
	cfg := app.Config.RateLimit()
	if !cfg.Enabled() {
		return nil
	}
	limiter, err := ratelimit.New(cfg)
	if err != nil {
		app.Logger.Warn("Rate limiter disabled", logging.Err(err))
		return nil
	}
	app.Logger.Info("Rate Limiting: Enabled",
		logging.Any("requests_per_second", cfg.RequestsPerSecond),
		logging.Int("burst", cfg.BurstSize),
	)
	return limiter
}
