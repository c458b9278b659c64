package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"alarm-relay/internal/common/logging"
	"alarm-relay/internal/config"
)

const version = "1.0.0"

// shutdownTimeout bounds how long in-flight deliveries may keep running
// after a stop signal
const shutdownTimeout = 30 * time.Second

// Run loads .env, the environment and the adapter settings, then serves the
// alarm API until SIGINT or SIGTERM. With -check-config it only validates
// configuration and exits.
func Run() error {
	checkOnly := flag.Bool("check-config", false, "validate configuration and adapter settings, then exit")
	flag.Parse()

	_ = godotenv.Load()

	if err := logging.InitGlobalLogger(); err != nil {
		return err
	}
	defer logging.MustSync()

	logging.Info("Starting alarm relay", logging.String("version", version))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logging.Error("Configuration validation failed", err)
		return err
	}

	if *checkOnly {
		return CheckSettings(cfg, logging.GetGlobalLogger())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg)
}

func serve(ctx context.Context, cfg *config.Config) error {
	app, err := New(cfg)
	if err != nil {
		logging.Error("Failed to initialize application", err)
		return err
	}
	defer app.Cleanup()

	srv, _ := app.RunServer()
	if err := srv.Start(); err != nil {
		logging.Error("Server failed to start", err)
		return err
	}

	select {
	case <-ctx.Done():
	case err := <-srv.Errors():
		if err != nil {
			logging.Error("Server stopped unexpectedly", err)
			return err
		}
	}

	logging.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop accepting alarms first, then let the running ones finish
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server forced to shutdown", err)
		return err
	}
	if err := app.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Alarm deliveries cancelled during shutdown", logging.Err(err))
	}

	logging.Info("Server exited")
	return nil
}

// CheckSettings loads the adapter settings file and reports, per enabled
// adapter, whether its section is present. It fails when the file cannot be
// read or none of the enabled adapters is configured.
func CheckSettings(cfg *config.Config, logger logging.Logger) error {
	settings, err := config.LoadSettings(cfg.AdapterConfig, logger)
	if err != nil {
		logger.Error("Adapter settings unreadable", err, logging.String("file", cfg.AdapterConfig))
		return err
	}

	var configured []string
	for _, name := range cfg.Adapters {
		if settings.CheckConfig(name) {
			configured = append(configured, name)
		}
	}
	if len(configured) == 0 {
		err := fmt.Errorf("none of the enabled adapters %v has a settings section", cfg.Adapters)
		logger.Error("Configuration check failed", err)
		return err
	}

	logger.Info("Configuration check passed",
		logging.Strings("configured", configured),
		logging.Strings("enabled", cfg.Adapters),
		logging.Strings("sections", settings.Sections()),
	)
	return nil
}
