// Package cli holds the start-up steps shared by cmd/masraf and
// cmd/masraf-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"masraf/internal/config"
	applog "masraf/internal/log"
)

// SetupLogger builds the application logger for level and installs it as
// the slog default.
func SetupLogger(level string) *applog.Logger {
	logger := applog.New(applog.Config{Level: applog.ParseLevel(level), Component: applog.ComponentApp})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile(files ...string) {
	_ = godotenv.Load(files...)
}

// LoadAndValidateConfig loads configuration and exits on validation failure.
// When CONFIG_FILE names a YAML file its keys fill in unset variables first.
// validate is (*config.Config).Validate or (*config.Config).ValidateWorker.
func LoadAndValidateConfig(logger *applog.Logger, validate func(*config.Config) error) *config.Config {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		keys, err := config.LoadFile(path)
		if err != nil {
			logger.Error("Failed to load config file", "path", path, applog.FieldError, err)
			os.Exit(1)
		}
		logger.Debug("Loaded config file", "path", path, "keys", len(keys))
	}
	cfg := config.Load()
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup
// runs with a context bounded by timeout before done is closed.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}
