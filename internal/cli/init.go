// Package cli provides common CLI initialization utilities shared by
// cmd/finanzas, cmd/finanzas-worker and cmd/finanzas-report.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finanzas/internal/config"
	applog "finanzas/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger creates the process logger at the configured level and
// installs it as the slog default. LOG_FORMAT=json switches to JSON output.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     cfg.Level(),
		Component: component,
		Format:    os.Getenv("LOG_FORMAT"),
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadConfig loads configuration and runs validate on it, exiting the
// process when validation fails. A nil validate selects Config.Validate.
func LoadConfig(validate func(*config.Config) error) (*config.Config, *applog.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	if validate == nil {
		validate = (*config.Config).Validate
	}

	logger := SetupLogger(cfg, applog.ComponentApp)
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. The
// received signal is logged once.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
