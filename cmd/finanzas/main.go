package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finanzas/internal/aggregate"
	"finanzas/internal/backend"
	"finanzas/internal/calendar"
	"finanzas/internal/cli"
	apphttp "finanzas/internal/http"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
)

func main() {
	cfg, logger := cli.LoadConfig(nil)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).Create(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	engine := aggregate.New(calendar.NewNormalizer(cfg.DatePolicy()))
	dashboard := services.NewDashboard(result.Store, engine, cfg.CacheTTL, cfg.CacheSize, logger)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Records:            result.Records,
		Dashboard:          dashboard,
		Logger:             logger,
		APIToken:           cfg.APIToken,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxUploadBytes:     int64(cfg.MaxUploadBytes),
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	}()

	logger.Info("Starting finanzas server",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		applog.FieldDatePolicy, string(cfg.DatePolicy()),
		"auth_enabled", cfg.APIToken != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
