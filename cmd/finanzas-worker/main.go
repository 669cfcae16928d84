package main

import (
	"os"

	"finanzas/internal/amqp"
	"finanzas/internal/backend"
	"finanzas/internal/cli"
	"finanzas/internal/config"
	applog "finanzas/internal/log"
	gsheet "finanzas/internal/sheets/google"
	"finanzas/internal/worker"
)

func main() {
	cfg, logger := cli.LoadConfig((*config.Config).ValidateWorker)
	logger = logger.WithComponent(applog.ComponentWorker)
	logger.Info("Starting finanzas-worker")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	// The worker only reads the store; change events come from the queue,
	// so the backend is opened without its own publisher.
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	backendCfg.AMQPURL = ""
	result, err := backend.NewFactory(logger).Create(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer result.Cleanup()

	mirror, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		IncomeSheet:     cfg.GoogleIncomeSheet,
		ExpenseSheet:    cfg.GoogleExpenseSheet,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewMirrorWorker(result.Store, mirror, logger)
	if err := w.Run(ctx, amqpClient, cfg.ResyncInterval); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
