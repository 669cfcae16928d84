package backend

import (
	"context"
	"fmt"

	"finanzas/internal/amqp"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/storage"
	"finanzas/internal/storage/memory"
	"finanzas/internal/storage/supabase"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// Create opens the store, connects the optional AMQP publisher and builds
// the record service on top of both.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.openStore(config)
	if err != nil {
		return nil, err
	}

	var publisher services.Publisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync", applog.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			publisher = client
		}
	}

	records := services.NewRecordService(store, publisher, f.logger)

	f.logger.InfoContext(ctx, "Initialized backend",
		applog.FieldBackend, config.Type.String(),
		"amqp_enabled", publisher != nil)

	return &Result{
		Store:   store,
		Records: records,
		Cleanup: records.Close,
	}, nil
}

func (f *DefaultFactory) openStore(config Config) (storage.Store, error) {
	switch config.Type {
	case MemoryBackend:
		if config.DataDirectory == "" {
			return memory.New(), nil
		}
		store, err := memory.NewFromFiles(config.DataDirectory)
		if err != nil {
			return nil, fmt.Errorf("failed to load memory backend seed: %w", err)
		}
		return store, nil
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		return repo, nil
	case SupabaseBackend:
		repo, err := supabase.NewRepository(config.SupabaseURL, config.SupabaseKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Supabase client: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
