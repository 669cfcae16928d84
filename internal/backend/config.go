package backend

import (
	"errors"
	"fmt"

	"finanzas/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:          t,
		DataDirectory: appConfig.DataDirectory,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		DatabaseURL:   appConfig.DatabaseURL,
		SupabaseURL:   appConfig.SupabaseURL,
		SupabaseKey:   appConfig.SupabaseKey,
		AMQPURL:       appConfig.AMQPURL,
		AMQPExchange:  appConfig.AMQPExchange,
		AMQPQueue:     appConfig.AMQPQueue,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	switch c.Type {
	case MemoryBackend:
		// an empty DataDirectory starts with no records
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required for postgres backend")
		}
	case SupabaseBackend:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return errors.New("Supabase URL and key are required for supabase backend")
		}
	default:
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	return nil
}

// Types returns all valid backend types
func Types() []Type {
	return []Type{MemoryBackend, SQLiteBackend, PostgresBackend, SupabaseBackend}
}
