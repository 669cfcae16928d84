package backend

import (
	"context"

	"finanzas/internal/services"
	"finanzas/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result is an opened record store and the service writing to it.
type Result struct {
	Store   storage.Store
	Records *services.RecordService
	Cleanup CleanupFunc
}

// Factory opens the configured record store.
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// memory
	DataDirectory string

	// sqlite
	SQLiteDBPath string

	// postgres
	DatabaseURL string

	// supabase
	SupabaseURL string
	SupabaseKey string

	// change events, optional for every type
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// Type names a record store implementation.
type Type string

const (
	MemoryBackend   Type = "memory"
	SQLiteBackend   Type = "sqlite"
	PostgresBackend Type = "postgres"
	SupabaseBackend Type = "supabase"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, PostgresBackend, SupabaseBackend:
		return true
	default:
		return false
	}
}
