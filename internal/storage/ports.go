package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"finanzas/internal/core"
)

var ErrNotFound = errors.New("record not found")

// Store is the record source behind the API and the aggregation engine.
// List returns records in insertion order.
type Store interface {
	List(ctx context.Context, kind core.Kind) ([]core.Record, error)
	Get(ctx context.Context, kind core.Kind, id string) (core.Record, error)
	Create(ctx context.Context, rec core.Record) (core.Record, error)
	CreateMany(ctx context.Context, kind core.Kind, recs []core.Record) ([]core.Record, error)
	Update(ctx context.Context, rec core.Record) (core.Record, error)
	Delete(ctx context.Context, kind core.Kind, id string) error
	Close() error
}

// Pinger is implemented by stores that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Table is the table (or PostgREST resource) a kind is stored in.
func Table(kind core.Kind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidKind, kind)
	}
	return kind.Collection(), nil
}

// Columns lists the stored columns of a kind, id first.
func Columns(kind core.Kind) []string {
	if kind == core.Expense {
		return []string{"id", "fecha", "monto", "plataforma", "concepto", "tipo", "categoria"}
	}
	return []string{"id", "fecha", "monto", "plataforma", "producto"}
}

// Row maps a record onto Columns(rec.Kind). A missing amount becomes nil.
func Row(rec core.Record) map[string]any {
	row := map[string]any{
		"id":         rec.ID,
		"fecha":      rec.Date,
		"monto":      nil,
		"plataforma": rec.Platform,
	}
	if rec.Amount.Valid {
		row["monto"] = rec.Amount.Decimal.String()
	}
	if rec.Kind == core.Expense {
		row["concepto"] = rec.Concept
		row["tipo"] = rec.Type
		row["categoria"] = rec.Category
	} else {
		row["producto"] = rec.Product
	}
	return row
}

// Prepare readies a record for insertion: kind stamped, text normalised and
// a fresh ID assigned when none was given.
func Prepare(kind core.Kind, rec core.Record) core.Record {
	rec.Kind = kind
	rec = rec.Normalize()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	return rec
}
