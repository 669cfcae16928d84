package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/supabase-community/supabase-go"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

// Repository reads and writes records through the PostgREST API of a
// Supabase project. The ingresos and gastos tables follow the SQL migrations.
type Repository struct {
	client *supabase.Client
}

func NewRepository(url, key string) (*Repository, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Repository{client: client}, nil
}

func decode(kind core.Kind, data []byte) ([]core.Record, error) {
	recs := make([]core.Record, 0)
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", kind.Collection(), err)
	}
	for i := range recs {
		recs[i].Kind = kind
	}
	return recs, nil
}

func (r *Repository) List(_ context.Context, kind core.Kind) ([]core.Record, error) {
	table, err := storage.Table(kind)
	if err != nil {
		return nil, err
	}
	data, _, err := r.client.From(table).
		Select("*", "", false).
		Order("seq", nil).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return decode(kind, data)
}

func (r *Repository) Get(_ context.Context, kind core.Kind, id string) (core.Record, error) {
	table, err := storage.Table(kind)
	if err != nil {
		return core.Record{}, err
	}
	data, _, err := r.client.From(table).
		Select("*", "", false).
		Eq("id", id).
		Execute()
	if err != nil {
		return core.Record{}, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	recs, err := decode(kind, data)
	if err != nil {
		return core.Record{}, err
	}
	if len(recs) == 0 {
		return core.Record{}, storage.ErrNotFound
	}
	return recs[0], nil
}

func (r *Repository) Create(ctx context.Context, rec core.Record) (core.Record, error) {
	created, err := r.CreateMany(ctx, rec.Kind, []core.Record{rec})
	if err != nil {
		return core.Record{}, err
	}
	return created[0], nil
}

// CreateMany sends all rows in one insert, which PostgREST runs atomically.
func (r *Repository) CreateMany(ctx context.Context, kind core.Kind, recs []core.Record) ([]core.Record, error) {
	table, err := storage.Table(kind)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return []core.Record{}, nil
	}

	created := make([]core.Record, len(recs))
	rows := make([]map[string]any, len(recs))
	for i, rec := range recs {
		created[i] = storage.Prepare(kind, rec)
		rows[i] = storage.Row(created[i])
	}

	if _, _, err := r.client.From(table).Insert(rows, false, "", "minimal", "").Execute(); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}

	slog.InfoContext(ctx, "Records saved to Supabase", "kind", kind, "count", len(created))
	return created, nil
}

func (r *Repository) Update(_ context.Context, rec core.Record) (core.Record, error) {
	table, err := storage.Table(rec.Kind)
	if err != nil {
		return core.Record{}, err
	}
	rec = rec.Normalize()

	row := storage.Row(rec)
	delete(row, "id")
	data, _, err := r.client.From(table).
		Update(row, "representation", "").
		Eq("id", rec.ID).
		Execute()
	if err != nil {
		return core.Record{}, fmt.Errorf("update %s %s: %w", rec.Kind, rec.ID, err)
	}
	updated, err := decode(rec.Kind, data)
	if err != nil {
		return core.Record{}, err
	}
	if len(updated) == 0 {
		return core.Record{}, storage.ErrNotFound
	}
	return rec, nil
}

func (r *Repository) Delete(_ context.Context, kind core.Kind, id string) error {
	table, err := storage.Table(kind)
	if err != nil {
		return err
	}
	data, _, err := r.client.From(table).
		Delete("representation", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	deleted, err := decode(kind, data)
	if err != nil {
		return err
	}
	if len(deleted) == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) Close() error { return nil }
