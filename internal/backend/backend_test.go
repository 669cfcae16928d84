package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"finanzas/internal/config"
	"finanzas/internal/core"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"supabase without key", Config{Type: SupabaseBackend, SupabaseURL: "https://x.supabase.co"}, true},
		{"supabase", Config{Type: SupabaseBackend, SupabaseURL: "https://x.supabase.co", SupabaseKey: "k"}, false},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) should fail")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "nope"}); err == nil {
		t.Error("FromAppConfig() accepted an unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "postgres", DatabaseURL: "postgres://x", AMQPQueue: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != PostgresBackend || cfg.DatabaseURL != "postgres://x" || cfg.AMQPQueue != "q" {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}
}

func TestFactory_Memory(t *testing.T) {
	dir := t.TempDir()
	seed := `[{"fecha":"2024-01-05","monto":"100","producto":"A","plataforma":"X"}]`
	if err := os.WriteFile(filepath.Join(dir, "ingresos.json"), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewFactory(nil).Create(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer res.Cleanup()

	recs, err := res.Records.List(context.Background(), core.Income)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Product != "A" {
		t.Errorf("seeded records = %+v", recs)
	}
}

func TestFactory_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "finanzas.db")
	res, err := NewFactory(nil).Create(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer res.Cleanup()

	ctx := context.Background()
	rec := core.Record{Date: "2024-02-01", Amount: core.NullAmount(mustAmount(t, "12.5")), Category: "Luz"}
	saved, err := res.Records.Create(ctx, core.Expense, rec)
	if err != nil {
		t.Fatalf("Create(record) error = %v", err)
	}
	got, err := res.Store.Get(ctx, core.Expense, saved.ID)
	if err != nil || got.Category != "Luz" {
		t.Errorf("Get() = %+v, %v", got, err)
	}
}

func TestFactory_InvalidConfig(t *testing.T) {
	if _, err := NewFactory(nil).Create(context.Background(), Config{Type: SQLiteBackend}); err == nil {
		t.Error("Create() accepted a config without a database path")
	}
}

func mustAmount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := core.ParseAmount(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}
