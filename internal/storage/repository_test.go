package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"finanzas/internal/core"
	"finanzas/internal/storage"
	"finanzas/internal/storage/storagetest"
)

func newSQLite(t *testing.T) *storage.SQLRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "finanzas.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return newSQLite(t) })
}

func TestSQLiteRepository_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finanzas.db")
	first, err := storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := first.Create(context.Background(), core.Record{Kind: core.Income, Date: "2024-01-01", Product: "A"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	first.Close()

	second, err := storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	recs, err := second.List(context.Background(), core.Income)
	if err != nil || len(recs) != 1 {
		t.Fatalf("List() after reopen = %v, %v", recs, err)
	}
	if err := second.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestRow(t *testing.T) {
	income := storage.Row(core.Record{Kind: core.Income, ID: "1", Date: "2024-01-01", Product: "A"})
	if income["monto"] != nil || income["producto"] != "A" {
		t.Errorf("income row = %v", income)
	}
	if _, ok := income["categoria"]; ok {
		t.Error("income row should not carry expense columns")
	}
	if len(income) != len(storage.Columns(core.Income)) {
		t.Errorf("income row has %d columns, want %d", len(income), len(storage.Columns(core.Income)))
	}

	expense := storage.Row(core.Record{Kind: core.Expense, ID: "2", Category: "Luz"})
	if len(expense) != len(storage.Columns(core.Expense)) || expense["categoria"] != "Luz" {
		t.Errorf("expense row = %v", expense)
	}
}

func TestPrepare(t *testing.T) {
	rec := storage.Prepare(core.Expense, core.Record{Date: " 2024-01-01T10:00:00Z ", Category: " Luz "})
	if rec.ID == "" || rec.Kind != core.Expense || rec.Date != "2024-01-01" || rec.Category != "Luz" {
		t.Fatalf("Prepare() = %+v", rec)
	}
	kept := storage.Prepare(core.Income, core.Record{ID: "fixed"})
	if kept.ID != "fixed" {
		t.Fatalf("Prepare() replaced an existing id: %q", kept.ID)
	}
}
