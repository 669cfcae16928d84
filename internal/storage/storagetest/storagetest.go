// Package storagetest holds the behaviour every storage.Store must share.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

func amount(s string) decimal.NullDecimal {
	return core.NullAmount(decimal.RequireFromString(s))
}

// Run exercises a fresh, empty store produced by newStore.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	ctx := context.Background()

	t.Run("empty list", func(t *testing.T) {
		s := newStore(t)
		for _, kind := range []core.Kind{core.Income, core.Expense} {
			recs, err := s.List(ctx, kind)
			if err != nil {
				t.Fatalf("List(%s) error = %v", kind, err)
			}
			if recs == nil || len(recs) != 0 {
				t.Fatalf("List(%s) = %v, want empty slice", kind, recs)
			}
		}
	})

	t.Run("create assigns id and keeps order", func(t *testing.T) {
		s := newStore(t)
		first, err := s.Create(ctx, core.Record{Kind: core.Income, Date: " 2024-01-05 ", Amount: amount("100.50"), Product: "A", Platform: "X"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if first.ID == "" || first.Date != "2024-01-05" {
			t.Fatalf("Create() = %+v", first)
		}
		if _, err := s.Create(ctx, core.Record{Kind: core.Income, Date: "2024-01-01", Amount: amount("1"), Product: "B"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		recs, err := s.List(ctx, core.Income)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(recs) != 2 || recs[0].ID != first.ID || recs[1].Product != "B" {
			t.Fatalf("List() = %+v", recs)
		}
		if !recs[0].Amount.Valid || !recs[0].Amount.Decimal.Equal(decimal.RequireFromString("100.5")) {
			t.Errorf("amount round trip = %v", recs[0].Amount)
		}
		if recs[0].Kind != core.Income {
			t.Errorf("kind = %q, want %q", recs[0].Kind, core.Income)
		}

		other, _ := s.List(ctx, core.Expense)
		if len(other) != 0 {
			t.Errorf("income leaked into expenses: %v", other)
		}
	})

	t.Run("expense fields round trip", func(t *testing.T) {
		s := newStore(t)
		in := core.Record{
			Kind: core.Expense, Date: "2024-03-09", Amount: amount("12.34"), Platform: "Banco",
			Concept: "Renta local", Type: core.FixedExpense, Category: "Renta",
		}
		created, err := s.Create(ctx, in)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		got, err := s.Get(ctx, core.Expense, created.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Concept != in.Concept || got.Type != in.Type || got.Category != in.Category || got.Platform != in.Platform {
			t.Fatalf("Get() = %+v, want fields of %+v", got, in)
		}
	})

	t.Run("missing amount survives storage", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Create(ctx, core.Record{Kind: core.Income, Date: "not-a-date", Product: "A"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		got, err := s.Get(ctx, core.Income, created.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Amount.Valid || got.Date != "not-a-date" {
			t.Fatalf("Get() = %+v", got)
		}
	})

	t.Run("update and delete", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Create(ctx, core.Record{Kind: core.Income, Date: "2024-01-05", Amount: amount("10"), Product: "A"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		created.Amount = amount("20")
		created.Product = "Z"
		if _, err := s.Update(ctx, created); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		got, _ := s.Get(ctx, core.Income, created.ID)
		if got.Product != "Z" || !got.Amount.Decimal.Equal(decimal.NewFromInt(20)) {
			t.Fatalf("after update = %+v", got)
		}

		if err := s.Delete(ctx, core.Income, created.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := s.Get(ctx, core.Income, created.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("Get() after delete error = %v, want ErrNotFound", err)
		}
	})

	t.Run("unknown ids", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Get(ctx, core.Expense, "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
		if _, err := s.Update(ctx, core.Record{Kind: core.Expense, ID: "missing", Date: "2024-01-01", Category: "X"}); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Update() error = %v, want ErrNotFound", err)
		}
		if err := s.Delete(ctx, core.Expense, "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Delete() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("create many", func(t *testing.T) {
		s := newStore(t)
		created, err := s.CreateMany(ctx, core.Expense, []core.Record{
			{Date: "2024-01-01", Amount: amount("1"), Category: "Luz"},
			{Date: "2024-01-02", Amount: amount("2"), Category: "Agua"},
		})
		if err != nil {
			t.Fatalf("CreateMany() error = %v", err)
		}
		if len(created) != 2 || created[0].ID == "" || created[0].ID == created[1].ID {
			t.Fatalf("CreateMany() = %+v", created)
		}
		recs, _ := s.List(ctx, core.Expense)
		if len(recs) != 2 || recs[1].Category != "Agua" || recs[1].Kind != core.Expense {
			t.Fatalf("List() = %+v", recs)
		}
	})

	t.Run("invalid kind", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.List(ctx, core.Kind("otro")); err == nil {
			t.Error("List() with invalid kind should fail")
		}
	})
}
