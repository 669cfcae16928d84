package sheets

import (
	"context"

	"finanzas/internal/core"
)

// Mirror is a spreadsheet copy of the record store, one tab per kind,
// keyed by record ID in the first column.
type Mirror interface {
	// Upsert rewrites the row with rec.ID, appending it when absent.
	Upsert(ctx context.Context, rec core.Record) error
	// Delete removes the row with id. Missing rows are not an error.
	Delete(ctx context.Context, kind core.Kind, id string) error
	// Replace overwrites the whole tab with recs.
	Replace(ctx context.Context, kind core.Kind, recs []core.Record) error
}

// Header is the first row of a kind's tab.
func Header(kind core.Kind) []string {
	if kind == core.Expense {
		return []string{"ID", "Fecha", "Concepto", "Monto", "Plataforma", "Tipo", "Categoría"}
	}
	return []string{"ID", "Fecha", "Producto", "Monto", "Plataforma"}
}

// RowValues lays rec out in Header order. A missing amount is an empty cell.
func RowValues(rec core.Record) []string {
	monto := ""
	if rec.Amount.Valid {
		monto = rec.Amount.Decimal.String()
	}
	if rec.Kind == core.Expense {
		return []string{rec.ID, rec.Date, rec.Concept, monto, rec.Platform, rec.Type, rec.Category}
	}
	return []string{rec.ID, rec.Date, rec.Product, monto, rec.Platform}
}
