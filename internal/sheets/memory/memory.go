package memory

import (
	"context"
	"sync"

	"finanzas/internal/core"
	"finanzas/internal/sheets"
)

// Mirror keeps the spreadsheet rows in memory. The worker runs against it in
// tests and when no spreadsheet is configured.
type Mirror struct {
	mu   sync.Mutex
	tabs map[core.Kind][][]string
}

var _ sheets.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{tabs: map[core.Kind][][]string{}}
}

func (m *Mirror) Upsert(_ context.Context, rec core.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := sheets.RowValues(rec)
	if i := m.indexOf(rec.Kind, rec.ID); i >= 0 {
		m.tabs[rec.Kind][i] = row
		return nil
	}
	m.tabs[rec.Kind] = append(m.tabs[rec.Kind], row)
	return nil
}

func (m *Mirror) Delete(_ context.Context, kind core.Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexOf(kind, id); i >= 0 {
		rows := m.tabs[kind]
		m.tabs[kind] = append(rows[:i:i], rows[i+1:]...)
	}
	return nil
}

func (m *Mirror) Replace(_ context.Context, kind core.Kind, recs []core.Record) error {
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		rec.Kind = kind
		rows = append(rows, sheets.RowValues(rec))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs[kind] = rows
	return nil
}

// Rows returns a copy of the data rows of kind's tab, header excluded.
func (m *Mirror) Rows(kind core.Kind) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.tabs[kind]))
	for i, r := range m.tabs[kind] {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func (m *Mirror) indexOf(kind core.Kind, id string) int {
	for i, r := range m.tabs[kind] {
		if len(r) > 0 && r[0] == id {
			return i
		}
	}
	return -1
}
