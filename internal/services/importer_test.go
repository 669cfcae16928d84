package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"finanzas/internal/core"
	"finanzas/internal/storage/memory"
)

// workbook builds an in-memory xlsx whose first sheet holds rows.
func workbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}
	return buf
}

func TestParse_Income(t *testing.T) {
	buf := workbook(t,
		[]interface{}{"fecha", "PRODUCTO", " Monto ", "Plataforma"},
		[]interface{}{"2024-01-05", "A", 100.5, "X"},
		[]interface{}{time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "B", "50,25", "Y"},
		[]interface{}{"", "", "", ""},
		[]interface{}{"05/01/2024", "C", 1, "X"},
		[]interface{}{"2024-03-01", "D", "", "X"},
	)

	recs, rowErrs, err := Parse(core.Income, buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(recs) != 2 {
		t.Fatalf("Parse() returned %d records, want 2: %+v", len(recs), recs)
	}
	if recs[0].Date != "2024-01-05" || recs[0].Product != "A" || recs[0].Platform != "X" ||
		!recs[0].Amount.Decimal.Equal(decimal.RequireFromString("100.5")) {
		t.Errorf("first record = %+v", recs[0])
	}
	if recs[1].Date != "2024-02-01" || !recs[1].Amount.Decimal.Equal(decimal.RequireFromString("50.25")) {
		t.Errorf("serial date or comma amount not parsed: %+v", recs[1])
	}

	if len(rowErrs) != 2 {
		t.Fatalf("row errors = %+v, want 2", rowErrs)
	}
	if rowErrs[0].Row != 5 || rowErrs[1].Row != 6 {
		t.Errorf("row numbers = %d, %d; want 5, 6", rowErrs[0].Row, rowErrs[1].Row)
	}
}

func TestParse_ExpenseHeadersIgnoreAccentsAndOrder(t *testing.T) {
	buf := workbook(t,
		[]interface{}{"Categoría", "Monto", "Fecha", "Tipo", "Concepto"},
		[]interface{}{"Servicios", 30, "2024-02-01", "fijo", "Luz"},
	)

	recs, rowErrs, err := Parse(core.Expense, buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rowErrs) != 0 || len(recs) != 1 {
		t.Fatalf("Parse() = %+v, %+v", recs, rowErrs)
	}
	got := recs[0]
	if got.Category != "Servicios" || got.Concept != "Luz" || got.Type != core.FixedExpense || got.Kind != core.Expense {
		t.Errorf("record = %+v", got)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		kind core.Kind
		data func(t *testing.T) *bytes.Buffer
		want error
	}{
		{
			name: "missing column",
			kind: core.Income,
			data: func(t *testing.T) *bytes.Buffer {
				return workbook(t, []interface{}{"Fecha", "Monto"}, []interface{}{"2024-01-01", 1})
			},
			want: ErrMissingColumns,
		},
		{
			name: "empty sheet",
			kind: core.Expense,
			data: func(t *testing.T) *bytes.Buffer { return workbook(t) },
			want: ErrEmptyWorkbook,
		},
		{
			name: "not a workbook",
			kind: core.Income,
			data: func(t *testing.T) *bytes.Buffer { return bytes.NewBufferString("fecha,monto\n") },
			want: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.kind, tt.data(t))
			if !errors.Is(err, tt.want) || !errors.Is(err, ErrValidation) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCellDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "45296", want: "2024-01-05"},
		{in: "45296.75", want: "2024-01-05"},
		{in: "2024-01-05", want: "2024-01-05"},
		{in: "20240105", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := cellDate(tt.in, false)
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidDate) {
					t.Errorf("cellDate(%q) = %q, %v; want ErrInvalidDate", tt.in, got, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("cellDate(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestParse_NumericDateIsRowError(t *testing.T) {
	buf := workbook(t,
		[]interface{}{"Fecha", "Producto", "Monto"},
		[]interface{}{20240105, "A", 10},
		[]interface{}{"2024-01-06", "B", 20},
	)

	recs, rowErrs, err := Parse(core.Income, buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(recs) != 1 || recs[0].Product != "B" {
		t.Errorf("records = %+v, want only B", recs)
	}
	if len(rowErrs) != 1 || rowErrs[0].Row != 2 {
		t.Errorf("row errors = %+v, want one on row 2", rowErrs)
	}
}

func TestImporter_Import(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &fakePublisher{}
	im := NewImporter(NewRecordService(store, pub, nil))

	buf := workbook(t,
		[]interface{}{"Fecha", "Producto", "Monto", "Plataforma"},
		[]interface{}{"2024-01-05", "A", 10, "X"},
		[]interface{}{"bad", "B", 20, "X"},
		[]interface{}{"2024-01-07", "C", 30, "Y"},
	)

	res, err := im.Import(ctx, core.Income, buf)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Count != 2 || len(res.Items) != 2 || len(res.Errors) != 1 {
		t.Fatalf("Import() = %+v", res)
	}
	if res.Items[0].ID == "" {
		t.Error("imported records need ids")
	}
	stored, _ := store.List(ctx, core.Income)
	if len(stored) != 2 {
		t.Errorf("store holds %d records, want 2", len(stored))
	}
	if len(pub.events) != 2 {
		t.Errorf("published %d events, want 2", len(pub.events))
	}
}

func TestTemplate_RoundTrip(t *testing.T) {
	for _, kind := range []core.Kind{core.Income, core.Expense} {
		t.Run(string(kind), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Template(kind, &buf); err != nil {
				t.Fatalf("Template() error = %v", err)
			}

			f, err := excelize.OpenReader(&buf)
			if err != nil {
				t.Fatalf("template is not a workbook: %v", err)
			}
			defer f.Close()

			sheet := f.GetSheetList()[0]
			rows, err := f.GetRows(sheet)
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != 2 {
				t.Fatalf("template has %d rows, want header plus example", len(rows))
			}
			if rows[0][0] != "Fecha" || rows[1][0] != "YYYY-MM-DD" {
				t.Errorf("template rows = %v", rows)
			}
			if len(rows[0]) != len(templateColumns[kind]) {
				t.Errorf("header = %v", rows[0])
			}
		})
	}

	if err := Template(core.Kind("otro"), &bytes.Buffer{}); !errors.Is(err, core.ErrInvalidKind) {
		t.Errorf("Template(otro) error = %v", err)
	}
	if got := TemplateFilename(core.Expense); got != "plantilla_gastos.xlsx" {
		t.Errorf("TemplateFilename() = %q", got)
	}
}
