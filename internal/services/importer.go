package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
)

var (
	ErrEmptyWorkbook  = errors.New("workbook has no rows")
	ErrMissingColumns = errors.New("missing required columns")
)

// RowError reports why a spreadsheet row was not imported. Row is the
// 1-based row number as shown by spreadsheet programs.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportResult is the outcome of a bulk upload.
type ImportResult struct {
	Items  []core.Record `json:"items"`
	Count  int           `json:"count"`
	Errors []RowError    `json:"errors"`
}

// column names as they appear in templates, in template order
var templateColumns = map[core.Kind][]string{
	core.Income:  {"Fecha", "Producto", "Monto", "Plataforma"},
	core.Expense: {"Fecha", "Concepto", "Monto", "Plataforma", "Tipo", "Categoria"},
}

var requiredColumns = map[core.Kind][]string{
	core.Income:  {"fecha", "producto", "monto"},
	core.Expense: {"fecha", "monto", "categoria"},
}

// Importer turns uploaded workbooks into records.
type Importer struct {
	records *RecordService
}

func NewImporter(records *RecordService) *Importer {
	return &Importer{records: records}
}

// Import parses the workbook in r and saves every valid row in one batch.
// Rows that fail to parse or validate are reported and skipped; they never
// abort the upload.
func (im *Importer) Import(ctx context.Context, kind core.Kind, r io.Reader) (ImportResult, error) {
	recs, rowErrs, err := Parse(kind, r)
	if err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{Items: []core.Record{}, Errors: rowErrs}
	if len(recs) > 0 {
		saved, err := im.records.CreateMany(ctx, kind, recs)
		if err != nil {
			return ImportResult{}, fmt.Errorf("import %s: %w", kind.Collection(), err)
		}
		result.Items = saved
	}
	result.Count = len(result.Items)

	slog.InfoContext(ctx, "Workbook imported",
		applog.FieldComponent, applog.ComponentImport,
		applog.FieldKind, string(kind),
		applog.FieldRows, result.Count,
		"rejected", len(result.Errors))
	return result, nil
}

// Parse reads the first sheet of an xlsx workbook. The first row is the
// header; columns are matched by name ignoring case, accents and blanks, so
// their order does not matter. Blank rows are skipped.
func Parse(kind core.Kind, r io.Reader) ([]core.Record, []RowError, error) {
	if !kind.Valid() {
		return nil, nil, fmt.Errorf("%w: %w", ErrValidation, core.ErrInvalidKind)
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open workbook: %w", ErrValidation, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%w: %w", ErrValidation, ErrEmptyWorkbook)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read sheet %q: %w", ErrValidation, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: %w", ErrValidation, ErrEmptyWorkbook)
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		if name := headerKey(h); name != "" {
			if _, dup := cols[name]; !dup {
				cols[name] = i
			}
		}
	}
	var missing []string
	for _, name := range requiredColumns[kind] {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %w: %s", ErrValidation, ErrMissingColumns, strings.Join(missing, ", "))
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	recs := make([]core.Record, 0, len(rows)-1)
	var rowErrs []RowError
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		cell := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		rec, err := recordFromCells(kind, cell, date1904)
		if err == nil {
			err = rec.Validate()
		}
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: i + 2, Error: err.Error()})
			continue
		}
		recs = append(recs, rec)
	}
	if rowErrs == nil {
		rowErrs = []RowError{}
	}
	return recs, rowErrs, nil
}

func recordFromCells(kind core.Kind, cell func(string) string, date1904 bool) (core.Record, error) {
	date, err := cellDate(cell("fecha"), date1904)
	if err != nil {
		return core.Record{}, err
	}

	rec := core.Record{
		Kind:     kind,
		Date:     date,
		Platform: cell("plataforma"),
	}
	if v := cell("monto"); v != "" {
		amt, err := core.ParseAmount(v)
		if err != nil {
			return core.Record{}, fmt.Errorf("%w: %q", err, v)
		}
		rec.Amount = core.NullAmount(amt)
	}

	if kind == core.Expense {
		rec.Concept = cell("concepto")
		rec.Category = cell("categoria")
		rec.Type = canonicalType(cell("tipo"))
	} else {
		rec.Product = cell("producto")
	}
	return rec.Normalize(), nil
}

// maxDateSerial is 9999-12-31, the last day a spreadsheet date cell holds.
const maxDateSerial = 2958465

// cellDate accepts an Excel serial date or any text date the record parser
// understands. Numbers outside the serial range are rejected.
func cellDate(v string, date1904 bool) (string, error) {
	if v == "" {
		return "", fmt.Errorf("%w: empty", core.ErrInvalidDate)
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if serial < 1 || serial >= maxDateSerial+1 {
			return "", fmt.Errorf("%w: %q is not a date serial", core.ErrInvalidDate, v)
		}
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			return "", fmt.Errorf("%w: %q", core.ErrInvalidDate, v)
		}
		return t.Format(core.DateLayout), nil
	}
	t, ok := core.ParseDate(v)
	if !ok {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidDate, v)
	}
	return t.Format(core.DateLayout), nil
}

func canonicalType(v string) string {
	switch headerKey(v) {
	case "fijo":
		return core.FixedExpense
	case "variable":
		return core.VariableExpense
	default:
		return v
	}
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// headerKey folds a header cell to its lower-case, accent free form.
func headerKey(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.Join(strings.Fields(out), ""))
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Template writes the upload template of kind: the header row plus one
// example row.
func Template(kind core.Kind, w io.Writer) error {
	header, ok := templateColumns[kind]
	if !ok {
		return fmt.Errorf("%w: %q", core.ErrInvalidKind, kind)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := strings.ToUpper(kind.Collection()[:1]) + kind.Collection()[1:]
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name template sheet: %w", err)
	}

	example := make([]interface{}, len(header))
	for i, h := range header {
		switch h {
		case "Fecha":
			example[i] = "YYYY-MM-DD"
		case "Monto":
			example[i] = 0
		default:
			example[i] = h
		}
	}

	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &cells); err != nil {
		return fmt.Errorf("write template header: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A2", &example); err != nil {
		return fmt.Errorf("write template example: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	return nil
}

// TemplateFilename is the download name of kind's template.
func TemplateFilename(kind core.Kind) string {
	return "plantilla_" + kind.Collection() + ".xlsx"
}
