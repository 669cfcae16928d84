package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finanzas/internal/core"
	ports "finanzas/internal/sheets"
)

// Config selects the spreadsheet, its tabs and the service account.
type Config struct {
	SpreadsheetID   string
	IncomeSheet     string
	ExpenseSheet    string
	CredentialsJSON string
	CredentialsFile string
}

// Client mirrors records into a Google Sheet with one tab per kind.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tabs          map[core.Kind]string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

var _ ports.Mirror = (*Client)(nil)

// New creates a Sheets client authenticated with the configured service
// account. Passing opts replaces the credential options entirely.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	if len(opts) == 0 {
		credentials, err := readCredentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(credentials),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	income, expense := cfg.IncomeSheet, cfg.ExpenseSheet
	if income == "" {
		income = "Ingresos"
	}
	if expense == "" {
		expense = "Gastos"
	}

	slog.InfoContext(ctx, "Google Sheets mirror ready",
		"component", "sheets",
		"income_sheet", income,
		"expense_sheet", expense)

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		tabs:          map[core.Kind]string{core.Income: income, core.Expense: expense},
		sheetIDs:      map[string]int64{},
	}, nil
}

func readCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		slog.DebugContext(ctx, "Using inline service account credentials", "component", "sheets")
		return []byte(cfg.CredentialsJSON), nil
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

func (c *Client) tab(kind core.Kind) (string, error) {
	name, ok := c.tabs[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidKind, kind)
	}
	return name, nil
}

// findRow returns the 1-based row holding id and the number of used rows.
func (c *Client) findRow(ctx context.Context, sheet, id string) (int, int, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, 0, fmt.Errorf("read ids from %s: %w", sheet, err)
	}
	ids := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		ids[i] = strings.TrimSpace(safeGet(toStrings(row), 0))
	}
	return indexOf(ids, id) + 1, len(ids), nil
}

func (c *Client) Upsert(ctx context.Context, rec core.Record) error {
	sheet, err := c.tab(rec.Kind)
	if err != nil {
		return err
	}

	row, used, err := c.findRow(ctx, sheet, rec.ID)
	if err != nil {
		return err
	}

	values := [][]interface{}{toCells(ports.RowValues(rec))}
	if row > 0 {
		rng := fmt.Sprintf("%s!A%d", sheet, row)
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("update row %d of %s: %w", row, sheet, err)
		}
		return nil
	}

	if used == 0 {
		values = append([][]interface{}{toCells(ports.Header(rec.Kind))}, values...)
	}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:A", &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", sheet, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, kind core.Kind, id string) error {
	sheet, err := c.tab(kind)
	if err != nil {
		return err
	}

	row, _, err := c.findRow(ctx, sheet, id)
	if err != nil {
		return err
	}
	if row <= 1 {
		// Not mirrored (or only the header matched); nothing to remove.
		return nil
	}

	sheetID, err := c.sheetID(ctx, sheet)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func (c *Client) Replace(ctx context.Context, kind core.Kind, recs []core.Record) error {
	sheet, err := c.tab(kind)
	if err != nil {
		return err
	}

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, sheet, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", sheet, err)
	}

	values := make([][]interface{}, 0, len(recs)+1)
	values = append(values, toCells(ports.Header(kind)))
	for _, rec := range recs {
		rec.Kind = kind
		values = append(values, toCells(ports.RowValues(rec)))
	}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, sheet+"!A1", &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", sheet, err)
	}

	slog.InfoContext(ctx, "Sheet replaced", "component", "sheets", "sheet", sheet, "rows", len(recs))
	return nil
}

// sheetID resolves a tab title to its numeric id, caching the answer.
func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[title]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			c.sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}
	id, ok = c.sheetIDs[title]
	if !ok {
		return 0, fmt.Errorf("sheet %q not found", title)
	}
	return id, nil
}

func toCells(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if v == target {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
