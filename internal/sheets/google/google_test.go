package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"

	"finanzas/internal/core"
)

// fakeSheets emulates the handful of Sheets v4 endpoints the client uses.
type fakeSheets struct {
	mu   sync.Mutex
	ids  map[string]int64
	tabs map[string][][]string
}

var cellRef = regexp.MustCompile(`^A(\d+)$`)

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/v4/spreadsheets/sid"
	path := strings.TrimPrefix(r.URL.Path, prefix)

	switch {
	case path == "" && r.Method == http.MethodGet:
		var sheets []map[string]any
		for title, id := range f.ids {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": title, "sheetId": id}})
		}
		json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})

	case path == ":batchUpdate":
		var req struct {
			Requests []struct {
				DeleteDimension struct {
					Range struct {
						SheetID    int64 `json:"sheetId"`
						StartIndex int   `json:"startIndex"`
						EndIndex   int   `json:"endIndex"`
					} `json:"range"`
				} `json:"deleteDimension"`
			} `json:"requests"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for _, q := range req.Requests {
			rg := q.DeleteDimension.Range
			for title, id := range f.ids {
				if id == rg.SheetID {
					rows := f.tabs[title]
					f.tabs[title] = append(rows[:rg.StartIndex:rg.StartIndex], rows[rg.EndIndex:]...)
				}
			}
		}
		json.NewEncoder(w).Encode(map[string]any{})

	case strings.HasPrefix(path, "/values/"):
		rng := strings.TrimPrefix(path, "/values/")
		switch {
		case strings.HasSuffix(rng, ":append"):
			title := strings.SplitN(strings.TrimSuffix(rng, ":append"), "!", 2)[0]
			f.tabs[title] = append(f.tabs[title], decodeValues(r)...)
		case strings.HasSuffix(rng, ":clear"):
			f.tabs[strings.TrimSuffix(rng, ":clear")] = nil
		case r.Method == http.MethodGet:
			title := strings.SplitN(rng, "!", 2)[0]
			col := make([][]string, 0)
			for _, row := range f.tabs[title] {
				col = append(col, row[:1])
			}
			json.NewEncoder(w).Encode(map[string]any{"values": col})
			return
		case r.Method == http.MethodPut:
			parts := strings.SplitN(rng, "!", 2)
			m := cellRef.FindStringSubmatch(parts[1])
			start, _ := strconv.Atoi(m[1])
			for i, row := range decodeValues(r) {
				idx := start - 1 + i
				for len(f.tabs[parts[0]]) <= idx {
					f.tabs[parts[0]] = append(f.tabs[parts[0]], nil)
				}
				f.tabs[parts[0]][idx] = row
			}
		}
		json.NewEncoder(w).Encode(map[string]any{})

	default:
		http.NotFound(w, r)
	}
}

func decodeValues(r *http.Request) [][]string {
	var vr struct {
		Values [][]string `json:"values"`
	}
	json.NewDecoder(r.Body).Decode(&vr)
	return vr.Values
}

func (f *fakeSheets) rows(title string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.tabs[title]...)
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{
		ids:  map[string]int64{"Ingresos": 11, "Gastos": 22},
		tabs: map[string][][]string{},
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{SpreadsheetID: "sid"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, fake
}

func income(id, product, amount string) core.Record {
	return core.Record{Kind: core.Income, ID: id, Date: "2024-01-05", Product: product, Platform: "X",
		Amount: core.NullAmount(decimal.RequireFromString(amount))}
}

func TestClient_UpsertAppendsThenUpdates(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	if err := c.Upsert(ctx, income("a", "A", "10")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := c.Upsert(ctx, income("b", "B", "20")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := c.Upsert(ctx, income("a", "A2", "15.5")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	want := [][]string{
		{"ID", "Fecha", "Producto", "Monto", "Plataforma"},
		{"a", "2024-01-05", "A2", "15.5", "X"},
		{"b", "2024-01-05", "B", "20", "X"},
	}
	if got := fake.rows("Ingresos"); !reflect.DeepEqual(got, want) {
		t.Fatalf("Ingresos = %v, want %v", got, want)
	}
}

func TestClient_Delete(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()
	c.Upsert(ctx, income("a", "A", "1"))
	c.Upsert(ctx, income("b", "B", "2"))

	if err := c.Delete(ctx, core.Income, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := c.Delete(ctx, core.Income, "missing"); err != nil {
		t.Fatalf("Delete() of missing row error = %v", err)
	}

	got := fake.rows("Ingresos")
	if len(got) != 2 || got[1][0] != "b" {
		t.Fatalf("Ingresos after delete = %v", got)
	}
}

func TestClient_Replace(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()
	c.Upsert(ctx, core.Record{Kind: core.Expense, ID: "old", Date: "2023-01-01", Category: "X"})

	err := c.Replace(ctx, core.Expense, []core.Record{
		{ID: "g1", Date: "2024-02-01", Concept: "Luz", Category: "Servicios", Type: core.FixedExpense,
			Amount: core.NullAmount(decimal.NewFromInt(30))},
	})
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	want := [][]string{
		{"ID", "Fecha", "Concepto", "Monto", "Plataforma", "Tipo", "Categoría"},
		{"g1", "2024-02-01", "Luz", "30", "", "Fijo", "Servicios"},
	}
	if got := fake.rows("Gastos"); !reflect.DeepEqual(got, want) {
		t.Fatalf("Gastos = %v, want %v", got, want)
	}
}

func TestNew_RequiresSpreadsheetAndCredentials(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Error("New() without spreadsheet id should fail")
	}
	if _, err := New(context.Background(), Config{SpreadsheetID: "sid"}); err == nil {
		t.Error("New() without credentials should fail")
	}
	if _, err := New(context.Background(), Config{SpreadsheetID: "sid", CredentialsFile: "/non/existent.json"}); err == nil {
		t.Error("New() with missing credentials file should fail")
	}
}
