package supabase

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

type fakePostgREST struct {
	mu       sync.Mutex
	requests []string
	bodies   []string
	respond  func(r *http.Request) (int, string)
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()

	status, payload := f.respond(r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, payload)
}

func newTestRepository(t *testing.T, respond func(r *http.Request) (int, string)) (*Repository, *fakePostgREST) {
	t.Helper()
	fake := &fakePostgREST{respond: respond}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	repo, err := NewRepository(srv.URL, "test-key")
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	return repo, fake
}

func TestRepository_List(t *testing.T) {
	repo, fake := newTestRepository(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `[{"id":"a","fecha":"2024-01-05","monto":100.5,"plataforma":"X","producto":"A","seq":1},
			{"id":"b","fecha":"2024-02-01","monto":null,"plataforma":"","producto":"B","seq":2}]`
	})

	recs, err := repo.List(context.Background(), core.Income)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(recs) != 2 || recs[0].Kind != core.Income {
		t.Fatalf("List() = %+v", recs)
	}
	if !recs[0].Amount.Valid || !recs[0].Amount.Decimal.Equal(decimal.RequireFromString("100.5")) {
		t.Errorf("amount = %v", recs[0].Amount)
	}
	if recs[1].Amount.Valid {
		t.Errorf("null amount decoded as %v", recs[1].Amount)
	}
	if len(fake.requests) != 1 || !strings.HasSuffix(fake.requests[0], "/ingresos") || !strings.HasPrefix(fake.requests[0], "GET") {
		t.Errorf("requests = %v", fake.requests)
	}
}

func TestRepository_GetNotFound(t *testing.T) {
	repo, _ := newTestRepository(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `[]`
	})
	if _, err := repo.Get(context.Background(), core.Expense, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(context.Background(), core.Expense, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestRepository_CreateMany(t *testing.T) {
	repo, fake := newTestRepository(t, func(r *http.Request) (int, string) {
		return http.StatusCreated, ``
	})

	created, err := repo.CreateMany(context.Background(), core.Expense, []core.Record{
		{Date: "2024-01-01", Amount: core.NullAmount(decimal.NewFromInt(3)), Category: "Luz"},
		{Date: "2024-01-02", Category: "Agua"},
	})
	if err != nil {
		t.Fatalf("CreateMany() error = %v", err)
	}
	if len(created) != 2 || created[0].ID == "" || created[1].Kind != core.Expense {
		t.Fatalf("CreateMany() = %+v", created)
	}
	if len(fake.requests) != 1 || !strings.HasPrefix(fake.requests[0], "POST") {
		t.Fatalf("requests = %v", fake.requests)
	}
	if !strings.Contains(fake.bodies[0], `"categoria":"Luz"`) || strings.Contains(fake.bodies[0], "producto") {
		t.Errorf("insert body = %s", fake.bodies[0])
	}
}

func TestRepository_InvalidKind(t *testing.T) {
	repo, fake := newTestRepository(t, func(r *http.Request) (int, string) {
		return http.StatusOK, `[]`
	})
	if _, err := repo.List(context.Background(), core.Kind("otro")); !errors.Is(err, core.ErrInvalidKind) {
		t.Fatalf("List() error = %v, want ErrInvalidKind", err)
	}
	if len(fake.requests) != 0 {
		t.Fatalf("no request expected, got %v", fake.requests)
	}
}
