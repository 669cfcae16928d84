package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearer(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name   string
		token  string
		path   string
		header string
		want   int
	}{
		{"disabled", "", "/api/ingresos", "", http.StatusNoContent},
		{"missing header", "s3cret", "/api/ingresos", "", http.StatusUnauthorized},
		{"wrong token", "s3cret", "/api/ingresos", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "s3cret", "/api/ingresos", "Basic s3cret", http.StatusUnauthorized},
		{"valid", "s3cret", "/api/ingresos", "Bearer s3cret", http.StatusNoContent},
		{"scheme is case insensitive", "s3cret", "/api/gastos", "bearer s3cret", http.StatusNoContent},
		{"public path", "s3cret", "/healthz", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBearer(tt.token, "/healthz", "/readyz").Middleware(ok)
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if rec.Code == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("WWW-Authenticate not set")
			}
		})
	}
}

func TestBearer_OnDeny(t *testing.T) {
	called := false
	b := NewBearer("x").OnDeny(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusForbidden)
	})
	rec := httptest.NewRecorder()
	b.Middleware(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !called || rec.Code != http.StatusForbidden {
		t.Errorf("custom deny not used: called=%v status=%d", called, rec.Code)
	}
}
