package trace

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	applog "finanzas/internal/log"
)

func TestMiddleware_LogsCompletion(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Handler: slog.NewJSONHandler(&buf, nil), Component: applog.ComponentApp})
	m := NewMiddleware(logger, func(*http.Request) string { return "1.2.3.4" })

	var inner *applog.Logger
	h := middleware.RequestID(m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = applog.FromContext(r.Context())
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("{}"))
	})))

	tests := []struct {
		path   string
		status float64
		level  string
	}{
		{"/api/ingresos", 200, "INFO"},
		{"/boom", 500, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			buf.Reset()
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log line is not JSON: %v: %s", err, buf.String())
			}
			if entry[applog.FieldStatusCode] != tt.status || entry["level"] != tt.level {
				t.Errorf("entry = %v", entry)
			}
			if entry[applog.FieldRequestID] == "" || entry[applog.FieldRequestID] == nil {
				t.Error("request id missing from log entry")
			}
			if entry[applog.FieldClientIP] != "1.2.3.4" || entry[applog.FieldComponent] != applog.ComponentHTTP {
				t.Errorf("entry = %v", entry)
			}
			if inner == nil || inner.Component() != applog.ComponentHTTP {
				t.Error("handler did not get the request logger")
			}
		})
	}

	got := m.GetMetrics()
	if got.TotalRequests != 2 || got.ServerErrors != 1 {
		t.Errorf("GetMetrics() = %+v", got)
	}
}
