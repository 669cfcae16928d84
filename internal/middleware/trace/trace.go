package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	applog "finanzas/internal/log"
)

// Middleware logs each request once it completes and keeps request counters.
// It expects chi's RequestID middleware to run first.
type Middleware struct {
	logger    *applog.Logger
	extractIP func(*http.Request) string

	total    atomic.Int64
	failures atomic.Int64
	lastMs   atomic.Int64
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests  int64
	ServerErrors   int64
	LastDurationMs int64
}

// NewMiddleware creates a new trace middleware
func NewMiddleware(logger *applog.Logger, extractIP func(*http.Request) string) *Middleware {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	return &Middleware{logger: logger, extractIP: extractIP}
}

// Handler stores a request-scoped logger carrying the request id in the
// context and logs the outcome.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := middleware.GetReqID(r.Context())
		reqLogger := m.logger.With(applog.FieldRequestID, requestID)
		ctx := applog.WithLogger(r.Context(), reqLogger)
		r = r.WithContext(ctx)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start).Milliseconds()

		m.total.Add(1)
		m.lastMs.Store(duration)
		if status >= http.StatusInternalServerError {
			m.failures.Add(1)
		}

		applog.NewStructuredLogger(reqLogger).LogHTTPEnd(ctx, r, status, duration, clientIP)
	})
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:  m.total.Load(),
		ServerErrors:   m.failures.Load(),
		LastDurationMs: m.lastMs.Load(),
	}
}
