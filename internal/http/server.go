package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"finanzas/internal/cache"
	"finanzas/internal/charts"
	applog "finanzas/internal/log"
	"finanzas/internal/middleware/auth"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/security"
	"finanzas/internal/middleware/trace"
	"finanzas/internal/services"
	"finanzas/internal/storage"
)

// Options wires the services behind the API.
type Options struct {
	Addr      string
	Records   *services.RecordService
	Dashboard *services.Dashboard
	// Importer defaults to one writing through Records.
	Importer *services.Importer
	// Charts defaults to charts.NewGenerator().
	Charts *charts.Generator
	Logger *applog.Logger

	// APIToken enables the bearer gate when set.
	APIToken           string
	RateLimitPerMinute int
	MaxUploadBytes     int64
	// CacheCleanupInterval defaults to ten minutes.
	CacheCleanupInterval time.Duration
}

type Server struct {
	http.Server
	records   *services.RecordService
	dashboard *services.Dashboard
	importer  *services.Importer
	charts    *charts.Generator
	logger    *applog.Logger

	limiter   *ratelimit.Limiter
	detector  *security.Detector
	trace     *trace.Middleware
	maxUpload int64

	caches       *cache.Manager
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. Mutations through Records invalidate the dashboard cache.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	if opts.Importer == nil {
		opts.Importer = services.NewImporter(opts.Records)
	}
	if opts.Charts == nil {
		opts.Charts = charts.NewGenerator()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.CacheCleanupInterval <= 0 {
		opts.CacheCleanupInterval = 10 * time.Minute
	}

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		records:   opts.Records,
		dashboard: opts.Dashboard,
		importer:  opts.Importer,
		charts:    opts.Charts,
		logger:    logger,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:  security.NewDetector(logger),
		maxUpload: opts.MaxUploadBytes,
		caches:    cache.NewManager(logger.Logger),
	}
	s.trace = trace.NewMiddleware(logger, s.detector.ClientIP)

	s.records.OnChange(s.dashboard.Invalidate)
	s.caches.Register(s.dashboard.Cache())
	s.caches.StartCleanup(opts.CacheCleanupInterval)

	s.Handler = s.routes(opts.APIToken)
	return s
}

func (s *Server) routes(apiToken string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.trace.Handler)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	gate := auth.NewBearer(apiToken).OnDeny(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusUnauthorized, "missing or invalid bearer token").Write(w)
	})
	limit := s.limiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
	}, http.MethodPost, http.MethodPut, http.MethodDelete)

	r.Route("/api", func(r chi.Router) {
		r.Use(security.NoStore)
		r.Use(gate.Middleware)
		r.Use(limit)

		r.Get("/dashboard/{chart}", s.handleDashboard)
		r.Get("/charts/{file}", s.handleChartPNG)

		r.Route("/{kind}", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.handleCreate)
			r.Get("/options", s.handleOptions)
			r.Post("/upload", s.handleUpload)
			r.Get("/template", s.handleTemplate)
			r.Put("/{id}", s.handleUpdate)
			r.Delete("/{id}", s.handleDelete)
		})
	})

	return r
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady pings the record store when it supports it.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.records.Store().(storage.Pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "store unavailable").Write(w)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
