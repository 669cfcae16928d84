package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	applog "finanzas/internal/log"
	"finanzas/internal/services"
)

// handleDashboard returns one chart dataset as JSON.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	name, err := services.ParseChart(chi.URLParam(r, "chart"))
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	q, err := ParseChartQuery(name, r.URL.Query())
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}

	ds, err := s.dashboard.Chart(r.Context(), name, q)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	NewResponse().JSON(ds).Write(w)
}

// handleChartPNG renders /api/charts/{chart}.png; thumb=1 returns the
// reduced version.
func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	base, ok := strings.CutSuffix(file, ".png")
	if !ok {
		NotFoundError(fmt.Sprintf("unknown chart file %q", file)).Write(w)
		return
	}
	name, err := services.ParseChart(base)
	if err != nil {
		s.fail(w, r, applog.OpRender, err)
		return
	}
	q, err := ParseChartQuery(name, r.URL.Query())
	if err != nil {
		s.fail(w, r, applog.OpRender, err)
		return
	}

	thumb := r.URL.Query().Get("thumb") == "1"
	png, err := s.dashboard.Render(r.Context(), s.charts, name, q, thumb)
	if err != nil {
		s.fail(w, r, applog.OpRender, err)
		return
	}
	NewResponse().Body("image/png", png).Write(w)
}
