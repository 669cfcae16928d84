// This file implements parsing of path, query and body input shared by the
// handlers.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"finanzas/internal/aggregate"
	"finanzas/internal/core"
	"finanzas/internal/services"
)

// maxBodyBytes bounds JSON record bodies.
const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

// KindParam resolves the {kind} path segment (ingresos or gastos).
func KindParam(r *http.Request) (core.Kind, error) {
	return core.ParseKind(chi.URLParam(r, "kind"))
}

// ParseFilter reads month, producto|categoria and plataforma. The tag
// parameter matching kind wins; tag is accepted for either.
func ParseFilter(kind core.Kind, query url.Values) (aggregate.Filter, error) {
	f := aggregate.Filter{
		Platform: sanitizeInput(query.Get("plataforma")),
		Month:    sanitizeInput(query.Get("month")),
	}

	keys := []string{"producto", "categoria", "tag"}
	if kind == core.Expense {
		keys = []string{"categoria", "producto", "tag"}
	}
	for _, k := range keys {
		if v := sanitizeInput(query.Get(k)); v != "" {
			f.Tag = v
			break
		}
	}

	if f.Month != "" {
		if _, err := time.Parse("2006-01", f.Month); err != nil {
			return aggregate.Filter{}, fmt.Errorf("%w: month must be YYYY-MM, got %q", errBadRequest, f.Month)
		}
	}
	return f, nil
}

// ParseChartQuery reads the chart filters plus the weekly window. from
// defaults to the first week and to to the last.
func ParseChartQuery(name services.ChartName, query url.Values) (services.ChartQuery, error) {
	kind := core.Income
	if name == services.ChartExpense || name == services.ChartExpenseByCategory {
		kind = core.Expense
	}
	f, err := ParseFilter(kind, query)
	if err != nil {
		return services.ChartQuery{}, err
	}

	q := services.ChartQuery{Filter: f}
	if q.From, err = intParam(query, "from", 0); err != nil {
		return services.ChartQuery{}, err
	}
	if q.To, err = intParam(query, "to", -1); err != nil {
		return services.ChartQuery{}, err
	}
	if q.From < 0 {
		return services.ChartQuery{}, fmt.Errorf("%w: from must not be negative", errBadRequest)
	}
	return q, nil
}

func intParam(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", errBadRequest, key, v)
	}
	return n, nil
}

// DecodeRecord reads a JSON record body. Text fields are sanitised; the
// amount accepts a JSON number or a string such as "1.234,50".
func DecodeRecord(r *http.Request) (core.Record, error) {
	var wire struct {
		Date     string          `json:"fecha"`
		Amount   json.RawMessage `json:"monto"`
		Platform string          `json:"plataforma"`
		Product  string          `json:"producto"`
		Category string          `json:"categoria"`
		Concept  string          `json:"concepto"`
		Type     string          `json:"tipo"`
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return core.Record{}, fmt.Errorf("%w: read body: %v", errBadRequest, err)
	}
	if len(body) > maxBodyBytes {
		return core.Record{}, fmt.Errorf("%w: body too large", errBadRequest)
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return core.Record{}, fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}

	rec := core.Record{
		Date:     sanitizeInput(wire.Date),
		Platform: sanitizeInput(wire.Platform),
		Product:  sanitizeInput(wire.Product),
		Category: sanitizeInput(wire.Category),
		Concept:  sanitizeInput(wire.Concept),
		Type:     sanitizeInput(wire.Type),
	}

	amount, err := amountValue(wire.Amount)
	if err != nil {
		return core.Record{}, fmt.Errorf("%w: %w", services.ErrValidation, err)
	}
	rec.Amount = amount
	return rec, nil
}

// amountValue leaves the amount invalid when monto is absent or null so
// validation reports it as missing.
func amountValue(raw json.RawMessage) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.NullDecimal{}, nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
		if strings.TrimSpace(s) == "" {
			return decimal.NullDecimal{}, nil
		}
	}
	d, err := core.ParseAmount(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return core.NullAmount(d), nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
