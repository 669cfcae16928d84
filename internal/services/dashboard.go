package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"finanzas/internal/aggregate"
	"finanzas/internal/cache"
	"finanzas/internal/charts"
	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/storage"
)

// ErrUnknownChart is returned for a chart name the dashboard does not know.
var ErrUnknownChart = errors.New("unknown chart")

// ChartName identifies a dashboard dataset.
type ChartName string

const (
	ChartIncome            ChartName = "ingresos"
	ChartIncomeByProduct   ChartName = "ingresos-by-product"
	ChartWeekly            ChartName = "weekly"
	ChartExpense           ChartName = "gastos"
	ChartExpenseByCategory ChartName = "gastos-by-category"
	ChartOperation         ChartName = "operation"
	ChartMargin            ChartName = "margin"
	ChartComparison        ChartName = "comparison"
)

// Charts lists every dataset in dashboard order.
var Charts = []ChartName{
	ChartIncome,
	ChartIncomeByProduct,
	ChartWeekly,
	ChartExpense,
	ChartExpenseByCategory,
	ChartOperation,
	ChartMargin,
	ChartComparison,
}

var chartTitles = map[ChartName]string{
	ChartIncome:            "Ingresos Mensuales",
	ChartIncomeByProduct:   "Ventas Mensuales por Producto",
	ChartWeekly:            "Ventas Semanales",
	ChartExpense:           "Gastos Mensuales",
	ChartExpenseByCategory: "Gastos Mensuales por Categoría",
	ChartOperation:         "Utilidad Mensual (Ingresos - Gastos)",
	ChartMargin:            "Margen Mensual (%)",
	ChartComparison:        "Comparación Mensual de Ingresos y Gastos",
}

// MonthLabels are the x axis of every monthly chart.
var MonthLabels = []string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// ParseChart validates a chart name.
func ParseChart(s string) (ChartName, error) {
	name := ChartName(s)
	if _, ok := chartTitles[name]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownChart, s)
	}
	return name, nil
}

// ChartQuery carries the filters of a chart request. From and To select a
// window of the weekly chart by index, inclusive; To < 0 means the last week.
type ChartQuery struct {
	aggregate.Filter
	From int
	To   int
}

// Series is one named line of a dataset.
type Series struct {
	Name   string            `json:"name"`
	Values []decimal.Decimal `json:"values"`
}

// Dataset is a chart ready for the client: labels on the x axis and one or
// more series parallel to them. Options carries the values offered by the
// chart's filter dropdowns.
type Dataset struct {
	Chart   ChartName          `json:"chart"`
	Title   string             `json:"title"`
	Labels  []string           `json:"labels"`
	Series  []Series           `json:"series"`
	Total   decimal.Decimal    `json:"total"`
	Weeks   int                `json:"weeks,omitempty"`
	Options *aggregate.Options `json:"options,omitempty"`
}

// NoDataLabel is the only x label of a chart drawn from an empty dataset.
const NoDataLabel = "Sin datos"

// Spec converts the dataset for PNG rendering. An empty dataset becomes a
// single zero point so the image is drawn like the zero-filled JSON shape.
func (d Dataset) Spec() charts.Spec {
	spec := charts.Spec{
		Title:   d.Title,
		Labels:  d.Labels,
		Style:   charts.Bars,
		Percent: d.Chart == ChartMargin,
	}
	switch d.Chart {
	case ChartIncomeByProduct, ChartExpenseByCategory, ChartComparison:
		spec.Style = charts.Lines
	}
	empty := len(d.Labels) == 0
	if empty {
		spec.Labels = []string{NoDataLabel}
	}
	for _, s := range d.Series {
		values := make([]float64, len(s.Values))
		for i, v := range s.Values {
			values[i] = v.InexactFloat64()
		}
		if empty {
			values = []float64{0}
		}
		spec.Series = append(spec.Series, charts.Series{Name: s.Name, Values: values})
	}
	if len(spec.Series) == 0 {
		spec.Series = []charts.Series{{Name: d.Title, Values: make([]float64, len(spec.Labels))}}
	}
	return spec
}

// ListView is a filtered record list with its total.
type ListView struct {
	Items  []core.Record    `json:"items"`
	Total  decimal.Decimal  `json:"total"`
	Count  int              `json:"count"`
	Filter aggregate.Filter `json:"filter"`
}

// Snapshot is both record collections read at one point in time.
type Snapshot struct {
	Income  []core.Record
	Expense []core.Record
}

// Dashboard serves list views and chart datasets from cached snapshots of
// the record store.
type Dashboard struct {
	store  storage.Store
	engine *aggregate.Engine
	cache  *cache.LRUCache[[]core.Record]
	logger *applog.Logger

	// gens counts invalidations per kind; a load only fills the cache when
	// no invalidation happened while it ran.
	mu   sync.Mutex
	gens map[core.Kind]uint64
}

// NewDashboard caches each collection for ttl. A ttl of zero disables the
// cache.
func NewDashboard(store storage.Store, engine *aggregate.Engine, ttl time.Duration, size int, logger *applog.Logger) *Dashboard {
	if logger == nil {
		logger = applog.New(applog.Config{Handler: slog.Default().Handler()})
	}
	if size < 2 {
		size = 2
	}
	return &Dashboard{
		store:  store,
		engine: engine,
		cache:  cache.NewLRUCache[[]core.Record](size, ttl),
		logger: logger.WithComponent(applog.ComponentDashboard),
		gens:   make(map[core.Kind]uint64),
	}
}

// Cache exposes the snapshot cache for periodic cleanup.
func (d *Dashboard) Cache() *cache.LRUCache[[]core.Record] {
	return d.cache
}

// Invalidate drops the cached snapshot of kind.
func (d *Dashboard) Invalidate(kind core.Kind) {
	d.mu.Lock()
	d.gens[kind]++
	d.cache.Delete(string(kind))
	d.mu.Unlock()
	d.logger.Debug("Snapshot invalidated", applog.FieldKind, string(kind))
}

// Records returns the snapshot of kind. Callers must not modify it.
func (d *Dashboard) Records(ctx context.Context, kind core.Kind) ([]core.Record, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrValidation, core.ErrInvalidKind)
	}
	if recs, ok := d.cache.Get(string(kind)); ok {
		d.logger.DebugContext(ctx, "Snapshot cache hit", applog.FieldKind, string(kind), applog.FieldRows, len(recs))
		return recs, nil
	}

	d.mu.Lock()
	gen := d.gens[kind]
	d.mu.Unlock()

	recs, err := d.store.List(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", kind.Collection(), err)
	}

	d.mu.Lock()
	current := d.gens[kind] == gen
	if current {
		d.cache.Set(string(kind), recs)
	}
	d.mu.Unlock()

	if current {
		d.logger.DebugContext(ctx, "Snapshot cached", applog.FieldKind, string(kind), applog.FieldRows, len(recs))
	} else {
		d.logger.DebugContext(ctx, "Snapshot changed during load, not cached", applog.FieldKind, string(kind))
	}
	return recs, nil
}

// Snapshot loads both collections in parallel.
func (d *Dashboard) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := d.Records(gctx, core.Income)
		snap.Income = recs
		return err
	})
	g.Go(func() error {
		recs, err := d.Records(gctx, core.Expense)
		snap.Expense = recs
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// List filters kind's records by month, tag and platform.
func (d *Dashboard) List(ctx context.Context, kind core.Kind, f aggregate.Filter) (ListView, error) {
	recs, err := d.Records(ctx, kind)
	if err != nil {
		return ListView{}, err
	}
	items := aggregate.Select(recs, f)
	return ListView{
		Items:  items,
		Total:  aggregate.Total(items),
		Count:  len(items),
		Filter: f,
	}, nil
}

// Options returns the filter values of kind's list.
func (d *Dashboard) Options(ctx context.Context, kind core.Kind) (aggregate.Options, error) {
	recs, err := d.Records(ctx, kind)
	if err != nil {
		return aggregate.Options{}, err
	}
	return aggregate.CollectOptions(recs), nil
}

// Chart computes one dashboard dataset.
func (d *Dashboard) Chart(ctx context.Context, name ChartName, q ChartQuery) (Dataset, error) {
	title, ok := chartTitles[name]
	if !ok {
		return Dataset{}, fmt.Errorf("%w: %q", ErrUnknownChart, name)
	}
	ds := Dataset{Chart: name, Title: title, Labels: MonthLabels}

	switch name {
	case ChartIncome, ChartExpense:
		kind, label := core.Income, "Ingresos"
		if name == ChartExpense {
			kind, label = core.Expense, "Gastos"
		}
		recs, err := d.Records(ctx, kind)
		if err != nil {
			return Dataset{}, err
		}
		v := d.engine.Monthly(recs, q.Filter)
		ds.Series = []Series{monthly(label, v)}
		ds.Total = v.Sum()
		ds.Options = options(recs)

	case ChartIncomeByProduct, ChartExpenseByCategory:
		kind, by := core.Income, aggregate.GroupProduct
		if name == ChartExpenseByCategory {
			kind, by = core.Expense, aggregate.GroupCategory
		}
		recs, err := d.Records(ctx, kind)
		if err != nil {
			return Dataset{}, err
		}
		g := d.engine.MonthlyGrouped(recs, by, q.Platform)
		for _, k := range g.Keys {
			ds.Series = append(ds.Series, monthly(k, g.Series(k)))
		}
		ds.Total = g.Totals().Sum()
		ds.Options = options(recs)

	case ChartWeekly:
		recs, err := d.Records(ctx, core.Income)
		if err != nil {
			return Dataset{}, err
		}
		w := d.engine.Weekly(recs, q.Filter)
		ds.Weeks = w.Len()
		to := q.To
		if to < 0 {
			to = w.Len() - 1
		}
		w = w.Slice(q.From, to)
		ds.Labels = w.Labels
		ds.Series = []Series{{Name: "Ventas", Values: w.Totals}}
		ds.Total = decimal.Zero
		for _, t := range w.Totals {
			ds.Total = ds.Total.Add(t)
		}
		ds.Options = options(recs)

	case ChartOperation, ChartMargin, ChartComparison:
		snap, err := d.Snapshot(ctx)
		if err != nil {
			return Dataset{}, err
		}
		income := d.engine.Monthly(snap.Income, aggregate.Filter{})
		expense := d.engine.Monthly(snap.Expense, aggregate.Filter{})
		switch name {
		case ChartOperation:
			net := aggregate.Net(income, expense)
			ds.Series = []Series{monthly("Utilidad", net)}
			ds.Total = net.Sum()
		case ChartMargin:
			ds.Series = []Series{monthly("Margen", aggregate.Margin(income, expense))}
			ds.Total = marginOf(income.Sum(), expense.Sum())
		default:
			c := aggregate.Compare(income, expense)
			ds.Series = []Series{
				monthly("Ingresos", c.Income),
				monthly("Gastos", c.Expense),
			}
			ds.Total = c.Net.Sum()
		}
	}

	if ds.Series == nil {
		ds.Series = []Series{}
	}
	d.logger.DebugContext(ctx, "Chart dataset computed",
		applog.FieldChart, string(name),
		"series", len(ds.Series),
		applog.FieldDatePolicy, string(d.engine.Policy()))
	return ds, nil
}

// Render draws a dataset as PNG, optionally shrunk to a thumbnail.
func (d *Dashboard) Render(ctx context.Context, gen *charts.Generator, name ChartName, q ChartQuery, thumb bool) ([]byte, error) {
	ds, err := d.Chart(ctx, name, q)
	if err != nil {
		return nil, err
	}
	png, err := gen.Render(ds.Spec())
	if err != nil {
		return nil, err
	}
	if thumb {
		return charts.Thumbnail(png, charts.ThumbnailWidth)
	}
	return png, nil
}

func monthly(name string, v aggregate.MonthlyVector) Series {
	return Series{Name: name, Values: append([]decimal.Decimal(nil), v[:]...)}
}

func options(recs []core.Record) *aggregate.Options {
	o := aggregate.CollectOptions(recs)
	return &o
}

// marginOf is the yearly margin, zero without income.
func marginOf(income, expense decimal.Decimal) decimal.Decimal {
	var in, ex aggregate.MonthlyVector
	in[0], ex[0] = income, expense
	return aggregate.Margin(in, ex)[0]
}
