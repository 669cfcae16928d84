package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"finanzas/internal/calendar"
	"finanzas/internal/core"
)

// WeeklySeries lists week totals in ascending week order. Labels and
// Totals are parallel to Weeks.
type WeeklySeries struct {
	Weeks  []calendar.Week   `json:"weeks"`
	Labels []string          `json:"labels"`
	Totals []decimal.Decimal `json:"totals"`
}

// Len returns the number of weeks.
func (s WeeklySeries) Len() int {
	return len(s.Weeks)
}

// Slice keeps weeks from index from through index to, inclusive. Indexes
// are clamped to the series; an inverted range yields an empty series.
func (s WeeklySeries) Slice(from, to int) WeeklySeries {
	if from < 0 {
		from = 0
	}
	if to >= len(s.Weeks) {
		to = len(s.Weeks) - 1
	}
	if from > to {
		return emptyWeekly()
	}
	return WeeklySeries{
		Weeks:  append([]calendar.Week(nil), s.Weeks[from:to+1]...),
		Labels: append([]string(nil), s.Labels[from:to+1]...),
		Totals: append([]decimal.Decimal(nil), s.Totals[from:to+1]...),
	}
}

// Floats converts the totals for chart rendering.
func (s WeeklySeries) Floats() []float64 {
	out := make([]float64, len(s.Totals))
	for i, t := range s.Totals {
		out[i] = t.InexactFloat64()
	}
	return out
}

func emptyWeekly() WeeklySeries {
	return WeeklySeries{
		Weeks:  []calendar.Week{},
		Labels: []string{},
		Totals: []decimal.Decimal{},
	}
}

// Weekly sums the records passing f by Monday-start week of the stored
// date. The date correction policy does not apply to weeks.
func (e *Engine) Weekly(records []core.Record, f Filter) WeeklySeries {
	type bucket struct {
		week  calendar.Week
		total decimal.Decimal
	}
	buckets := make(map[string]*bucket)
	for _, r := range records {
		if !f.match(r) {
			continue
		}
		t, amt, ok := storedDate(r)
		if !ok {
			continue
		}
		w := calendar.WeekOf(t)
		b, exists := buckets[w.Key()]
		if !exists {
			b = &bucket{week: w, total: decimal.Zero}
			buckets[w.Key()] = b
		}
		b.total = b.total.Add(amt)
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].week.Start.Before(ordered[j].week.Start)
	})

	s := emptyWeekly()
	for _, b := range ordered {
		s.Weeks = append(s.Weeks, b.week)
		s.Labels = append(s.Labels, b.week.Label)
		s.Totals = append(s.Totals, b.total)
	}
	return s
}
