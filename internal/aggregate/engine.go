// Package aggregate turns a snapshot of records into monthly, grouped and
// weekly totals.
//
// The engine is a pure projection: it performs no I/O, keeps no state
// between calls and never modifies the records it is given. Records whose
// date does not parse or whose amount is missing are skipped silently. An
// amount of zero is a present amount and is counted.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/calendar"
	"finanzas/internal/core"
)

// Months is the length of every monthly vector.
const Months = 12

// GroupBy selects the tag used by MonthlyGrouped.
type GroupBy string

const (
	GroupNone     GroupBy = ""
	GroupCategory GroupBy = "categoria"
	GroupProduct  GroupBy = "producto"
)

// ParseGroupBy accepts the Spanish and English tag names.
func ParseGroupBy(s string) (GroupBy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return GroupNone, nil
	case "categoria", "category":
		return GroupCategory, nil
	case "producto", "product":
		return GroupProduct, nil
	default:
		return GroupNone, fmt.Errorf("unknown group %q", s)
	}
}

// Filter narrows the records that contribute to a total. Empty fields match
// everything. Tag is compared with the product of income records and the
// category of expense records. Month (YYYY-MM) is compared with the stored
// date, before any correction, the same way record lists are filtered.
type Filter struct {
	Platform string `json:"plataforma,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Month    string `json:"month,omitempty"`
}

func (f Filter) match(r core.Record) bool {
	if f.Platform != "" && r.Platform != f.Platform {
		return false
	}
	if f.Tag != "" && r.Tag() != f.Tag {
		return false
	}
	if f.Month != "" && r.Month() != f.Month {
		return false
	}
	return true
}

// MonthlyVector holds one total per month, January first.
type MonthlyVector [Months]decimal.Decimal

// Sum adds up all twelve months.
func (v MonthlyVector) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, m := range v {
		total = total.Add(m)
	}
	return total
}

// Floats converts the vector for chart rendering.
func (v MonthlyVector) Floats() []float64 {
	out := make([]float64, Months)
	for i, m := range v {
		out[i] = m.InexactFloat64()
	}
	return out
}

// Equal reports whether both vectors hold the same amounts.
func (v MonthlyVector) Equal(o MonthlyVector) bool {
	for i := range v {
		if !v[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Grouped holds, for each month, the total of every group key. Keys lists
// the distinct tag values of the whole snapshot in sorted order; every key
// is present in every month, with zero when nothing matched.
type Grouped struct {
	Keys   []string                             `json:"keys"`
	Months [Months]map[string]decimal.Decimal `json:"months"`
}

// Series returns the monthly vector of one key.
func (g Grouped) Series(key string) MonthlyVector {
	var v MonthlyVector
	for i, m := range g.Months {
		v[i] = m[key]
	}
	return v
}

// Totals adds up every key, month by month.
func (g Grouped) Totals() MonthlyVector {
	var v MonthlyVector
	for i, m := range g.Months {
		for _, amt := range m {
			v[i] = v[i].Add(amt)
		}
	}
	return v
}

// Engine computes aggregates under a single date correction policy.
type Engine struct {
	norm calendar.Normalizer
}

func New(norm calendar.Normalizer) *Engine {
	return &Engine{norm: norm}
}

// Policy reports the date correction in effect.
func (e *Engine) Policy() calendar.Policy {
	return e.norm.Policy()
}

// storedDate returns the uncorrected date and amount of a usable record.
func storedDate(r core.Record) (time.Time, decimal.Decimal, bool) {
	if !r.Amount.Valid {
		return time.Time{}, decimal.Zero, false
	}
	t, ok := core.ParseDate(r.Date)
	if !ok {
		return time.Time{}, decimal.Zero, false
	}
	return t, r.Amount.Decimal, true
}

// bucketDate returns the corrected date and amount of a usable record. The
// correction applies to monthly buckets only; weeks use storedDate.
func (e *Engine) bucketDate(r core.Record) (time.Time, decimal.Decimal, bool) {
	t, amt, ok := storedDate(r)
	if !ok {
		return t, amt, false
	}
	return e.norm.Normalize(t), amt, true
}

// Monthly sums the records passing f by corrected calendar month.
func (e *Engine) Monthly(records []core.Record, f Filter) MonthlyVector {
	var v MonthlyVector
	for _, r := range records {
		if !f.match(r) {
			continue
		}
		t, amt, ok := e.bucketDate(r)
		if !ok {
			continue
		}
		i := calendar.MonthIndex(t)
		v[i] = v[i].Add(amt)
	}
	return v
}

// MonthlyGrouped sums records by month and tag. The key set is collected
// from every record before the platform filter is applied, so a key can
// show zero in every month under a platform that never used it.
func (e *Engine) MonthlyGrouped(records []core.Record, by GroupBy, platform string) Grouped {
	seen := make(map[string]struct{})
	for _, r := range records {
		seen[groupKey(r, by)] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	g := Grouped{Keys: keys}
	for i := range g.Months {
		g.Months[i] = make(map[string]decimal.Decimal, len(keys))
		for _, k := range keys {
			g.Months[i][k] = decimal.Zero
		}
	}

	f := Filter{Platform: platform}
	for _, r := range records {
		if !f.match(r) {
			continue
		}
		t, amt, ok := e.bucketDate(r)
		if !ok {
			continue
		}
		i := calendar.MonthIndex(t)
		k := groupKey(r, by)
		g.Months[i][k] = g.Months[i][k].Add(amt)
	}
	return g
}

func groupKey(r core.Record, by GroupBy) string {
	switch by {
	case GroupCategory:
		return r.Category
	case GroupProduct:
		return r.Product
	default:
		return r.Tag()
	}
}
