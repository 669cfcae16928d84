package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// Select returns the records passing f in their original order. Unlike the
// totals, it keeps records with a missing amount or an unparseable date
// unless the month filter rules them out.
func Select(records []core.Record, f Filter) []core.Record {
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		if f.match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Total adds up every present amount.
func Total(records []core.Record) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if r.Amount.Valid {
			total = total.Add(r.Amount.Decimal)
		}
	}
	return total
}

// Options lists the values offered by the list filters.
type Options struct {
	Tags      []string `json:"tags"`
	Platforms []string `json:"plataformas"`
	Months    []string `json:"months"`
}

// CollectOptions returns the sorted distinct non-empty tags, platforms and
// YYYY-MM months of records.
func CollectOptions(records []core.Record) Options {
	tags := map[string]struct{}{}
	platforms := map[string]struct{}{}
	months := map[string]struct{}{}
	for _, r := range records {
		if v := r.Tag(); v != "" {
			tags[v] = struct{}{}
		}
		if r.Platform != "" {
			platforms[r.Platform] = struct{}{}
		}
		if m := r.Month(); m != "" {
			months[m] = struct{}{}
		}
	}
	return Options{
		Tags:      sortedKeys(tags),
		Platforms: sortedKeys(platforms),
		Months:    sortedKeys(months),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
