// Package calendar maps record dates to month and week buckets.
//
// Dates reach this package as calendar days at midnight UTC. Before any
// bucketing they pass through a Normalizer, the single place where the
// legacy one-day correction is applied or skipped.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Policy selects the date correction applied before bucketing.
type Policy string

const (
	// ShiftLegacy moves every date one day forward. Historical data was
	// entered through a client that read YYYY-MM-DD as UTC midnight in a
	// negative offset, so the stored day is one behind the intended one.
	ShiftLegacy Policy = "legacy"
	// ShiftNone buckets dates exactly as stored.
	ShiftNone Policy = "none"
)

// ParsePolicy reads a policy name; the empty string selects ShiftLegacy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ShiftLegacy:
		return ShiftLegacy, nil
	case ShiftNone:
		return ShiftNone, nil
	default:
		return "", fmt.Errorf("unknown date correction policy %q: must be %q or %q", s, ShiftLegacy, ShiftNone)
	}
}

// Normalizer applies a Policy to parsed dates.
type Normalizer struct {
	policy Policy
}

func NewNormalizer(p Policy) Normalizer {
	if p != ShiftNone {
		p = ShiftLegacy
	}
	return Normalizer{policy: p}
}

func (n Normalizer) Policy() Policy {
	if n.policy == "" {
		return ShiftLegacy
	}
	return n.policy
}

// Normalize returns the date used for bucketing.
func (n Normalizer) Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if n.Policy() == ShiftLegacy {
		return day.AddDate(0, 0, 1)
	}
	return day
}

// MonthIndex returns 0 for January through 11 for December.
func MonthIndex(t time.Time) int {
	return int(t.Month()) - 1
}

// Week is a Monday-to-Sunday bucket.
type Week struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Number int       `json:"number"`
	Label  string    `json:"label"`
}

// WeekOf returns the week containing t. Weeks are numbered from the one
// containing January 1, so a week spanning the new year is week 1 of the
// year it ends in. This is not ISO numbering.
func WeekOf(t time.Time) Week {
	start := monday(t)
	end := start.AddDate(0, 0, 6)
	first := monday(time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC))
	number := int(start.Sub(first).Hours()/24)/7 + 1
	return Week{
		Start:  start,
		End:    end,
		Number: number,
		Label:  fmt.Sprintf("Semana %d (%s - %s)", number, start.Format("02/01"), end.Format("02/01")),
	}
}

// monday returns midnight UTC of the Monday on or before t's date.
func monday(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
}

// Key identifies the week by its Monday as YYYY-MM-DD.
func (w Week) Key() string {
	return w.Start.Format("2006-01-02")
}
