package aggregate

import (
	"reflect"
	"testing"

	"finanzas/internal/core"
)

func TestWeekly_EmptyInput(t *testing.T) {
	s := exact().Weekly(nil, Filter{})
	if s.Len() != 0 || len(s.Labels) != 0 || len(s.Totals) != 0 {
		t.Fatalf("expected empty series, got %+v", s)
	}
	if s.Labels == nil || s.Totals == nil {
		t.Fatal("empty series should use empty slices, not nil")
	}
}

func TestWeekly_SortedAndLabelled(t *testing.T) {
	records := []core.Record{
		income("2024-02-01", "50", "B", "X"),
		income("2024-01-03", "10", "A", "X"),
		income("2024-01-07", "5", "A", "Y"),
		income("2024-01-08", "1", "A", "X"),
		income("garbage", "100", "A", "X"),
		income("2024-01-09", "", "A", "X"),
	}
	s := exact().Weekly(records, Filter{})

	wantLabels := []string{
		"Semana 1 (01/01 - 07/01)",
		"Semana 2 (08/01 - 14/01)",
		"Semana 5 (29/01 - 04/02)",
	}
	wantTotals := []string{"15", "1", "50"}
	if s.Len() != len(wantLabels) {
		t.Fatalf("got %d weeks (%v), want %d", s.Len(), s.Labels, len(wantLabels))
	}
	for i := range wantLabels {
		if s.Labels[i] != wantLabels[i] {
			t.Errorf("label[%d] = %q, want %q", i, s.Labels[i], wantLabels[i])
		}
		if !s.Totals[i].Equal(dec(wantTotals[i])) {
			t.Errorf("total[%d] = %s, want %s", i, s.Totals[i], wantTotals[i])
		}
	}
	for i := 1; i < s.Len(); i++ {
		if !s.Weeks[i-1].Start.Before(s.Weeks[i].Start) {
			t.Fatalf("weeks not ascending at %d: %v then %v", i, s.Weeks[i-1].Start, s.Weeks[i].Start)
		}
	}
}

func TestWeekly_Filters(t *testing.T) {
	records := []core.Record{
		income("2024-01-03", "10", "A", "X"),
		income("2024-01-04", "20", "B", "X"),
		income("2024-01-05", "40", "A", "Y"),
	}
	e := exact()

	s := e.Weekly(records, Filter{Tag: "A"})
	if s.Len() != 1 || !s.Totals[0].Equal(dec("50")) {
		t.Fatalf("product filter: %+v", s.Totals)
	}
	s = e.Weekly(records, Filter{Tag: "A", Platform: "X"})
	if s.Len() != 1 || !s.Totals[0].Equal(dec("10")) {
		t.Fatalf("product+platform filter: %+v", s.Totals)
	}
	s = e.Weekly(records, Filter{Platform: "Z"})
	if s.Len() != 0 {
		t.Fatalf("unknown platform should give no weeks, got %v", s.Labels)
	}
}

func TestWeekly_IgnoresDateCorrection(t *testing.T) {
	records := []core.Record{
		income("2024-01-07", "5", "A", "X"),
		income("2024-01-31", "7", "A", "X"),
	}

	for name, e := range map[string]*Engine{"exact": exact(), "legacy": legacy()} {
		t.Run(name, func(t *testing.T) {
			s := e.Weekly(records, Filter{})
			want := []string{"Semana 1 (01/01 - 07/01)", "Semana 5 (29/01 - 04/02)"}
			if !reflect.DeepEqual(s.Labels, want) {
				t.Errorf("labels = %v, want %v", s.Labels, want)
			}
		})
	}

	// month buckets still apply the correction
	if v := legacy().Monthly([]core.Record{income("2024-01-31", "7", "A", "X")}, Filter{}); !v[1].Equal(dec("7")) {
		t.Errorf("legacy monthly = %v, want February", v)
	}
}

func TestWeeklySeries_Slice(t *testing.T) {
	records := []core.Record{
		income("2024-01-01", "1", "A", ""),
		income("2024-01-08", "2", "A", ""),
		income("2024-01-15", "3", "A", ""),
		income("2024-01-22", "4", "A", ""),
	}
	s := exact().Weekly(records, Filter{})

	tests := []struct {
		name      string
		from, to  int
		wantFirst string
		wantLen   int
	}{
		{"middle", 1, 2, "2", 2},
		{"clamped", -3, 99, "1", 4},
		{"single", 3, 3, "4", 1},
		{"inverted", 3, 1, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Slice(tt.from, tt.to)
			if got.Len() != tt.wantLen || len(got.Labels) != tt.wantLen || len(got.Totals) != tt.wantLen {
				t.Fatalf("Slice(%d, %d) len = %d, want %d", tt.from, tt.to, got.Len(), tt.wantLen)
			}
			if tt.wantLen > 0 && !got.Totals[0].Equal(dec(tt.wantFirst)) {
				t.Errorf("first total = %s, want %s", got.Totals[0], tt.wantFirst)
			}
		})
	}
}
