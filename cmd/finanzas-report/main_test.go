package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/aggregate"
	"finanzas/internal/calendar"
	"finanzas/internal/charts"
	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/storage/memory"
)

func TestWriteReport(t *testing.T) {
	store := memory.New(
		core.Record{Kind: core.Income, Date: "2024-01-05", Amount: core.NullAmount(decimal.NewFromInt(100)), Product: "A"},
		core.Record{Kind: core.Expense, Date: "2024-01-10", Amount: core.NullAmount(decimal.NewFromInt(40)), Category: "Luz"},
	)
	dashboard := services.NewDashboard(store, aggregate.New(calendar.NewNormalizer(calendar.ShiftNone)), time.Minute, 4, nil)
	dir := t.TempDir()
	logger := applog.New(applog.Config{Component: applog.ComponentCharts, Output: os.Stderr})

	n, err := writeReport(context.Background(), dashboard, &charts.Generator{Width: 480, Height: 240}, dir, true, logger)
	if err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	if want := 2 * len(services.Charts); n != want {
		t.Errorf("wrote %d files, want %d", n, want)
	}
	for _, name := range []string{"ingresos.png", "weekly_thumb.png", "comparison.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestWriteReportEmptyStore(t *testing.T) {
	dashboard := services.NewDashboard(memory.New(), aggregate.New(calendar.NewNormalizer(calendar.ShiftNone)), time.Minute, 4, nil)
	logger := applog.New(applog.Config{Component: applog.ComponentCharts, Output: os.Stderr})

	n, err := writeReport(context.Background(), dashboard, &charts.Generator{Width: 480, Height: 240}, t.TempDir(), false, logger)
	if err != nil {
		t.Fatalf("empty store should not fail the report: %v", err)
	}
	if n != len(services.Charts) {
		t.Errorf("wrote %d files, want %d placeholder charts", n, len(services.Charts))
	}
}
