package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/aggregate"
	"finanzas/internal/backend"
	"finanzas/internal/calendar"
	"finanzas/internal/charts"
	"finanzas/internal/cli"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
)

func main() {
	outDir := flag.String("out", "reports", "directory the chart PNGs are written to")
	thumbs := flag.Bool("thumbs", false, "also write <chart>_thumb.png previews")
	flag.Parse()

	cfg, logger := cli.LoadConfig(nil)
	logger = logger.WithComponent(applog.ComponentCharts)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	backendCfg.AMQPURL = ""
	result, err := backend.NewFactory(logger).Create(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer result.Cleanup()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Error("Failed to create output directory", applog.FieldError, err, "dir", *outDir)
		os.Exit(1)
	}

	engine := aggregate.New(calendar.NewNormalizer(cfg.DatePolicy()))
	dashboard := services.NewDashboard(result.Store, engine, cfg.CacheTTL, cfg.CacheSize, logger)

	written, err := writeReport(ctx, dashboard, charts.NewGenerator(), *outDir, *thumbs, logger)
	if err != nil {
		logger.Error("Report failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Report written", "dir", *outDir, "files", written)
}

// writeReport renders every chart into dir. Charts without data are drawn
// as a single "Sin datos" point.
func writeReport(ctx context.Context, dashboard *services.Dashboard, gen *charts.Generator, dir string, thumbs bool, logger *applog.Logger) (int, error) {
	// warm the cache once so the renders share a snapshot
	if _, err := dashboard.Snapshot(ctx); err != nil {
		return 0, fmt.Errorf("load records: %w", err)
	}

	files := make([]int, len(services.Charts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, name := range services.Charts {
		g.Go(func() error {
			q := services.ChartQuery{To: -1}
			for _, thumb := range []bool{false, true} {
				if thumb && !thumbs {
					break
				}
				png, err := dashboard.Render(ctx, gen, name, q, thumb)
				if err != nil {
					return fmt.Errorf("render %s: %w", name, err)
				}

				file := string(name) + ".png"
				if thumb {
					file = string(name) + "_thumb.png"
				}
				if err := os.WriteFile(filepath.Join(dir, file), png, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", file, err)
				}
				files[i]++
				logger.DebugContext(ctx, "Chart written", applog.FieldChart, string(name), "file", file)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range files {
		total += n
	}
	return total, nil
}
