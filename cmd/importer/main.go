// Command importer runs one import of the roster and consumption CSV
// files into the dashboard database, then refreshes the rollups.
//
// Usage:
//
//	importer --mode skip [--validation yes] [-d dir]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/aggregation"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/catalog"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/import/normalizer"
	importrepo "github.com/FACorreiaa/smart-energy-dashboard/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/smart-energy-dashboard/internal/domain/import/service"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/observability/metrics"
	"github.com/FACorreiaa/smart-energy-dashboard/pkg/config"
	"github.com/FACorreiaa/smart-energy-dashboard/pkg/db"
)

func main() {
	var (
		mode       string
		validation string
		dataDir    string
	)
	flag.StringVar(&mode, "mode", "", "duplicate policy: skip, first, last or sum (required)")
	flag.StringVar(&validation, "validation", "no", "report duplicates and row errors without writing: yes or no")
	flag.StringVar(&dataDir, "d", "", "data directory override")
	flag.StringVar(&dataDir, "data-dir", "", "data directory override")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(mode, validation, dataDir, logger); err != nil {
		logger.Error("import failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(mode, validationFlag, dataDir string, logger *slog.Logger) error {
	policy, err := normalizer.ParsePolicy(mode)
	if err != nil {
		return err
	}
	validation, err := parseValidation(validationFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dataDir == "" {
		dataDir = cfg.Data.Dir
	}

	ctx := context.Background()
	database, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		return err
	}

	var importMetrics *metrics.ImportMetrics
	if cfg.Observability.MetricsEnabled {
		registry := prometheus.NewRegistry()
		importMetrics = metrics.New(registry)
		go serveMetrics(registry, cfg.Observability.MetricsPort, logger)
	}

	loc := cfg.Data.Location()
	store := importrepo.NewPostgres(database.Pool, cfg.Import.BatchSize)
	svc := importservice.NewService(store, catalog.NewRepository(database.Pool), logger).
		WithLocation(loc)
	if cfg.Import.GapFill {
		svc = svc.WithGapFill(cfg.Import.GapStep)
	}
	if importMetrics != nil {
		svc = svc.WithMetrics(importMetrics)
	}

	result, err := svc.Run(ctx, importservice.RunOptions{
		DataDir:      dataDir,
		Mode:         policy,
		ValidateOnly: validation,
	})
	if err != nil {
		return err
	}

	logger.Info("import finished",
		slog.Int("consumers_created", result.ConsumersCreated),
		slog.Int("withdrawn", result.Withdrawn),
		slog.Int("reactivated", result.Reactivated),
		slog.Int("contracts_opened", result.ContractsOpened),
		slog.Int("contracts_closed", result.ContractsClosed),
		slog.Int("readings_imported", result.ReadingsImported),
		slog.Int("readings_skipped", result.ReadingsSkipped),
		slog.Int("rows_failed", result.RowsFailed),
	)
	if validation {
		return nil
	}

	rollups := aggregation.NewService(
		aggregation.NewPostgresRepository(database.Pool),
		logger, loc, nil, cfg.Summary.CacheTTL,
	)
	if importMetrics != nil {
		rollups = rollups.WithMetrics(importMetrics)
	}
	from, to, err := rollups.ResolveWindow(cfg.Summary.Month, time.Now())
	if err != nil {
		return err
	}
	if err := rollups.Refresh(ctx, from, to); err != nil {
		return fmt.Errorf("refresh rollups: %w", err)
	}
	return nil
}

// parseValidation accepts yes/no alongside the usual bool spellings.
func parseValidation(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y":
		return true, nil
	case "no", "n", "":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid validation value %q (want yes or no)", v)
	}
	return b, nil
}

func serveMetrics(registry *prometheus.Registry, port int, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	addr := fmt.Sprintf(":%d", port)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics listener stopped", slog.Any("error", err))
	}
}
