// Command aggregator refreshes the daily and monthly rollups and can
// export the dashboard views to an xlsx workbook. With --schedule it
// stays resident and re-runs the refresh nightly.
//
// Usage:
//
//	aggregator [--month 2016-07] [--export dashboard.xlsx] [--schedule]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/aggregation"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/catalog"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/consumer"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/summary"
	"github.com/FACorreiaa/smart-energy-dashboard/pkg/config"
	"github.com/FACorreiaa/smart-energy-dashboard/pkg/cron"
	"github.com/FACorreiaa/smart-energy-dashboard/pkg/db"
)

func main() {
	var (
		month      string
		exportPath string
		consumerID string
		schedule   bool
	)
	flag.StringVar(&month, "month", "", "window to aggregate as YYYY-MM (default: most recent full month)")
	flag.StringVar(&exportPath, "export", "", "write the dashboard views to this xlsx file")
	flag.StringVar(&consumerID, "consumer", "", "print one consumer's contracts and chart instead of refreshing")
	flag.BoolVar(&schedule, "schedule", false, "stay resident and refresh rollups nightly")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(month, exportPath, consumerID, schedule, logger); err != nil {
		logger.Error("aggregation failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(month, exportPath, consumerID string, schedule bool, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if month == "" {
		month = cfg.Summary.Month
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

	loc := cfg.Data.Location()
	cal := aggregation.NewCalendar()
	if cfg.Summary.HolidayFile != "" {
		cal, err = aggregation.LoadCalendarFile(cfg.Summary.HolidayFile)
		if err != nil {
			return err
		}
	}

	rollups := aggregation.NewService(
		aggregation.NewPostgresRepository(database.Pool),
		logger, loc, cal, cfg.Summary.CacheTTL,
	)

	if schedule {
		scheduler := cron.NewScheduler(rollups, logger)
		if err := scheduler.Start(); err != nil {
			return err
		}
		scheduler.RunNow()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		<-scheduler.Stop().Done()
		return nil
	}

	from, to, err := rollups.ResolveWindow(month, time.Now())
	if err != nil {
		return err
	}

	if consumerID != "" {
		return inspectConsumer(ctx, database, rollups, consumerID, from, to, loc, logger)
	}

	if err := rollups.Refresh(ctx, from, to); err != nil {
		return err
	}

	if exportPath != "" {
		views := summary.NewService(summary.NewRepository(database.Pool), rollups, logger, loc)
		if err := views.ExportWorkbook(ctx, from, to, exportPath); err != nil {
			return err
		}
	}
	return nil
}

// inspectConsumer prints one consumer's status, contract history and
// chart for the window to stdout.
func inspectConsumer(ctx context.Context, database *db.DB, rollups *aggregation.Service, id string, from, to time.Time, loc *time.Location, logger *slog.Logger) error {
	consumers := consumer.NewRepository(database.Pool)
	c, err := consumers.Get(ctx, id)
	if err != nil {
		return err
	}
	contracts, err := consumers.Contracts(ctx, id)
	if err != nil {
		return err
	}
	lookup, err := catalog.NewRepository(database.Pool).LoadLookup(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("consumer %s (%s)\n", c.ID, c.Status)
	for _, ct := range contracts {
		end := "open"
		if ct.EndAt != nil {
			end = ct.EndAt.In(loc).Format("2006-01-02")
		}
		fmt.Printf("  %s / %s  %s .. %s\n",
			lookup.AreaName(ct.AreaID), lookup.TariffPlanName(ct.TariffPlanID),
			ct.StartAt.In(loc).Format("2006-01-02"), end)
	}

	views := summary.NewService(summary.NewRepository(database.Pool), rollups, logger, loc)
	chart, err := views.UserChartData(ctx, id, from, to)
	if err != nil {
		return err
	}
	for i := range chart.Labels {
		fmt.Printf("  %s  %s\n", chart.Labels[i], chart.Amounts[i])
	}
	return nil
}
