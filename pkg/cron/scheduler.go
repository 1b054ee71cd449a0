// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/aggregation"
)

// Scheduler runs the nightly rollup refresh using robfig/cron.
type Scheduler struct {
	cron    *cron.Cron
	rollups *aggregation.Service
	logger  *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(rollups *aggregation.Service, logger *slog.Logger) *Scheduler {
	// Standard 5-field format, no seconds.
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:    c,
		rollups: rollups,
		logger:  logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	// Rollup refresh: runs daily at 3:00 AM, after the overnight import.
	_, err := s.cron.AddFunc("0 3 * * *", s.refreshRollups)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the rollup refresh (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.refreshRollups()
}

// refreshRollups recomputes rollups for the most recent full month.
func (s *Scheduler) refreshRollups() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	from, to := s.rollups.LatestFullMonth(time.Now())
	if err := s.rollups.Refresh(ctx, from, to); err != nil {
		s.logger.Error("rollup refresh failed", slog.Any("error", err))
		return
	}
	s.logger.Info("rollup refresh completed", slog.Time("from", from), slog.Time("to", to))
}
