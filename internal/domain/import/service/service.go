// Package service orchestrates an import run: read the roster and the
// per-consumer consumption files, normalize them, reconcile against the
// persisted state and apply every resulting write as one atomic batch.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/catalog"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/consumer"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/import/normalizer"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/import/parser"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/import/reconciler"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/import/repository"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/observability/metrics"
)

// ErrRosterMissing aborts the run: without the roster there is nothing
// to reconcile against. Missing individual consumption files are only
// warnings.
var ErrRosterMissing = errors.New("roster file missing")

// CatalogLoader provides the per-run master-data lookup.
type CatalogLoader interface {
	LoadLookup(ctx context.Context) (*catalog.Lookup, error)
}

// Service runs the import pipeline.
type Service struct {
	store   repository.Store
	catalog CatalogLoader
	logger  *slog.Logger
	metrics *metrics.ImportMetrics
	loc     *time.Location
	gapFill bool
	gapStep time.Duration
}

// NewService creates an import service. The default location is UTC and
// gap filling is off until enabled.
func NewService(store repository.Store, catalogLoader CatalogLoader, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		catalog: catalogLoader,
		logger:  logger,
		loc:     time.UTC,
		gapStep: 30 * time.Minute,
	}
}

// WithMetrics adds Prometheus instrumentation.
func (s *Service) WithMetrics(m *metrics.ImportMetrics) *Service {
	s.metrics = m
	return s
}

// WithLocation sets the timezone the naive CSV datetimes belong to.
func (s *Service) WithLocation(loc *time.Location) *Service {
	if loc != nil {
		s.loc = loc
	}
	return s
}

// WithGapFill enables forward filling of missing measurement slots.
func (s *Service) WithGapFill(step time.Duration) *Service {
	s.gapFill = true
	if step > 0 {
		s.gapStep = step
	}
	return s
}

// RunOptions selects the behavior of one run.
type RunOptions struct {
	DataDir      string
	Mode         normalizer.Policy
	ValidateOnly bool
}

// RunResult summarizes one run.
type RunResult struct {
	JobID            uuid.UUID
	ConsumersCreated int
	Withdrawn        int
	Reactivated      int
	ContractsOpened  int
	ContractsClosed  int
	ReadingsImported int
	ReadingsSkipped  int
	RowsFailed       int
	Issues           []string
}

// Run executes one import. Row-level problems are recovered locally and
// reported in the result; anything failing at or after the write phase
// aborts the whole run with no partial state.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	started := time.Now()
	result := &RunResult{}

	run := func() error {
		roster, err := s.loadRoster(opts, result)
		if err != nil {
			return err
		}

		var lookup *catalog.Lookup
		if err := s.step("load master lookup", func() error {
			lookup, err = s.catalog.LoadLookup(ctx)
			return err
		}); err != nil {
			return err
		}

		var state reconciler.State
		if err := s.step("load persisted state", func() error {
			state, err = s.store.Snapshot(ctx)
			return err
		}); err != nil {
			return err
		}

		now := time.Now().In(s.loc)
		var plan reconciler.Plan
		if err := s.step("reconcile roster", func() error {
			plan = reconciler.Build(roster, state, lookup, now)
			for _, issue := range plan.Issues {
				s.logger.Warn("roster row skipped", "line", issue.Line, "consumer", issue.ConsumerID, "reason", issue.Reason)
				result.Issues = append(result.Issues, issue.String())
				result.RowsFailed++
			}
			return nil
		}); err != nil {
			return err
		}

		readings, err := s.loadReadings(ctx, opts, roster, state, plan, result)
		if err != nil {
			return err
		}

		result.ConsumersCreated = len(plan.NewConsumers)
		result.Withdrawn = len(plan.Withdrawals)
		result.Reactivated = len(plan.Reactivations)
		result.ContractsOpened = len(plan.ContractOpenings)
		result.ContractsClosed = len(plan.ContractClosures)
		result.ReadingsImported = len(readings)

		if opts.ValidateOnly {
			s.logger.Info("validation run, nothing written",
				"consumers_new", result.ConsumersCreated,
				"withdrawals", result.Withdrawn,
				"readings", result.ReadingsImported,
				"rows_failed", result.RowsFailed,
			)
			return nil
		}

		return s.commit(ctx, opts, plan, readings, result)
	}

	err := run()
	if s.metrics != nil {
		s.metrics.RunDuration.Observe(time.Since(started).Seconds())
		status := "succeeded"
		if err != nil {
			status = "failed"
		}
		if opts.ValidateOnly {
			status = "validated"
		}
		s.metrics.Runs.WithLabelValues(status).Inc()
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// loadRoster parses and normalizes user_data.csv. A missing roster is fatal.
func (s *Service) loadRoster(opts RunOptions, result *RunResult) ([]parser.RosterEntry, error) {
	var entries []parser.RosterEntry

	err := s.step("read roster", func() error {
		path := filepath.Join(opts.DataDir, "user_data.csv")
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%s: %w", path, ErrRosterMissing)
			}
			return fmt.Errorf("open roster: %w", err)
		}
		defer f.Close()

		parsed, err := parser.ParseRoster(f)
		if err != nil {
			return err
		}
		for _, rowErr := range parsed.Errors {
			s.logger.Warn("roster row dropped", "line", rowErr.Line, "field", rowErr.Field, "reason", rowErr.Message)
			result.Issues = append(result.Issues, "roster: "+rowErr.Error())
			result.RowsFailed++
		}

		deduped, conflicts, err := normalizer.DedupeRoster(parsed.Entries, opts.Mode)
		for _, c := range conflicts {
			s.logger.Warn("duplicate roster id", "id", c.Key, "lines", c.Lines, "policy", string(opts.Mode))
		}
		if err != nil {
			return err
		}
		entries = deduped
		return nil
	})
	return entries, err
}

// loadReadings parses, normalizes and stages the consumption files for
// every roster consumer that exists or is being created this run.
func (s *Service) loadReadings(
	ctx context.Context,
	opts RunOptions,
	roster []parser.RosterEntry,
	state reconciler.State,
	plan reconciler.Plan,
	result *RunResult,
) ([]repository.ReadingInsert, error) {
	var staged []repository.ReadingInsert

	creating := make(map[string]struct{}, len(plan.NewConsumers))
	for _, c := range plan.NewConsumers {
		creating[c.ID] = struct{}{}
	}

	err := s.step("read consumption files", func() error {
		dir := filepath.Join(opts.DataDir, "consumption")
		rosterIDs := make(map[string]struct{}, len(roster))

		for _, entry := range roster {
			rosterIDs[entry.ID] = struct{}{}

			_, exists := state.Consumers[entry.ID]
			if _, isNew := creating[entry.ID]; !exists && !isNew {
				continue // row was skipped during reconciliation and the consumer is unknown
			}

			rows, err := s.readConsumerFile(ctx, dir, entry.ID, opts, result)
			if err != nil {
				return err
			}
			staged = append(staged, rows...)
		}

		s.warnUnregisteredFiles(dir, rosterIDs)
		return nil
	})
	return staged, err
}

// readConsumerFile handles one consumption/<id>.csv. Missing or
// unparsable files are skipped with a warning, only roster-present
// consumers with readable files contribute readings; a sum-policy
// conflict on a non-numeric target cannot occur here since the value
// column is numeric.
func (s *Service) readConsumerFile(ctx context.Context, dir, consumerID string, opts RunOptions, result *RunResult) ([]repository.ReadingInsert, error) {
	path := filepath.Join(dir, consumerID+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("consumption file missing, skipped", "consumer", consumerID, "path", path)
			result.Issues = append(result.Issues, fmt.Sprintf("consumer %s: consumption file missing", consumerID))
			return nil, nil
		}
		return nil, fmt.Errorf("open consumption file for %s: %w", consumerID, err)
	}
	defer f.Close()

	parsed, err := parser.ParseReadings(f, s.loc)
	if err != nil {
		// File-level parse failure (empty file, broken header). Treat it
		// like a missing file: the consumer stays registered, the run
		// continues.
		s.logger.Warn("consumption file unparsable, skipped", "consumer", consumerID, "path", path, "error", err)
		result.Issues = append(result.Issues, fmt.Sprintf("consumer %s: %v", consumerID, err))
		return nil, nil
	}
	if s.metrics != nil {
		s.metrics.RowsParsed.Add(float64(len(parsed.Readings) + len(parsed.Errors)))
	}
	for _, rowErr := range parsed.Errors {
		s.logger.Warn("consumption row dropped", "consumer", consumerID, "line", rowErr.Line, "field", rowErr.Field, "reason", rowErr.Message)
		result.Issues = append(result.Issues, fmt.Sprintf("%s.csv: %s", consumerID, rowErr.Error()))
		result.RowsFailed++
	}

	deduped, conflicts, err := normalizer.DedupeReadings(parsed.Readings, opts.Mode)
	if err != nil {
		return nil, fmt.Errorf("consumer %s: %w", consumerID, err)
	}
	for _, c := range conflicts {
		s.logger.Warn("duplicate timestamp", "consumer", consumerID, "timestamp", c.Key, "lines", c.Lines, "policy", string(opts.Mode))
	}
	if len(deduped) == 0 {
		return nil, nil
	}

	if s.gapFill {
		deduped = normalizer.FillGaps(deduped, s.gapStep)
	}

	// Incremental upsert: only timestamps not yet persisted are staged, so
	// re-importing unchanged files is a state no-op.
	existing, err := s.store.ExistingTimestamps(ctx, consumerID,
		deduped[0].MeasuredAt, deduped[len(deduped)-1].MeasuredAt)
	if err != nil {
		return nil, err
	}

	out := make([]repository.ReadingInsert, 0, len(deduped))
	for _, r := range deduped {
		if _, dup := existing[r.MeasuredAt.Unix()]; dup {
			result.ReadingsSkipped++
			continue
		}
		out = append(out, repository.ReadingInsert{
			ConsumerID: consumerID,
			MeasuredAt: r.MeasuredAt,
			Amount:     r.Amount,
		})
	}
	return out, nil
}

// warnUnregisteredFiles reports consumption files whose stem is not on
// the roster.
func (s *Service) warnUnregisteredFiles(dir string, rosterIDs map[string]struct{}) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cannot list consumption directory", "dir", dir, "error", err)
		}
		return
	}
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		id := strings.TrimSuffix(name, ".csv")
		if _, ok := rosterIDs[id]; !ok {
			s.logger.Warn("consumption file for unregistered consumer, skipped", "consumer", id)
		}
	}
}

// commit stages the plan and readings into one batch and applies it.
func (s *Service) commit(ctx context.Context, opts RunOptions, plan reconciler.Plan, readings []repository.ReadingInsert, result *RunResult) error {
	batch := &repository.Batch{
		NewConsumers:     plan.NewConsumers,
		ContractClosures: plan.ContractClosures,
		ContractOpenings: plan.ContractOpenings,
		Readings:         readings,
	}
	for _, id := range plan.Withdrawals {
		batch.StatusChanges = append(batch.StatusChanges, repository.StatusChange{ConsumerID: id, Status: consumer.StatusWithdrawn})
	}
	for _, id := range plan.Reactivations {
		batch.StatusChanges = append(batch.StatusChanges, repository.StatusChange{ConsumerID: id, Status: consumer.StatusContinuing})
	}

	job := &repository.ImportJob{Mode: string(opts.Mode), RowsTotal: len(readings) + result.RowsFailed}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return err
	}
	result.JobID = job.ID

	applyErr := s.step("apply batch", func() error {
		return s.store.Apply(ctx, batch)
	})
	if applyErr != nil {
		msg := applyErr.Error()
		if err := s.store.FinishJob(ctx, job.ID, "failed", 0, result.RowsFailed, &msg); err != nil {
			s.logger.Warn("failed to finish import job", "error", err)
		}
		return fmt.Errorf("apply import batch: %w", applyErr)
	}

	if s.metrics != nil {
		s.metrics.RowsImported.Add(float64(len(readings)))
		s.metrics.RowsFailed.Add(float64(result.RowsFailed))
	}
	if err := s.store.FinishJob(ctx, job.ID, "succeeded", len(readings), result.RowsFailed, nil); err != nil {
		s.logger.Warn("failed to finish import job", "error", err)
	}
	return nil
}

// step wraps a phase with the start/end banner the operators grep for.
func (s *Service) step(name string, fn func() error) error {
	s.logger.Info("step started", "step", name)
	if err := fn(); err != nil {
		s.logger.Error("step failed", "step", name, "error", err)
		return err
	}
	s.logger.Info("step finished", "step", name)
	return nil
}
