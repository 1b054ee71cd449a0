// Package repository stages and applies the writes computed by an import
// run. Every write for a run is collected in a Batch and applied as one
// atomic unit; a constraint violation on any table rolls the whole run
// back, so readers never observe a partial import.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/consumer"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/import/reconciler"
)

// ReadingInsert is one staged consumption row.
type ReadingInsert struct {
	ConsumerID string
	MeasuredAt time.Time
	Amount     decimal.Decimal
}

// StatusChange is one staged consumer status transition.
type StatusChange struct {
	ConsumerID string
	Status     consumer.Status
}

// Batch holds every write staged for one import run.
type Batch struct {
	NewConsumers     []consumer.Consumer
	StatusChanges    []StatusChange
	ContractClosures []reconciler.ContractClosure
	ContractOpenings []consumer.Contract
	Readings         []ReadingInsert
}

// Empty reports whether the batch stages no writes at all.
func (b *Batch) Empty() bool {
	return len(b.NewConsumers) == 0 &&
		len(b.StatusChanges) == 0 &&
		len(b.ContractClosures) == 0 &&
		len(b.ContractOpenings) == 0 &&
		len(b.Readings) == 0
}

// ImportJob is the bookkeeping row for one run.
type ImportJob struct {
	ID           uuid.UUID
	Mode         string
	Status       string
	RowsTotal    int
	RowsImported int
	RowsFailed   int
	Error        *string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// Store is the persistence boundary of the import pipeline. The postgres
// implementation backs production runs; a memory implementation keeps the
// reconciliation logic testable without a live database.
type Store interface {
	// Snapshot loads the persisted state the roster is reconciled against.
	Snapshot(ctx context.Context) (reconciler.State, error)
	// ExistingTimestamps returns the already-persisted measurement times
	// for a consumer within [from, to], keyed by Unix seconds.
	ExistingTimestamps(ctx context.Context, consumerID string, from, to time.Time) (map[int64]struct{}, error)
	// Apply executes the whole batch atomically.
	Apply(ctx context.Context, batch *Batch) error

	CreateJob(ctx context.Context, job *ImportJob) error
	FinishJob(ctx context.Context, id uuid.UUID, status string, imported, failed int, errMsg *string) error
}
