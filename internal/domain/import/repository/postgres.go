package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/consumer"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/import/reconciler"
	"github.com/FACorreiaa/smart-energy-dashboard/pkg/db"
)

const defaultChunkSize = 1000

// Postgres implements Store on a pgx pool.
type Postgres struct {
	db        db.Querier
	chunkSize int
}

// NewPostgres creates the production store. chunkSize bounds the number
// of statements queued per pgx batch; zero means the default of 1000.
func NewPostgres(q db.Querier, chunkSize int) *Postgres {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Postgres{db: q, chunkSize: chunkSize}
}

// Snapshot loads all consumers and their contract history keys.
func (p *Postgres) Snapshot(ctx context.Context) (reconciler.State, error) {
	st := reconciler.State{
		Consumers:     make(map[string]consumer.Consumer),
		OpenContracts: make(map[string]consumer.Contract),
		ContractKeys:  make(map[string]map[reconciler.ContractKey]struct{}),
	}

	rows, err := p.db.Query(ctx, `
		SELECT id, status, created_at, updated_at
		FROM consumers
	`)
	if err != nil {
		return st, fmt.Errorf("snapshot consumers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c consumer.Consumer
		if err := rows.Scan(&c.ID, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return st, err
		}
		st.Consumers[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	contractRows, err := p.db.Query(ctx, `
		SELECT id, consumer_id, area_id, tariff_plan_id, start_at, end_at
		FROM contract_history
	`)
	if err != nil {
		return st, fmt.Errorf("snapshot contracts: %w", err)
	}
	defer contractRows.Close()
	for contractRows.Next() {
		var c consumer.Contract
		var endAt *time.Time
		if err := contractRows.Scan(&c.ID, &c.ConsumerID, &c.AreaID, &c.TariffPlanID, &c.StartAt, &endAt); err != nil {
			return st, err
		}
		c.EndAt = endAt

		key := reconciler.ContractKey{AreaID: c.AreaID, TariffPlanID: c.TariffPlanID}
		if st.ContractKeys[c.ConsumerID] == nil {
			st.ContractKeys[c.ConsumerID] = make(map[reconciler.ContractKey]struct{})
		}
		st.ContractKeys[c.ConsumerID][key] = struct{}{}
		if c.Open() {
			st.OpenContracts[c.ConsumerID] = c
		}
	}
	return st, contractRows.Err()
}

// ExistingTimestamps lists persisted measurement times for one consumer.
func (p *Postgres) ExistingTimestamps(ctx context.Context, consumerID string, from, to time.Time) (map[int64]struct{}, error) {
	rows, err := p.db.Query(ctx, `
		SELECT measured_at
		FROM consumption_readings
		WHERE consumer_id = $1 AND measured_at BETWEEN $2 AND $3
	`, consumerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("existing timestamps for %s: %w", consumerID, err)
	}
	defer rows.Close()

	out := make(map[int64]struct{})
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out[t.Unix()] = struct{}{}
	}
	return out, rows.Err()
}

// Apply writes the whole batch in one transaction. Consumer rows and
// contract changes go through chunked pgx batches; readings use CopyFrom.
func (p *Postgres) Apply(ctx context.Context, batch *Batch) error {
	if batch.Empty() {
		return nil
	}

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin import transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := p.applyConsumers(ctx, tx, batch); err != nil {
		return err
	}
	if err := p.applyContracts(ctx, tx, batch); err != nil {
		return err
	}
	if err := p.applyReadings(ctx, tx, batch.Readings); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit import transaction: %w", err)
	}
	return nil
}

func (p *Postgres) applyConsumers(ctx context.Context, tx pgx.Tx, batch *Batch) error {
	for chunk := range chunks(batch.NewConsumers, p.chunkSize) {
		b := &pgx.Batch{}
		for _, c := range chunk {
			b.Queue(`INSERT INTO consumers (id, status) VALUES ($1, $2)`, c.ID, c.Status)
		}
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("insert consumers: %w", err)
		}
	}

	for chunk := range chunks(batch.StatusChanges, p.chunkSize) {
		b := &pgx.Batch{}
		for _, sc := range chunk {
			b.Queue(`UPDATE consumers SET status = $1, updated_at = now() WHERE id = $2`, sc.Status, sc.ConsumerID)
		}
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("update consumer statuses: %w", err)
		}
	}
	return nil
}

func (p *Postgres) applyContracts(ctx context.Context, tx pgx.Tx, batch *Batch) error {
	for chunk := range chunks(batch.ContractClosures, p.chunkSize) {
		b := &pgx.Batch{}
		for _, cc := range chunk {
			b.Queue(`UPDATE contract_history SET end_at = $1 WHERE id = $2 AND end_at IS NULL`, cc.EndAt, cc.ContractID)
		}
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("close contracts: %w", err)
		}
	}

	for chunk := range chunks(batch.ContractOpenings, p.chunkSize) {
		b := &pgx.Batch{}
		for _, c := range chunk {
			b.Queue(`
				INSERT INTO contract_history (consumer_id, area_id, tariff_plan_id, start_at)
				VALUES ($1, $2, $3, $4)
			`, c.ConsumerID, c.AreaID, c.TariffPlanID, c.StartAt)
		}
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("open contracts: %w", err)
		}
	}
	return nil
}

func (p *Postgres) applyReadings(ctx context.Context, tx pgx.Tx, readings []ReadingInsert) error {
	if len(readings) == 0 {
		return nil
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"consumption_readings"},
		[]string{"consumer_id", "measured_at", "amount"},
		pgx.CopyFromSlice(len(readings), func(i int) ([]any, error) {
			r := readings[i]
			return []any{r.ConsumerID, r.MeasuredAt, r.Amount}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy readings: %w", err)
	}
	return nil
}

// CreateJob inserts the bookkeeping row for a run.
func (p *Postgres) CreateJob(ctx context.Context, job *ImportJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	_, err := p.db.Exec(ctx, `
		INSERT INTO import_jobs (id, mode, status, rows_total)
		VALUES ($1, $2, 'running', $3)
	`, job.ID, job.Mode, job.RowsTotal)
	if err != nil {
		return fmt.Errorf("create import job: %w", err)
	}
	job.Status = "running"
	return nil
}

// FinishJob records the terminal status of a run.
func (p *Postgres) FinishJob(ctx context.Context, id uuid.UUID, status string, imported, failed int, errMsg *string) error {
	_, err := p.db.Exec(ctx, `
		UPDATE import_jobs
		SET status = $1, rows_imported = $2, rows_failed = $3, error = $4, finished_at = now()
		WHERE id = $5
	`, status, imported, failed, errMsg, id)
	if err != nil {
		return fmt.Errorf("finish import job: %w", err)
	}
	return nil
}

// chunks yields slices of at most size elements.
func chunks[T any](s []T, size int) func(func([]T) bool) {
	return func(yield func([]T) bool) {
		for start := 0; start < len(s); start += size {
			end := start + size
			if end > len(s) {
				end = len(s)
			}
			if !yield(s[start:end]) {
				return
			}
		}
	}
}
