package aggregation

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/smart-energy-dashboard/pkg/db"
)

// PostgresRepository implements Repository on a pgx pool.
type PostgresRepository struct {
	db db.Querier
}

// NewPostgresRepository creates the production aggregation repository.
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{db: q}
}

// WindowReadings loads every reading measured in [from, to).
func (r *PostgresRepository) WindowReadings(ctx context.Context, from, to time.Time) ([]WindowReading, error) {
	rows, err := r.db.Query(ctx, `
		SELECT cr.consumer_id, COALESCE(a.area_name, ''), cr.measured_at, cr.amount
		FROM consumption_readings cr
		LEFT JOIN contract_history ch ON ch.consumer_id = cr.consumer_id AND ch.end_at IS NULL
		LEFT JOIN areas a ON a.id = ch.area_id
		WHERE cr.measured_at >= $1 AND cr.measured_at < $2
		ORDER BY cr.consumer_id, cr.measured_at
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("window readings: %w", err)
	}
	defer rows.Close()

	var out []WindowReading
	for rows.Next() {
		var wr WindowReading
		if err := rows.Scan(&wr.ConsumerID, &wr.Area, &wr.MeasuredAt, &wr.Amount); err != nil {
			return nil, err
		}
		out = append(out, wr)
	}
	return out, rows.Err()
}

// ReplaceDaily deletes and reinserts the daily rollups of the window in
// one transaction, so readers never see a half-refreshed table.
func (r *PostgresRepository) ReplaceDaily(ctx context.Context, from, to time.Time, rollups []DailyRollup) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin daily rollup refresh: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM daily_rollups WHERE day >= $1 AND day < $2`, from, to); err != nil {
		return fmt.Errorf("clear daily rollups: %w", err)
	}
	if len(rollups) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"daily_rollups"},
			[]string{"consumer_id", "day", "total", "average"},
			pgx.CopyFromSlice(len(rollups), func(i int) ([]any, error) {
				d := rollups[i]
				return []any{d.ConsumerID, d.Day, d.Total, d.Average}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy daily rollups: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// ReplaceMonthly deletes and reinserts the monthly rollups of the window
// in one transaction.
func (r *PostgresRepository) ReplaceMonthly(ctx context.Context, from, to time.Time, rollups []MonthlyRollup) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin monthly rollup refresh: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM monthly_rollups WHERE month >= $1 AND month < $2`, from, to); err != nil {
		return fmt.Errorf("clear monthly rollups: %w", err)
	}
	if len(rollups) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"monthly_rollups"},
			[]string{"consumer_id", "month", "total", "average"},
			pgx.CopyFromSlice(len(rollups), func(i int) ([]any, error) {
				m := rollups[i]
				return []any{m.ConsumerID, m.Month, m.Total, m.Average}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy monthly rollups: %w", err)
		}
	}
	return tx.Commit(ctx)
}
