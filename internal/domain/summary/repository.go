// Package summary builds the dashboard views: the fleet-wide consumption
// chart, the per-consumer table and the time-band averages, plus an
// Excel export of the three.
package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-energy-dashboard/pkg/db"
)

// ChartPoint is the fleet-wide consumption at one measurement instant.
type ChartPoint struct {
	MeasuredAt time.Time
	Total      decimal.Decimal
	Average    decimal.Decimal
}

// TableRow is one consumer's line in the dashboard table, with the
// area and tariff of its open contract.
type TableRow struct {
	ConsumerID string
	Area       string
	Tariff     string
	Average    decimal.Decimal
}

// SeriesPoint is one reading in a single consumer's chart.
type SeriesPoint struct {
	MeasuredAt time.Time
	Amount     decimal.Decimal
}

// Repository runs the dashboard queries.
type Repository struct {
	db db.Querier
}

// NewRepository creates the summary repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// ChartPoints sums and averages consumption across all consumers per
// measurement instant in [from, to).
func (r *Repository) ChartPoints(ctx context.Context, from, to time.Time) ([]ChartPoint, error) {
	rows, err := r.db.Query(ctx, `
		SELECT measured_at, SUM(amount), AVG(amount)
		FROM consumption_readings
		WHERE measured_at >= $1 AND measured_at < $2
		GROUP BY measured_at
		ORDER BY measured_at
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("chart points: %w", err)
	}
	defer rows.Close()

	var out []ChartPoint
	for rows.Next() {
		var p ChartPoint
		if err := rows.Scan(&p.MeasuredAt, &p.Total, &p.Average); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TableRows lists active consumers with their open contract's area and
// tariff names and their average consumption over [from, to). Consumers
// with no readings in the window average zero.
func (r *Repository) TableRows(ctx context.Context, from, to time.Time) ([]TableRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, a.area_name, t.plan_name, COALESCE(AVG(cr.amount), 0)
		FROM consumers c
		JOIN contract_history ch ON ch.consumer_id = c.id AND ch.end_at IS NULL
		JOIN areas a ON a.id = ch.area_id
		JOIN tariff_plans t ON t.id = ch.tariff_plan_id
		LEFT JOIN consumption_readings cr
			ON cr.consumer_id = c.id AND cr.measured_at >= $1 AND cr.measured_at < $2
		WHERE c.status <> 'withdrawn'
		GROUP BY c.id, a.area_name, t.plan_name
		ORDER BY c.id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("table rows: %w", err)
	}
	defer rows.Close()

	var out []TableRow
	for rows.Next() {
		var row TableRow
		if err := rows.Scan(&row.ConsumerID, &row.Area, &row.Tariff, &row.Average); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ConsumerSeries lists one consumer's readings in [from, to).
func (r *Repository) ConsumerSeries(ctx context.Context, consumerID string, from, to time.Time) ([]SeriesPoint, error) {
	rows, err := r.db.Query(ctx, `
		SELECT measured_at, amount
		FROM consumption_readings
		WHERE consumer_id = $1 AND measured_at >= $2 AND measured_at < $3
		ORDER BY measured_at
	`, consumerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("consumer series for %s: %w", consumerID, err)
	}
	defer rows.Close()

	var out []SeriesPoint
	for rows.Next() {
		var p SeriesPoint
		if err := rows.Scan(&p.MeasuredAt, &p.Amount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
