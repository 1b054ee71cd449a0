package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/smart-energy-dashboard/pkg/db"
)

// ErrNotFound is returned when a consumer id is unknown.
var ErrNotFound = errors.New("consumer not found")

// Repository reads consumers and their contract history.
type Repository struct {
	db db.Querier
}

// NewRepository creates a consumer repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// Get returns one consumer by external id.
func (r *Repository) Get(ctx context.Context, id string) (*Consumer, error) {
	var c Consumer
	err := r.db.QueryRow(ctx, `
		SELECT id, status, created_at, updated_at
		FROM consumers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get consumer %s: %w", id, err)
	}
	return &c, nil
}

// List returns consumers ordered by id, paginated.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Consumer, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, status, created_at, updated_at
		FROM consumers
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list consumers: %w", err)
	}
	defer rows.Close()

	var out []Consumer
	for rows.Next() {
		var c Consumer
		if err := rows.Scan(&c.ID, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Contracts returns the full contract history for a consumer, oldest first.
func (r *Repository) Contracts(ctx context.Context, consumerID string) ([]Contract, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, consumer_id, area_id, tariff_plan_id, start_at, end_at
		FROM contract_history
		WHERE consumer_id = $1
		ORDER BY start_at
	`, consumerID)
	if err != nil {
		return nil, fmt.Errorf("list contracts for %s: %w", consumerID, err)
	}
	defer rows.Close()

	var out []Contract
	for rows.Next() {
		var c Contract
		var endAt *time.Time
		if err := rows.Scan(&c.ID, &c.ConsumerID, &c.AreaID, &c.TariffPlanID, &c.StartAt, &endAt); err != nil {
			return nil, err
		}
		c.EndAt = endAt
		out = append(out, c)
	}
	return out, rows.Err()
}
