package catalog

import (
	"context"
	"fmt"

	"github.com/FACorreiaa/smart-energy-dashboard/pkg/db"
)

// Repository reads the master lookup tables.
type Repository struct {
	db db.Querier
}

// NewRepository creates a catalog repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// LoadLookup reads both master tables and returns a lookup for the run.
func (r *Repository) LoadLookup(ctx context.Context) (*Lookup, error) {
	rows, err := r.db.Query(ctx, `SELECT id, area_name FROM areas ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load areas: %w", err)
	}
	defer rows.Close()

	var areas []Area
	for rows.Next() {
		var a Area
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	planRows, err := r.db.Query(ctx, `SELECT id, plan_name FROM tariff_plans ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load tariff plans: %w", err)
	}
	defer planRows.Close()

	var plans []TariffPlan
	for planRows.Next() {
		var p TariffPlan
		if err := planRows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if err := planRows.Err(); err != nil {
		return nil, err
	}

	return NewLookup(areas, plans), nil
}
