// Package consumer holds the consumer and contract-history model.
package consumer

import "time"

// Status is the lifecycle state of a consumer.
type Status string

const (
	StatusContinuing Status = "continuing"
	StatusStopped    Status = "stopped"
	StatusWithdrawn  Status = "withdrawn"
)

// Consumer is a tracked electricity consumer. The external id is stable
// and immutable once created; withdrawal is a status transition, never a
// deletion.
type Consumer struct {
	ID        string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contract is one contract-history period: the span during which a
// consumer had a fixed (area, tariff plan) pairing. EndAt is nil for the
// currently open period; a consumer has at most one open period.
type Contract struct {
	ID           int64
	ConsumerID   string
	AreaID       int32
	TariffPlanID int32
	StartAt      time.Time
	EndAt        *time.Time
}

// Open reports whether the contract period is still current.
func (c Contract) Open() bool {
	return c.EndAt == nil
}
