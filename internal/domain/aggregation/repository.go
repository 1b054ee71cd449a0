package aggregation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// WindowReading is one raw reading inside an aggregation window. Area is
// the area code of the consumer's open contract, empty when none is open.
type WindowReading struct {
	ConsumerID string
	Area       string
	MeasuredAt time.Time
	Amount     decimal.Decimal
}

// DailyRollup is one consumer-day aggregate.
type DailyRollup struct {
	ConsumerID string
	Day        time.Time
	Total      decimal.Decimal
	Average    decimal.Decimal
}

// MonthlyRollup is one consumer-month aggregate; Month is the first of
// the month.
type MonthlyRollup struct {
	ConsumerID string
	Month      time.Time
	Total      decimal.Decimal
	Average    decimal.Decimal
}

// Repository is the storage boundary of the aggregation job.
type Repository interface {
	// WindowReadings streams every reading with measured_at in [from, to).
	WindowReadings(ctx context.Context, from, to time.Time) ([]WindowReading, error)
	// ReplaceDaily atomically swaps the daily rollups for days in [from, to).
	ReplaceDaily(ctx context.Context, from, to time.Time, rollups []DailyRollup) error
	// ReplaceMonthly atomically swaps the monthly rollups for months in [from, to).
	ReplaceMonthly(ctx context.Context, from, to time.Time, rollups []MonthlyRollup) error
}
