package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-energy-dashboard/internal/observability/metrics"
)

var ten = decimal.NewFromInt(10)

// FloorTenth truncates a value down to one decimal place. Rollup
// averages are stored and displayed this way, so a day averaging 131.29
// reads 131.2, never 131.3.
func FloorTenth(d decimal.Decimal) decimal.Decimal {
	return d.Mul(ten).Floor().Div(ten)
}

// BandAverage is the mean consumption of one (area, day-type, band)
// bucket.
type BandAverage struct {
	Area    string
	Band    TimeBand
	Holiday bool
	Average decimal.Decimal
}

// Service computes rollups and the cached band summary.
type Service struct {
	repo    Repository
	logger  *slog.Logger
	metrics *metrics.ImportMetrics
	loc     *time.Location
	cal     *Calendar
	cache   *Cache[[]BandAverage]
}

// NewService creates an aggregation service. cacheTTL bounds how stale
// a served band summary can be.
func NewService(repo Repository, logger *slog.Logger, loc *time.Location, cal *Calendar, cacheTTL time.Duration) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if cal == nil {
		cal = NewCalendar()
	}
	return &Service{
		repo:   repo,
		logger: logger,
		loc:    loc,
		cal:    cal,
		cache:  NewCache[[]BandAverage](cacheTTL),
	}
}

// WithMetrics adds Prometheus instrumentation.
func (s *Service) WithMetrics(m *metrics.ImportMetrics) *Service {
	s.metrics = m
	return s
}

// MonthWindow returns [first of month, first of next month) for a
// "YYYY-MM" value in the service location.
func (s *Service) MonthWindow(month string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01", month, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q (want YYYY-MM)", month)
	}
	return t, t.AddDate(0, 1, 0), nil
}

// LatestFullMonth returns the window of the most recent calendar month
// that has fully elapsed before now.
func (s *Service) LatestFullMonth(now time.Time) (time.Time, time.Time) {
	local := now.In(s.loc)
	to := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, s.loc)
	return to.AddDate(0, -1, 0), to
}

// ResolveWindow picks the summary window: the "YYYY-MM" month when one
// is configured, otherwise the most recent full calendar month before
// now.
func (s *Service) ResolveWindow(month string, now time.Time) (time.Time, time.Time, error) {
	if month != "" {
		return s.MonthWindow(month)
	}
	from, to := s.LatestFullMonth(now)
	return from, to, nil
}

// Refresh recomputes the daily and monthly rollups for [from, to) and
// invalidates the band summary cache.
func (s *Service) Refresh(ctx context.Context, from, to time.Time) error {
	s.logger.Info("rollup refresh started", "from", from, "to", to)

	readings, err := s.repo.WindowReadings(ctx, from, to)
	if err != nil {
		return err
	}

	daily := ComputeDaily(readings, s.loc)
	monthly := ComputeMonthly(daily, s.loc)

	if err := s.repo.ReplaceDaily(ctx, from, to, daily); err != nil {
		return err
	}
	monthFrom := time.Date(from.In(s.loc).Year(), from.In(s.loc).Month(), 1, 0, 0, 0, 0, s.loc)
	if err := s.repo.ReplaceMonthly(ctx, monthFrom, to, monthly); err != nil {
		return err
	}

	s.cache.Purge()
	if s.metrics != nil {
		s.metrics.RollupRefresh.Inc()
	}
	s.logger.Info("rollup refresh finished", "readings", len(readings), "daily", len(daily), "monthly", len(monthly))
	return nil
}

// BandSummary returns the cached per-band weekday/holiday averages for
// [from, to), computing them on a miss.
func (s *Service) BandSummary(ctx context.Context, from, to time.Time) ([]BandAverage, error) {
	key := from.Format(time.RFC3339) + "/" + to.Format(time.RFC3339)
	return s.cache.Get(key, func() ([]BandAverage, error) {
		readings, err := s.repo.WindowReadings(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return ComputeBandSummary(readings, s.loc, s.cal), nil
	})
}

// ComputeDaily groups readings into consumer-day totals and averages.
// Averages are floored to one decimal place.
func ComputeDaily(readings []WindowReading, loc *time.Location) []DailyRollup {
	type bucket struct {
		total decimal.Decimal
		count int64
	}
	type key struct {
		consumerID string
		day        time.Time
	}

	buckets := make(map[key]*bucket)
	for _, r := range readings {
		local := r.MeasuredAt.In(loc)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		k := key{consumerID: r.ConsumerID, day: day}
		b, ok := buckets[k]
		if !ok {
			b = &bucket{}
			buckets[k] = b
		}
		b.total = b.total.Add(r.Amount)
		b.count++
	}

	out := make([]DailyRollup, 0, len(buckets))
	for k, b := range buckets {
		out = append(out, DailyRollup{
			ConsumerID: k.consumerID,
			Day:        k.day,
			Total:      b.total,
			Average:    FloorTenth(b.total.Div(decimal.NewFromInt(b.count))),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConsumerID != out[j].ConsumerID {
			return out[i].ConsumerID < out[j].ConsumerID
		}
		return out[i].Day.Before(out[j].Day)
	})
	return out
}

// ComputeMonthly rolls daily totals up into consumer-month aggregates.
// The monthly average is the mean of the month's daily totals, floored
// to one decimal place.
func ComputeMonthly(daily []DailyRollup, loc *time.Location) []MonthlyRollup {
	type bucket struct {
		total decimal.Decimal
		days  int64
	}
	type key struct {
		consumerID string
		month      time.Time
	}

	buckets := make(map[key]*bucket)
	for _, d := range daily {
		month := time.Date(d.Day.Year(), d.Day.Month(), 1, 0, 0, 0, 0, loc)
		k := key{consumerID: d.ConsumerID, month: month}
		b, ok := buckets[k]
		if !ok {
			b = &bucket{}
			buckets[k] = b
		}
		b.total = b.total.Add(d.Total)
		b.days++
	}

	out := make([]MonthlyRollup, 0, len(buckets))
	for k, b := range buckets {
		out = append(out, MonthlyRollup{
			ConsumerID: k.consumerID,
			Month:      k.month,
			Total:      b.total,
			Average:    FloorTenth(b.total.Div(decimal.NewFromInt(b.days))),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConsumerID != out[j].ConsumerID {
			return out[i].ConsumerID < out[j].ConsumerID
		}
		return out[i].Month.Before(out[j].Month)
	})
	return out
}

// ComputeBandSummary averages readings per (area, day-type, band)
// bucket. Areas appear sorted; within each area the result covers every
// band twice, weekday then holiday, in display order, with empty
// buckets averaging zero.
func ComputeBandSummary(readings []WindowReading, loc *time.Location, cal *Calendar) []BandAverage {
	type bucket struct {
		total decimal.Decimal
		count int64
	}
	type key struct {
		area    string
		band    TimeBand
		holiday bool
	}

	buckets := make(map[key]*bucket)
	var areas []string
	seen := make(map[string]struct{})
	for _, r := range readings {
		if _, ok := seen[r.Area]; !ok {
			seen[r.Area] = struct{}{}
			areas = append(areas, r.Area)
		}
		local := r.MeasuredAt.In(loc)
		k := key{area: r.Area, band: BandFor(local.Hour()), holiday: cal.IsHoliday(local)}
		b, ok := buckets[k]
		if !ok {
			b = &bucket{}
			buckets[k] = b
		}
		b.total = b.total.Add(r.Amount)
		b.count++
	}
	sort.Strings(areas)

	out := make([]BandAverage, 0, len(areas)*len(Bands)*2)
	for _, area := range areas {
		for _, holiday := range []bool{false, true} {
			for _, band := range Bands {
				avg := decimal.Zero
				if b, ok := buckets[key{area: area, band: band, holiday: holiday}]; ok && b.count > 0 {
					avg = FloorTenth(b.total.Div(decimal.NewFromInt(b.count)))
				}
				out = append(out, BandAverage{Area: area, Band: band, Holiday: holiday, Average: avg})
			}
		}
	}
	return out
}
