package summary

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/aggregation"
)

// Reader is the query surface the service renders from.
type Reader interface {
	ChartPoints(ctx context.Context, from, to time.Time) ([]ChartPoint, error)
	TableRows(ctx context.Context, from, to time.Time) ([]TableRow, error)
	ConsumerSeries(ctx context.Context, consumerID string, from, to time.Time) ([]SeriesPoint, error)
}

// BandSource serves the cached time-band averages.
type BandSource interface {
	BandSummary(ctx context.Context, from, to time.Time) ([]aggregation.BandAverage, error)
}

// ChartData is the fleet-wide chart, pre-formatted for display. Values
// carry one decimal place.
type ChartData struct {
	Labels   []string
	Totals   []string
	Averages []string
	MinTotal string
	MaxTotal string
}

// TableData is the dashboard table, pre-formatted for display.
type TableData struct {
	Rows []FormattedRow
}

// FormattedRow is one display row of the dashboard table.
type FormattedRow struct {
	ConsumerID string
	Area       string
	Tariff     string
	Average    string
}

// UserChart is a single consumer's chart, pre-formatted for display.
type UserChart struct {
	ConsumerID string
	Labels     []string
	Amounts    []string
}

// BandRow is one display row of the band summary.
type BandRow struct {
	Area    string
	Band    string
	DayType string
	Average string
}

// Service renders the dashboard view models.
type Service struct {
	reader Reader
	bands  BandSource
	logger *slog.Logger
	loc    *time.Location
}

// NewService creates the summary service.
func NewService(reader Reader, bands BandSource, logger *slog.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{reader: reader, bands: bands, logger: logger, loc: loc}
}

const chartLabelLayout = "2006-01-02 15:04"

// ChartData renders the fleet-wide chart for [from, to), including the
// window's minimum and maximum total.
func (s *Service) ChartData(ctx context.Context, from, to time.Time) (*ChartData, error) {
	points, err := s.reader.ChartPoints(ctx, from, to)
	if err != nil {
		return nil, err
	}

	data := &ChartData{
		Labels:   make([]string, 0, len(points)),
		Totals:   make([]string, 0, len(points)),
		Averages: make([]string, 0, len(points)),
	}
	var minTotal, maxTotal decimal.Decimal
	for i, p := range points {
		data.Labels = append(data.Labels, p.MeasuredAt.In(s.loc).Format(chartLabelLayout))
		data.Totals = append(data.Totals, p.Total.StringFixed(1))
		data.Averages = append(data.Averages, aggregation.FloorTenth(p.Average).StringFixed(1))
		if i == 0 || p.Total.LessThan(minTotal) {
			minTotal = p.Total
		}
		if i == 0 || p.Total.GreaterThan(maxTotal) {
			maxTotal = p.Total
		}
	}
	if len(points) > 0 {
		data.MinTotal = minTotal.StringFixed(1)
		data.MaxTotal = maxTotal.StringFixed(1)
	}
	return data, nil
}

// TableData renders the per-consumer table for [from, to).
func (s *Service) TableData(ctx context.Context, from, to time.Time) (*TableData, error) {
	rows, err := s.reader.TableRows(ctx, from, to)
	if err != nil {
		return nil, err
	}

	data := &TableData{Rows: make([]FormattedRow, 0, len(rows))}
	for _, row := range rows {
		data.Rows = append(data.Rows, FormattedRow{
			ConsumerID: row.ConsumerID,
			Area:       row.Area,
			Tariff:     row.Tariff,
			Average:    aggregation.FloorTenth(row.Average).StringFixed(1),
		})
	}
	return data, nil
}

// UserChartData renders one consumer's chart for [from, to).
func (s *Service) UserChartData(ctx context.Context, consumerID string, from, to time.Time) (*UserChart, error) {
	points, err := s.reader.ConsumerSeries(ctx, consumerID, from, to)
	if err != nil {
		return nil, err
	}

	chart := &UserChart{
		ConsumerID: consumerID,
		Labels:     make([]string, 0, len(points)),
		Amounts:    make([]string, 0, len(points)),
	}
	for _, p := range points {
		chart.Labels = append(chart.Labels, p.MeasuredAt.In(s.loc).Format(chartLabelLayout))
		chart.Amounts = append(chart.Amounts, p.Amount.StringFixed(1))
	}
	return chart, nil
}

// BandData renders the time-band averages for [from, to).
func (s *Service) BandData(ctx context.Context, from, to time.Time) ([]BandRow, error) {
	bands, err := s.bands.BandSummary(ctx, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]BandRow, 0, len(bands))
	for _, b := range bands {
		dayType := "weekday"
		if b.Holiday {
			dayType = "holiday"
		}
		out = append(out, BandRow{
			Area:    b.Area,
			Band:    string(b.Band),
			DayType: dayType,
			Average: b.Average.StringFixed(1),
		})
	}
	return out, nil
}
