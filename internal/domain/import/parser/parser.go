// Package parser reads the roster and per-consumer consumption CSV files.
// It uses gocsv for struct-based unmarshaling; every rejected row is
// reported with its 1-based source line number (header = line 1, so the
// first data row is line 2).
package parser

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// ReadingTimeLayout is the datetime format of the consumption files.
// Values are naive and localized to the configured data timezone.
const ReadingTimeLayout = "2006-01-02 15:04:05"

// rosterRow is a raw roster line as it appears in user_data.csv.
type rosterRow struct {
	ID     string `csv:"id"`
	Area   string `csv:"area"`
	Tariff string `csv:"tariff"`
}

// readingRow is a raw line of a consumption/<consumer_id>.csv file.
type readingRow struct {
	Datetime    string `csv:"datetime"`
	Consumption string `csv:"consumption"`
}

// RosterEntry is a validated roster row.
type RosterEntry struct {
	Line   int
	ID     string
	Area   string
	Tariff string
}

// Reading is a validated consumption row.
type Reading struct {
	Line       int // 0 for synthesized rows (gap fill)
	MeasuredAt time.Time
	Amount     decimal.Decimal
}

// RowError describes a rejected row.
type RowError struct {
	Line    int
	Field   string
	Message string
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d, field %s: %s", e.Line, e.Field, e.Message)
}

// RosterResult is the outcome of parsing a roster file.
type RosterResult struct {
	Entries []RosterEntry
	Errors  []RowError
}

// ReadingsResult is the outcome of parsing one consumption file.
type ReadingsResult struct {
	Readings []Reading
	Errors   []RowError
}

// ParseRoster reads user_data.csv. Rows missing any required field are
// excluded and reported; a file whose rows are all invalid contributes
// zero entries without failing the parse.
func ParseRoster(r io.Reader) (*RosterResult, error) {
	var rows []rosterRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}

	result := &RosterResult{Entries: make([]RosterEntry, 0, len(rows))}
	for i, row := range rows {
		line := i + 2
		id := strings.TrimSpace(row.ID)
		area := strings.TrimSpace(row.Area)
		tariff := strings.TrimSpace(row.Tariff)

		switch {
		case id == "":
			result.Errors = append(result.Errors, RowError{Line: line, Field: "id", Message: "missing required field"})
		case area == "":
			result.Errors = append(result.Errors, RowError{Line: line, Field: "area", Message: "missing required field"})
		case tariff == "":
			result.Errors = append(result.Errors, RowError{Line: line, Field: "tariff", Message: "missing required field"})
		default:
			result.Entries = append(result.Entries, RosterEntry{Line: line, ID: id, Area: area, Tariff: tariff})
		}
	}
	return result, nil
}

// ParseReadings reads one consumption file. Datetimes are interpreted in
// loc; amounts must be non-negative decimals.
func ParseReadings(r io.Reader, loc *time.Location) (*ReadingsResult, error) {
	var rows []readingRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse readings: %w", err)
	}

	result := &ReadingsResult{Readings: make([]Reading, 0, len(rows))}
	for i, row := range rows {
		line := i + 2

		dtStr := strings.TrimSpace(row.Datetime)
		if dtStr == "" {
			result.Errors = append(result.Errors, RowError{Line: line, Field: "datetime", Message: "missing required field"})
			continue
		}
		measuredAt, err := time.ParseInLocation(ReadingTimeLayout, dtStr, loc)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Field: "datetime", Message: fmt.Sprintf("invalid datetime %q", dtStr)})
			continue
		}

		amountStr := strings.TrimSpace(row.Consumption)
		if amountStr == "" {
			result.Errors = append(result.Errors, RowError{Line: line, Field: "consumption", Message: "missing required field"})
			continue
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Field: "consumption", Message: fmt.Sprintf("invalid decimal %q", amountStr)})
			continue
		}
		if amount.IsNegative() {
			result.Errors = append(result.Errors, RowError{Line: line, Field: "consumption", Message: "negative amount"})
			continue
		}

		result.Readings = append(result.Readings, Reading{Line: line, MeasuredAt: measuredAt, Amount: amount})
	}
	return result, nil
}
