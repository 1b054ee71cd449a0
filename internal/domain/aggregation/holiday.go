package aggregation

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gocarina/gocsv"
)

const holidayDateLayout = "2006-01-02"

// Japanese national holidays covering the meter data window. Weekends
// are handled separately, so substitute holidays falling on a Sunday are
// still listed for completeness.
var builtinHolidays = []string{
	"2016-01-01", "2016-01-11", "2016-02-11", "2016-03-20", "2016-03-21",
	"2016-04-29", "2016-05-03", "2016-05-04", "2016-05-05", "2016-07-18",
	"2016-08-11", "2016-09-19", "2016-09-22", "2016-10-10", "2016-11-03",
	"2016-11-23", "2016-12-23",
	"2017-01-01", "2017-01-02", "2017-01-09", "2017-02-11", "2017-03-20",
}

// Calendar decides whether a date counts as a holiday for the band
// summary. Saturdays and Sundays always do; national holidays come from
// the built-in table or a CSV override.
type Calendar struct {
	dates map[string]struct{}
}

// NewCalendar returns a calendar with the built-in holiday table.
func NewCalendar() *Calendar {
	c := &Calendar{dates: make(map[string]struct{}, len(builtinHolidays))}
	for _, d := range builtinHolidays {
		c.dates[d] = struct{}{}
	}
	return c
}

// holidayRow is one line of a holiday override file.
type holidayRow struct {
	Date string `csv:"date"`
	Name string `csv:"name"`
}

// LoadCalendar reads a replacement holiday table from a CSV with the
// header "date,name"; dates use YYYY-MM-DD.
func LoadCalendar(r io.Reader) (*Calendar, error) {
	var rows []holidayRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse holiday table: %w", err)
	}

	c := &Calendar{dates: make(map[string]struct{}, len(rows))}
	for i, row := range rows {
		if _, err := time.Parse(holidayDateLayout, row.Date); err != nil {
			return nil, fmt.Errorf("holiday table line %d: invalid date %q", i+2, row.Date)
		}
		c.dates[row.Date] = struct{}{}
	}
	return c, nil
}

// LoadCalendarFile reads a replacement holiday table from path.
func LoadCalendarFile(path string) (*Calendar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open holiday table: %w", err)
	}
	defer f.Close()
	return LoadCalendar(f)
}

// IsHoliday reports whether t's date is a weekend or a listed holiday.
func (c *Calendar) IsHoliday(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	_, ok := c.dates[t.Format(holidayDateLayout)]
	return ok
}
