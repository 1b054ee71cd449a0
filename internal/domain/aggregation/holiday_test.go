package aggregation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarIsHoliday(t *testing.T) {
	cal := NewCalendar()
	loc := time.UTC

	t.Run("Weekends", func(t *testing.T) {
		assert.True(t, cal.IsHoliday(time.Date(2016, 7, 16, 10, 0, 0, 0, loc)), "Saturday")
		assert.True(t, cal.IsHoliday(time.Date(2016, 7, 17, 10, 0, 0, 0, loc)), "Sunday")
		assert.False(t, cal.IsHoliday(time.Date(2016, 7, 15, 10, 0, 0, 0, loc)), "Friday")
	})

	t.Run("NationalHolidays", func(t *testing.T) {
		// Marine Day and Mountain Day both fell on weekdays in 2016.
		assert.True(t, cal.IsHoliday(time.Date(2016, 7, 18, 0, 0, 0, 0, loc)))
		assert.True(t, cal.IsHoliday(time.Date(2016, 8, 11, 0, 0, 0, 0, loc)))
		assert.False(t, cal.IsHoliday(time.Date(2016, 8, 12, 0, 0, 0, 0, loc)))
	})
}

func TestLoadCalendar(t *testing.T) {
	t.Run("OverridesBuiltins", func(t *testing.T) {
		in := "date,name\n2016-07-20,company holiday\n"
		cal, err := LoadCalendar(strings.NewReader(in))
		require.NoError(t, err)

		assert.True(t, cal.IsHoliday(time.Date(2016, 7, 20, 0, 0, 0, 0, time.UTC)))
		// Built-in table is replaced, not merged.
		assert.False(t, cal.IsHoliday(time.Date(2016, 7, 18, 0, 0, 0, 0, time.UTC)))
		// Weekends still count.
		assert.True(t, cal.IsHoliday(time.Date(2016, 7, 16, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("RejectsBadDate", func(t *testing.T) {
		in := "date,name\n20-07-2016,backwards\n"
		_, err := LoadCalendar(strings.NewReader(in))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
	})
}
