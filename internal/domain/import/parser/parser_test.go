package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoster(t *testing.T) {
	t.Run("ValidRows", func(t *testing.T) {
		in := "id,area,tariff\n3000,a1,t2\n3001,a2,t1\n"
		result, err := ParseRoster(strings.NewReader(in))
		require.NoError(t, err)
		require.Len(t, result.Entries, 2)
		assert.Empty(t, result.Errors)

		// Header is line 1, first data row line 2.
		assert.Equal(t, RosterEntry{Line: 2, ID: "3000", Area: "a1", Tariff: "t2"}, result.Entries[0])
		assert.Equal(t, RosterEntry{Line: 3, ID: "3001", Area: "a2", Tariff: "t1"}, result.Entries[1])
	})

	t.Run("MissingFieldsReportedWithLine", func(t *testing.T) {
		in := "id,area,tariff\n3000,a1,t2\n,a1,t1\n3002,,t3\n3003,a2,\n"
		result, err := ParseRoster(strings.NewReader(in))
		require.NoError(t, err)
		require.Len(t, result.Entries, 1)
		require.Len(t, result.Errors, 3)

		assert.Equal(t, 3, result.Errors[0].Line)
		assert.Equal(t, "id", result.Errors[0].Field)
		assert.Equal(t, 4, result.Errors[1].Line)
		assert.Equal(t, "area", result.Errors[1].Field)
		assert.Equal(t, 5, result.Errors[2].Line)
		assert.Equal(t, "tariff", result.Errors[2].Field)
	})

	t.Run("AllRowsInvalid", func(t *testing.T) {
		in := "id,area,tariff\n,a1,t1\n,a2,t2\n"
		result, err := ParseRoster(strings.NewReader(in))
		require.NoError(t, err)
		assert.Empty(t, result.Entries)
		assert.Len(t, result.Errors, 2)
	})
}

func TestParseReadings(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	t.Run("ValidRows", func(t *testing.T) {
		in := "datetime,consumption\n2016-07-15 00:00:00,39.0\n2016-07-15 00:30:00,147.0\n"
		result, err := ParseReadings(strings.NewReader(in), loc)
		require.NoError(t, err)
		require.Len(t, result.Readings, 2)
		assert.Empty(t, result.Errors)

		first := result.Readings[0]
		assert.Equal(t, 2, first.Line)
		assert.Equal(t, time.Date(2016, 7, 15, 0, 0, 0, 0, loc), first.MeasuredAt)
		assert.True(t, first.Amount.Equal(decimal.RequireFromString("39.0")))
	})

	t.Run("RejectsBadRows", func(t *testing.T) {
		in := strings.Join([]string{
			"datetime,consumption",
			"2016-07-15 00:00:00,39.0",
			"not-a-date,50.0",
			"2016-07-15 01:00:00,abc",
			"2016-07-15 01:30:00,-1.5",
			"2016-07-15 02:00:00,",
		}, "\n") + "\n"
		result, err := ParseReadings(strings.NewReader(in), loc)
		require.NoError(t, err)
		require.Len(t, result.Readings, 1)
		require.Len(t, result.Errors, 4)

		assert.Equal(t, 3, result.Errors[0].Line)
		assert.Equal(t, "datetime", result.Errors[0].Field)
		assert.Equal(t, 4, result.Errors[1].Line)
		assert.Equal(t, "consumption", result.Errors[1].Field)
		assert.Equal(t, 5, result.Errors[2].Line)
		assert.Contains(t, result.Errors[2].Message, "negative")
		assert.Equal(t, 6, result.Errors[3].Line)
	})

	t.Run("DatetimesLocalized", func(t *testing.T) {
		in := "datetime,consumption\n2016-12-31 23:30:00,10.5\n"
		result, err := ParseReadings(strings.NewReader(in), loc)
		require.NoError(t, err)
		require.Len(t, result.Readings, 1)
		assert.Equal(t, "Asia/Tokyo", result.Readings[0].MeasuredAt.Location().String())
	})
}
