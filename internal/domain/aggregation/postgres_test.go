package aggregation

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowReadings(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	from := time.Date(2016, 7, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	mock.ExpectQuery(`SELECT cr.consumer_id, COALESCE`).
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows([]string{"consumer_id", "area", "measured_at", "amount"}).
			AddRow("3000", "a1", from, dec("39.0")).
			AddRow("3001", "", from, dec("12.5")))

	readings, err := NewPostgresRepository(mock).WindowReadings(context.Background(), from, to)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, readings, 2)
	assert.Equal(t, "a1", readings[0].Area)
	assert.Equal(t, "", readings[1].Area, "no open contract")
}

func TestReplaceDaily(t *testing.T) {
	from := time.Date(2016, 7, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	rollups := []DailyRollup{
		{ConsumerID: "3000", Day: from, Total: dec("14339.0"), Average: dec("298.7")},
	}

	t.Run("SwapsInOneTransaction", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM daily_rollups`).
			WithArgs(from, to).
			WillReturnResult(pgxmock.NewResult("DELETE", 3))
		mock.ExpectCopyFrom(pgx.Identifier{"daily_rollups"},
			[]string{"consumer_id", "day", "total", "average"}).
			WillReturnResult(1)
		mock.ExpectCommit()
		mock.ExpectRollback()

		require.NoError(t, NewPostgresRepository(mock).ReplaceDaily(context.Background(), from, to, rollups))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CopyFailureRollsBack", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM daily_rollups`).
			WithArgs(from, to).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectCopyFrom(pgx.Identifier{"daily_rollups"},
			[]string{"consumer_id", "day", "total", "average"}).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		require.Error(t, NewPostgresRepository(mock).ReplaceDaily(context.Background(), from, to, rollups))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReplaceMonthly(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	from := time.Date(2016, 7, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM monthly_rollups`).
		WithArgs(from, to).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"monthly_rollups"},
		[]string{"consumer_id", "month", "total", "average"}).
		WillReturnResult(1)
	mock.ExpectCommit()
	mock.ExpectRollback()

	rollups := []MonthlyRollup{
		{ConsumerID: "3000", Month: from, Total: dec("400000.0"), Average: dec("12903.2")},
	}
	require.NoError(t, NewPostgresRepository(mock).ReplaceMonthly(context.Background(), from, to, rollups))
	require.NoError(t, mock.ExpectationsWereMet())
}
