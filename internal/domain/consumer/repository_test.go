package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, status, created_at, updated_at`).
			WithArgs("3000").
			WillReturnRows(pgxmock.NewRows([]string{"id", "status", "created_at", "updated_at"}).
				AddRow("3000", StatusContinuing, now, now))

		c, err := NewRepository(mock).Get(context.Background(), "3000")
		require.NoError(t, err)
		assert.Equal(t, StatusContinuing, c.Status)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, status, created_at, updated_at`).
			WithArgs("9999").
			WillReturnRows(pgxmock.NewRows([]string{"id", "status", "created_at", "updated_at"}))

		_, err := NewRepository(mock).Get(context.Background(), "9999")
		require.ErrorIs(t, err, ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()

	mock.ExpectQuery(`SELECT id, status, created_at, updated_at`).
		WithArgs(50, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "created_at", "updated_at"}).
			AddRow("3000", StatusContinuing, now, now).
			AddRow("3001", StatusWithdrawn, now, now))

	consumers, err := NewRepository(mock).List(context.Background(), 50, 0)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, consumers, 2)
	assert.Equal(t, StatusWithdrawn, consumers[1].Status)
}

func TestContracts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	start := time.Date(2016, 7, 1, 0, 0, 0, 0, time.UTC)
	closed := start.AddDate(0, 1, 0)

	mock.ExpectQuery(`SELECT id, consumer_id, area_id, tariff_plan_id, start_at, end_at`).
		WithArgs("3000").
		WillReturnRows(pgxmock.NewRows([]string{"id", "consumer_id", "area_id", "tariff_plan_id", "start_at", "end_at"}).
			AddRow(int64(1), "3000", int32(1), int32(2), start, &closed).
			AddRow(int64(2), "3000", int32(2), int32(3), closed, (*time.Time)(nil)))

	contracts, err := NewRepository(mock).Contracts(context.Background(), "3000")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, contracts, 2)
	assert.False(t, contracts[0].Open())
	assert.True(t, contracts[1].Open())
}
