package catalog

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	lookup := NewLookup(
		[]Area{{ID: 1, Name: "a1"}, {ID: 2, Name: "a2"}},
		[]TariffPlan{{ID: 1, Name: "t1"}, {ID: 2, Name: "t2"}},
	)

	a, ok := lookup.Area("a1")
	require.True(t, ok)
	assert.Equal(t, int32(1), a.ID)

	_, ok = lookup.Area("a9")
	assert.False(t, ok)

	p, ok := lookup.TariffPlan("t2")
	require.True(t, ok)
	assert.Equal(t, int32(2), p.ID)

	assert.Equal(t, "a2", lookup.AreaName(2))
	assert.Equal(t, "", lookup.AreaName(9))
	assert.Equal(t, "t1", lookup.TariffPlanName(1))
	assert.Equal(t, "", lookup.TariffPlanName(9))
}

func TestLoadLookup(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, area_name FROM areas`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "area_name"}).
			AddRow(int32(1), "a1").
			AddRow(int32(2), "a2"))
	mock.ExpectQuery(`SELECT id, plan_name FROM tariff_plans`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "plan_name"}).
			AddRow(int32(1), "t1").
			AddRow(int32(2), "t2").
			AddRow(int32(3), "t3"))

	lookup, err := NewRepository(mock).LoadLookup(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	_, ok := lookup.Area("a2")
	assert.True(t, ok)
	_, ok = lookup.TariffPlan("t3")
	assert.True(t, ok)
}
