package reconciler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/catalog"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/consumer"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/import/parser"
)

func testLookup() *catalog.Lookup {
	return catalog.NewLookup(
		[]catalog.Area{{ID: 1, Name: "a1"}, {ID: 2, Name: "a2"}},
		[]catalog.TariffPlan{{ID: 1, Name: "t1"}, {ID: 2, Name: "t2"}, {ID: 3, Name: "t3"}},
	)
}

func emptyState() State {
	return State{
		Consumers:     make(map[string]consumer.Consumer),
		OpenContracts: make(map[string]consumer.Contract),
		ContractKeys:  make(map[string]map[ContractKey]struct{}),
	}
}

func stateWith(c consumer.Consumer, contracts ...consumer.Contract) State {
	st := emptyState()
	st.Consumers[c.ID] = c
	for _, ct := range contracts {
		key := ContractKey{AreaID: ct.AreaID, TariffPlanID: ct.TariffPlanID}
		if st.ContractKeys[ct.ConsumerID] == nil {
			st.ContractKeys[ct.ConsumerID] = make(map[ContractKey]struct{})
		}
		st.ContractKeys[ct.ConsumerID][key] = struct{}{}
		if ct.Open() {
			st.OpenContracts[ct.ConsumerID] = ct
		}
	}
	return st
}

var now = time.Date(2016, 8, 1, 0, 0, 0, 0, time.UTC)

func TestBuild(t *testing.T) {
	lookup := testLookup()

	t.Run("NewConsumer", func(t *testing.T) {
		roster := []parser.RosterEntry{{Line: 2, ID: "3000", Area: "a1", Tariff: "t2"}}
		plan := Build(roster, emptyState(), lookup, now)

		require.Len(t, plan.NewConsumers, 1)
		assert.Equal(t, "3000", plan.NewConsumers[0].ID)
		assert.Equal(t, consumer.StatusContinuing, plan.NewConsumers[0].Status)

		require.Len(t, plan.ContractOpenings, 1)
		assert.Equal(t, int32(1), plan.ContractOpenings[0].AreaID)
		assert.Equal(t, int32(2), plan.ContractOpenings[0].TariffPlanID)
		assert.Empty(t, plan.Withdrawals)
		assert.Empty(t, plan.ContractClosures)
	})

	t.Run("WithdrawalWhenAbsent", func(t *testing.T) {
		st := stateWith(
			consumer.Consumer{ID: "3000", Status: consumer.StatusContinuing},
			consumer.Contract{ID: 1, ConsumerID: "3000", AreaID: 1, TariffPlanID: 1, StartAt: now.AddDate(0, -1, 0)},
		)
		plan := Build(nil, st, lookup, now)

		assert.Equal(t, []string{"3000"}, plan.Withdrawals)
		// Withdrawal changes status only; the open contract stays open.
		assert.Empty(t, plan.ContractClosures)
	})

	t.Run("AlreadyWithdrawnStaysQuiet", func(t *testing.T) {
		st := stateWith(consumer.Consumer{ID: "3000", Status: consumer.StatusWithdrawn})
		plan := Build(nil, st, lookup, now)
		assert.Empty(t, plan.Withdrawals)
	})

	t.Run("Reactivation", func(t *testing.T) {
		st := stateWith(
			consumer.Consumer{ID: "3000", Status: consumer.StatusWithdrawn},
			consumer.Contract{ID: 1, ConsumerID: "3000", AreaID: 1, TariffPlanID: 2, StartAt: now.AddDate(0, -2, 0)},
		)
		roster := []parser.RosterEntry{{Line: 2, ID: "3000", Area: "a1", Tariff: "t2"}}
		plan := Build(roster, st, lookup, now)

		assert.Equal(t, []string{"3000"}, plan.Reactivations)
		// Same pairing as before: no new contract row.
		assert.Empty(t, plan.ContractOpenings)
		assert.Empty(t, plan.ContractClosures)
	})

	t.Run("ContractChangeClosesAndOpens", func(t *testing.T) {
		st := stateWith(
			consumer.Consumer{ID: "3000", Status: consumer.StatusContinuing},
			consumer.Contract{ID: 7, ConsumerID: "3000", AreaID: 1, TariffPlanID: 1, StartAt: now.AddDate(0, -1, 0)},
		)
		roster := []parser.RosterEntry{{Line: 2, ID: "3000", Area: "a2", Tariff: "t3"}}
		plan := Build(roster, st, lookup, now)

		require.Len(t, plan.ContractClosures, 1)
		assert.Equal(t, int64(7), plan.ContractClosures[0].ContractID)
		assert.Equal(t, now, plan.ContractClosures[0].EndAt)

		require.Len(t, plan.ContractOpenings, 1)
		assert.Equal(t, int32(2), plan.ContractOpenings[0].AreaID)
		assert.Equal(t, int32(3), plan.ContractOpenings[0].TariffPlanID)
	})

	t.Run("RecordedPairIsNoop", func(t *testing.T) {
		closed := now.AddDate(0, -1, 0)
		st := stateWith(
			consumer.Consumer{ID: "3000", Status: consumer.StatusContinuing},
			consumer.Contract{ID: 1, ConsumerID: "3000", AreaID: 1, TariffPlanID: 1, StartAt: now.AddDate(0, -3, 0), EndAt: &closed},
			consumer.Contract{ID: 2, ConsumerID: "3000", AreaID: 2, TariffPlanID: 2, StartAt: closed},
		)
		// The roster names the closed historical pairing; reopening it would
		// violate the pair uniqueness, so nothing changes.
		roster := []parser.RosterEntry{{Line: 2, ID: "3000", Area: "a1", Tariff: "t1"}}
		plan := Build(roster, st, lookup, now)

		assert.Empty(t, plan.ContractOpenings)
		assert.Empty(t, plan.ContractClosures)
		assert.Empty(t, plan.Issues)
	})

	t.Run("UnknownReferencesSkipRowButKeepPresence", func(t *testing.T) {
		st := stateWith(
			consumer.Consumer{ID: "3000", Status: consumer.StatusContinuing},
			consumer.Contract{ID: 1, ConsumerID: "3000", AreaID: 1, TariffPlanID: 1, StartAt: now.AddDate(0, -1, 0)},
		)
		roster := []parser.RosterEntry{
			{Line: 2, ID: "3000", Area: "a9", Tariff: "t1"},
			{Line: 3, ID: "3001", Area: "a1", Tariff: "t9"},
		}
		plan := Build(roster, st, lookup, now)

		require.Len(t, plan.Issues, 2)
		assert.Contains(t, plan.Issues[0].Reason, "unknown area")
		assert.Contains(t, plan.Issues[1].Reason, "unknown tariff")

		// 3000 is still on the roster even though its row is bad, so it must
		// not be withdrawn.
		assert.Empty(t, plan.Withdrawals)
		assert.Empty(t, plan.NewConsumers)
	})

	t.Run("RowOrderIndependent", func(t *testing.T) {
		st := stateWith(
			consumer.Consumer{ID: "3000", Status: consumer.StatusContinuing},
			consumer.Contract{ID: 1, ConsumerID: "3000", AreaID: 1, TariffPlanID: 1, StartAt: now.AddDate(0, -1, 0)},
		)
		roster := []parser.RosterEntry{
			{Line: 2, ID: "3001", Area: "a1", Tariff: "t1"},
			{Line: 3, ID: "3000", Area: "a2", Tariff: "t2"},
		}
		reversed := []parser.RosterEntry{roster[1], roster[0]}

		a := Build(roster, st, lookup, now)
		b := Build(reversed, st, lookup, now)

		assert.ElementsMatch(t, a.NewConsumers, b.NewConsumers)
		assert.ElementsMatch(t, a.ContractOpenings, b.ContractOpenings)
		assert.ElementsMatch(t, a.ContractClosures, b.ContractClosures)
		assert.ElementsMatch(t, a.Withdrawals, b.Withdrawals)
	})
}
