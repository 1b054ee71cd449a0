// Package reconciler compares a normalized roster against persisted
// consumer state and computes the change plan for the run: consumers to
// create, withdraw or reactivate, and contract periods to close and open.
// Building the plan touches no storage; the bulk writer applies it.
package reconciler

import (
	"fmt"
	"time"

	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/catalog"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/consumer"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/import/parser"
)

// ContractKey identifies one (area, tariff plan) pairing in history.
type ContractKey struct {
	AreaID       int32
	TariffPlanID int32
}

// State is the persisted snapshot the roster is reconciled against.
type State struct {
	// Consumers by external id, including withdrawn ones.
	Consumers map[string]consumer.Consumer
	// OpenContracts holds the current (end_at IS NULL) period per consumer.
	OpenContracts map[string]consumer.Contract
	// ContractKeys lists every (area, tariff) pairing ever recorded per
	// consumer, open or closed.
	ContractKeys map[string]map[ContractKey]struct{}
}

// ContractClosure marks an open period to be ended.
type ContractClosure struct {
	ContractID int64
	ConsumerID string
	EndAt      time.Time
}

// Issue is a roster row skipped during reconciliation.
type Issue struct {
	Line       int
	ConsumerID string
	Reason     string
}

func (i Issue) String() string {
	return fmt.Sprintf("line %d (consumer %s): %s", i.Line, i.ConsumerID, i.Reason)
}

// Plan is the computed set of state changes for one import run.
type Plan struct {
	NewConsumers     []consumer.Consumer
	Reactivations    []string
	Withdrawals      []string
	ContractClosures []ContractClosure
	ContractOpenings []consumer.Contract
	Issues           []Issue
}

// Build computes the plan for a normalized roster. The final state is
// independent of roster row order: withdrawals derive from id sets and
// the per-row steps touch disjoint ids after deduplication.
func Build(roster []parser.RosterEntry, st State, lookup *catalog.Lookup, now time.Time) Plan {
	var plan Plan

	// Ids present in the roster, whether or not the row later resolves.
	// A consumer whose row only has a bad area/tariff code is still on the
	// roster, so it must not count as withdrawn.
	rosterIDs := make(map[string]struct{}, len(roster))
	for _, e := range roster {
		rosterIDs[e.ID] = struct{}{}
	}

	for id, c := range st.Consumers {
		if c.Status == consumer.StatusWithdrawn {
			continue
		}
		if _, present := rosterIDs[id]; !present {
			plan.Withdrawals = append(plan.Withdrawals, id)
		}
	}

	for _, e := range roster {
		area, ok := lookup.Area(e.Area)
		if !ok {
			plan.Issues = append(plan.Issues, Issue{Line: e.Line, ConsumerID: e.ID, Reason: fmt.Sprintf("unknown area %q", e.Area)})
			continue
		}
		tariff, ok := lookup.TariffPlan(e.Tariff)
		if !ok {
			plan.Issues = append(plan.Issues, Issue{Line: e.Line, ConsumerID: e.ID, Reason: fmt.Sprintf("unknown tariff %q", e.Tariff)})
			continue
		}
		key := ContractKey{AreaID: area.ID, TariffPlanID: tariff.ID}

		existing, known := st.Consumers[e.ID]
		if !known {
			plan.NewConsumers = append(plan.NewConsumers, consumer.Consumer{
				ID:     e.ID,
				Status: consumer.StatusContinuing,
			})
			plan.ContractOpenings = append(plan.ContractOpenings, consumer.Contract{
				ConsumerID:   e.ID,
				AreaID:       area.ID,
				TariffPlanID: tariff.ID,
				StartAt:      now,
			})
			continue
		}

		if existing.Status == consumer.StatusWithdrawn {
			plan.Reactivations = append(plan.Reactivations, e.ID)
		}

		// A history row matching (consumer, area, tariff) exactly means the
		// pairing is already recorded; nothing to change.
		if keys := st.ContractKeys[e.ID]; keys != nil {
			if _, recorded := keys[key]; recorded {
				continue
			}
		}

		if open, hasOpen := st.OpenContracts[e.ID]; hasOpen {
			plan.ContractClosures = append(plan.ContractClosures, ContractClosure{
				ContractID: open.ID,
				ConsumerID: e.ID,
				EndAt:      now,
			})
		}
		plan.ContractOpenings = append(plan.ContractOpenings, consumer.Contract{
			ConsumerID:   e.ID,
			AreaID:       area.ID,
			TariffPlanID: tariff.ID,
			StartAt:      now,
		})
	}

	return plan
}
