package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/consumer"
	"github.com/FACorreiaa/smart-energy-dashboard/internal/domain/import/reconciler"
)

// Memory is an in-process Store used by tests. It enforces the same
// uniqueness rules as the schema and applies batches all-or-nothing, so
// atomicity behavior can be asserted without a database.
type Memory struct {
	mu sync.Mutex

	Consumers map[string]consumer.Consumer
	Contracts []consumer.Contract
	Readings  map[string]map[int64]ReadingInsert
	Jobs      map[uuid.UUID]*ImportJob

	nextContractID int64

	// FailReadings forces Apply to fail after consumer/contract staging,
	// simulating an integrity violation in the consumption phase.
	FailReadings bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		Consumers: make(map[string]consumer.Consumer),
		Readings:  make(map[string]map[int64]ReadingInsert),
		Jobs:      make(map[uuid.UUID]*ImportJob),
	}
}

// Snapshot returns a copy of the current state.
func (m *Memory) Snapshot(ctx context.Context) (reconciler.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := reconciler.State{
		Consumers:     make(map[string]consumer.Consumer, len(m.Consumers)),
		OpenContracts: make(map[string]consumer.Contract),
		ContractKeys:  make(map[string]map[reconciler.ContractKey]struct{}),
	}
	for id, c := range m.Consumers {
		st.Consumers[id] = c
	}
	for _, c := range m.Contracts {
		key := reconciler.ContractKey{AreaID: c.AreaID, TariffPlanID: c.TariffPlanID}
		if st.ContractKeys[c.ConsumerID] == nil {
			st.ContractKeys[c.ConsumerID] = make(map[reconciler.ContractKey]struct{})
		}
		st.ContractKeys[c.ConsumerID][key] = struct{}{}
		if c.Open() {
			st.OpenContracts[c.ConsumerID] = c
		}
	}
	return st, nil
}

// ExistingTimestamps lists persisted measurement times for one consumer.
func (m *Memory) ExistingTimestamps(ctx context.Context, consumerID string, from, to time.Time) (map[int64]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int64]struct{})
	for ts := range m.Readings[consumerID] {
		if ts >= from.Unix() && ts <= to.Unix() {
			out[ts] = struct{}{}
		}
	}
	return out, nil
}

// Apply validates and applies the batch all-or-nothing.
func (m *Memory) Apply(ctx context.Context, batch *Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate everything against a scratch copy before mutating.
	for _, c := range batch.NewConsumers {
		if _, exists := m.Consumers[c.ID]; exists {
			return fmt.Errorf("consumers: duplicate key %q", c.ID)
		}
	}
	pairSeen := make(map[string]map[reconciler.ContractKey]struct{})
	for _, c := range m.Contracts {
		key := reconciler.ContractKey{AreaID: c.AreaID, TariffPlanID: c.TariffPlanID}
		if pairSeen[c.ConsumerID] == nil {
			pairSeen[c.ConsumerID] = make(map[reconciler.ContractKey]struct{})
		}
		pairSeen[c.ConsumerID][key] = struct{}{}
	}
	for _, c := range batch.ContractOpenings {
		key := reconciler.ContractKey{AreaID: c.AreaID, TariffPlanID: c.TariffPlanID}
		if _, dup := pairSeen[c.ConsumerID][key]; dup {
			return fmt.Errorf("contract_history: duplicate pair for consumer %q", c.ConsumerID)
		}
		if pairSeen[c.ConsumerID] == nil {
			pairSeen[c.ConsumerID] = make(map[reconciler.ContractKey]struct{})
		}
		pairSeen[c.ConsumerID][key] = struct{}{}
	}
	for _, r := range batch.Readings {
		if _, dup := m.Readings[r.ConsumerID][r.MeasuredAt.Unix()]; dup {
			return fmt.Errorf("consumption_readings: duplicate key (%s, %s)", r.ConsumerID, r.MeasuredAt)
		}
	}
	if m.FailReadings && len(batch.Readings) > 0 {
		return fmt.Errorf("consumption_readings: forced integrity violation")
	}

	now := time.Now()
	for _, c := range batch.NewConsumers {
		c.CreatedAt = now
		c.UpdatedAt = now
		m.Consumers[c.ID] = c
	}
	for _, sc := range batch.StatusChanges {
		c, ok := m.Consumers[sc.ConsumerID]
		if !ok {
			return fmt.Errorf("consumers: unknown id %q", sc.ConsumerID)
		}
		c.Status = sc.Status
		c.UpdatedAt = now
		m.Consumers[sc.ConsumerID] = c
	}
	for _, cc := range batch.ContractClosures {
		for i := range m.Contracts {
			if m.Contracts[i].ID == cc.ContractID && m.Contracts[i].Open() {
				endAt := cc.EndAt
				m.Contracts[i].EndAt = &endAt
			}
		}
	}
	for _, c := range batch.ContractOpenings {
		m.nextContractID++
		c.ID = m.nextContractID
		m.Contracts = append(m.Contracts, c)
	}
	for _, r := range batch.Readings {
		if m.Readings[r.ConsumerID] == nil {
			m.Readings[r.ConsumerID] = make(map[int64]ReadingInsert)
		}
		m.Readings[r.ConsumerID][r.MeasuredAt.Unix()] = r
	}
	return nil
}

// CreateJob records a running job.
func (m *Memory) CreateJob(ctx context.Context, job *ImportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.Status = "running"
	job.StartedAt = time.Now()
	m.Jobs[job.ID] = job
	return nil
}

// FinishJob records a terminal job status.
func (m *Memory) FinishJob(ctx context.Context, id uuid.UUID, status string, imported, failed int, errMsg *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.Jobs[id]
	if !ok {
		return fmt.Errorf("import job %s not found", id)
	}
	job.Status = status
	job.RowsImported = imported
	job.RowsFailed = failed
	job.Error = errMsg
	finished := time.Now()
	job.FinishedAt = &finished
	return nil
}

// ReadingsFor returns a consumer's readings sorted by time (test helper).
func (m *Memory) ReadingsFor(consumerID string) []ReadingInsert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ReadingInsert, 0, len(m.Readings[consumerID]))
	for _, r := range m.Readings[consumerID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MeasuredAt.Before(out[j].MeasuredAt) })
	return out
}

// OpenContractsFor counts a consumer's open contract periods (test helper).
func (m *Memory) OpenContractsFor(consumerID string) []consumer.Contract {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []consumer.Contract
	for _, c := range m.Contracts {
		if c.ConsumerID == consumerID && c.Open() {
			out = append(out, c)
		}
	}
	return out
}
