package closing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/bokslut/internal/ledger"
)

// memoryRepo keeps periods and closings in maps. Every method is atomic on
// its own, the way a single conditional statement is, but transactions do
// not isolate from each other; races are therefore observable in tests.
type memoryRepo struct {
	mu       sync.Mutex
	periods  map[uuid.UUID]ledger.FiscalPeriod
	closings map[uuid.UUID]AnnualClosing // keyed by period id

	// afterClosingRead runs once, right after a transaction read the closing.
	afterClosingRead func()
	serializable    int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		periods:  make(map[uuid.UUID]ledger.FiscalPeriod),
		closings: make(map[uuid.UUID]AnnualClosing),
	}
}

func (m *memoryRepo) addPeriod(workspaceID uuid.UUID, start, end time.Time) ledger.FiscalPeriod {
	p := ledger.FiscalPeriod{ID: uuid.New(), WorkspaceID: workspaceID, Name: start.Format("2006"), StartDate: start, EndDate: end}
	m.mu.Lock()
	m.periods[p.ID] = p
	m.mu.Unlock()
	return p
}

func (m *memoryRepo) period(id uuid.UUID) ledger.FiscalPeriod {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.periods[id]
}

func (m *memoryRepo) closing(periodID uuid.UUID) AnnualClosing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closings[periodID]
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) WithSerializableTx(ctx context.Context, fn func(context.Context, Store) error) error {
	m.mu.Lock()
	m.serializable++
	m.mu.Unlock()
	return fn(ctx, m)
}

func (m *memoryRepo) GetPeriod(ctx context.Context, workspaceID, periodID uuid.UUID) (ledger.FiscalPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[periodID]
	if !ok || p.WorkspaceID != workspaceID {
		return ledger.FiscalPeriod{}, ledger.ErrPeriodNotFound
	}
	return p, nil
}

func (m *memoryRepo) EnsureClosing(ctx context.Context, workspaceID, periodID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.closings[periodID]; ok {
		return nil
	}
	m.closings[periodID] = AnnualClosing{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		PeriodID:    periodID,
		Status:      StatusNotStarted,
	}
	return nil
}

func (m *memoryRepo) GetClosing(ctx context.Context, workspaceID, periodID uuid.UUID) (AnnualClosing, error) {
	m.mu.Lock()
	c, ok := m.closings[periodID]
	hook := m.afterClosingRead
	m.afterClosingRead = nil
	m.mu.Unlock()
	if !ok || c.WorkspaceID != workspaceID {
		return AnnualClosing{}, ErrClosingNotFound
	}
	if hook != nil {
		hook()
	}
	return c, nil
}

func (m *memoryRepo) TransitionStatus(ctx context.Context, workspaceID, closingID uuid.UUID, from, to Status, mut Mutation) (AnnualClosing, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, c := range m.closings {
		if c.ID != closingID || c.WorkspaceID != workspaceID || c.Status != from {
			continue
		}
		c.Status = to
		at, actor := mut.At, mut.ActorID
		switch to {
		case StatusReconciliationComplete:
			c.ReconciliationCompletedAt, c.ReconciliationCompletedBy = &at, &actor
		case StatusPackageSelected:
			c.PackageSelectedAt, c.PackageSelectedBy = &at, &actor
		case StatusClosingEntriesCreated:
			c.ClosingEntriesCreatedAt, c.ClosingEntriesCreatedBy = &at, &actor
		case StatusTaxCalculated:
			c.TaxCalculatedAt, c.TaxCalculatedBy = &at, &actor
		case StatusFinalized:
			c.FinalizedAt, c.FinalizedBy = &at, &actor
		}
		if mut.Package != nil {
			c.Package = mut.Package
		}
		if mut.Profit != nil {
			c.CalculatedProfit = mut.Profit
		}
		if mut.Tax != nil {
			c.CalculatedTax = mut.Tax
		}
		m.closings[key] = c
		return c, true, nil
	}
	return AnnualClosing{}, false, nil
}

func (m *memoryRepo) LockPeriod(ctx context.Context, workspaceID, periodID, actorID uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[periodID]
	if !ok || p.WorkspaceID != workspaceID || p.IsLocked {
		return false, nil
	}
	p.IsLocked = true
	p.LockedAt = &at
	p.LockedBy = &actorID
	m.periods[periodID] = p
	return true, nil
}

type stubLedger struct {
	totals []ledger.AccountTotals
	err    error
}

func (s stubLedger) SumByAccountRange(ctx context.Context, workspaceID, periodID uuid.UUID, r ledger.AccountRange) ([]ledger.AccountTotals, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]ledger.AccountTotals, 0, len(s.totals))
	for _, t := range s.totals {
		if r.Contains(t.AccountNumber) {
			out = append(out, t)
		}
	}
	return out, nil
}
