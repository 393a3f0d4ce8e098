package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryRepo is an in-memory RepositoryPort. WithTx holds a mutex for the
// whole callback, which mirrors the per-period advisory lock.
type memoryRepo struct {
	mu      sync.Mutex
	periods map[uuid.UUID]FiscalPeriod
	entries []JournalEntry
	lookups []time.Time
}

func newMemoryRepo(periods ...FiscalPeriod) *memoryRepo {
	repo := &memoryRepo{periods: make(map[uuid.UUID]FiscalPeriod)}
	for _, p := range periods {
		repo.periods[p.ID] = p
	}
	return repo
}

type memoryTx struct {
	repo    *memoryRepo
	pending []JournalEntry
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memoryTx{repo: m}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.entries = append(m.entries, tx.pending...)
	return nil
}

func (tx *memoryTx) LockPeriodForPosting(ctx context.Context, workspaceID, periodID uuid.UUID) (FiscalPeriod, error) {
	p, ok := tx.repo.periods[periodID]
	if !ok || p.WorkspaceID != workspaceID {
		return FiscalPeriod{}, ErrPeriodNotFound
	}
	return p, nil
}

func (tx *memoryTx) MaxVerificationNumber(ctx context.Context, workspaceID, periodID uuid.UUID) (int, error) {
	max := 0
	for _, e := range append(append([]JournalEntry(nil), tx.repo.entries...), tx.pending...) {
		if e.WorkspaceID == workspaceID && e.PeriodID == periodID && e.VerificationNumber > max {
			max = e.VerificationNumber
		}
	}
	return max, nil
}

func (tx *memoryTx) InsertEntry(ctx context.Context, in PostingInput, number int) (JournalEntry, error) {
	for _, e := range append(append([]JournalEntry(nil), tx.repo.entries...), tx.pending...) {
		if e.WorkspaceID != in.WorkspaceID {
			continue
		}
		if e.PeriodID == in.PeriodID && e.VerificationNumber == number {
			return JournalEntry{}, ErrDuplicateVerification
		}
		if in.SourceID != nil && e.SourceID != nil && e.SourceType == in.SourceType && *e.SourceID == *in.SourceID {
			return JournalEntry{}, ErrSourceAlreadyLinked
		}
	}
	entry := JournalEntry{
		ID:                 uuid.New(),
		WorkspaceID:        in.WorkspaceID,
		PeriodID:           in.PeriodID,
		VerificationNumber: number,
		EntryDate:          in.EntryDate,
		Description:        in.Description,
		EntryType:          in.EntryType,
		SourceType:         in.SourceType,
		SourceID:           in.SourceID,
		CreatedBy:          in.CreatedBy,
		CreatedAt:          time.Now(),
	}
	for i, l := range in.Lines {
		entry.Lines = append(entry.Lines, JournalLine{
			ID:            uuid.New(),
			EntryID:       entry.ID,
			AccountNumber: l.AccountNumber,
			AccountName:   l.AccountName,
			Debit:         l.Debit,
			Credit:        l.Credit,
			Description:   l.Description,
			SortOrder:     i,
		})
	}
	tx.pending = append(tx.pending, entry)
	return entry, nil
}

func (m *memoryRepo) GetPeriod(ctx context.Context, workspaceID, periodID uuid.UUID) (FiscalPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[periodID]
	if !ok || p.WorkspaceID != workspaceID {
		return FiscalPeriod{}, ErrPeriodNotFound
	}
	return p, nil
}

func (m *memoryRepo) FindPeriodByDate(ctx context.Context, workspaceID uuid.UUID, date time.Time) (FiscalPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, date)
	for _, p := range m.periods {
		if p.WorkspaceID == workspaceID && p.Contains(date) {
			return p, nil
		}
	}
	return FiscalPeriod{}, ErrPeriodNotFound
}

func (m *memoryRepo) SumByAccountRange(ctx context.Context, workspaceID, periodID uuid.UUID, r AccountRange) ([]AccountTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byAccount := make(map[int]*AccountTotals)
	for _, e := range m.entries {
		if e.WorkspaceID != workspaceID || e.PeriodID != periodID {
			continue
		}
		for _, l := range e.Lines {
			if !r.Contains(l.AccountNumber) {
				continue
			}
			t, ok := byAccount[l.AccountNumber]
			if !ok {
				t = &AccountTotals{AccountNumber: l.AccountNumber, AccountName: l.AccountName}
				byAccount[l.AccountNumber] = t
			}
			t.Debit = t.Debit.Add(l.Debit)
			t.Credit = t.Credit.Add(l.Credit)
		}
	}
	out := make([]AccountTotals, 0, len(byAccount))
	for _, t := range byAccount {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountNumber < out[j].AccountNumber })
	return out, nil
}

func (m *memoryRepo) ListEntries(ctx context.Context, workspaceID, periodID uuid.UUID, filter ListFilter) ([]JournalEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []JournalEntry
	for _, e := range m.entries {
		if e.WorkspaceID == workspaceID && e.PeriodID == periodID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VerificationNumber > out[j].VerificationNumber })
	total := len(out)
	if filter.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (m *memoryRepo) GetEntry(ctx context.Context, workspaceID, entryID uuid.UUID) (JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == entryID && e.WorkspaceID == workspaceID {
			return e, nil
		}
	}
	return JournalEntry{}, ErrEntryNotFound
}

func (m *memoryRepo) FindEntryBySource(ctx context.Context, workspaceID uuid.UUID, source SourceType, sourceID uuid.UUID) (JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.WorkspaceID == workspaceID && e.SourceType == source && e.SourceID != nil && *e.SourceID == sourceID {
			return e, nil
		}
	}
	return JournalEntry{}, ErrEntryNotFound
}

func (m *memoryRepo) count(source SourceType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.SourceType == source {
			n++
		}
	}
	return n
}
