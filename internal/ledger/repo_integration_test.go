package ledger_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bokslut/internal/ledger"
	"github.com/odyssey-erp/bokslut/internal/platform/db"
	"github.com/odyssey-erp/bokslut/internal/platform/db/dbtest"
)

func cashSale(workspaceID, periodID uuid.UUID, date time.Time, amount string) ledger.PostingInput {
	a := decimal.RequireFromString(amount)
	return ledger.PostingInput{
		WorkspaceID: workspaceID,
		PeriodID:    periodID,
		EntryDate:   date,
		Description: "Kontantförsäljning",
		EntryType:   ledger.EntryTypeIncome,
		Lines: []ledger.PostingLineInput{
			{AccountNumber: 1930, AccountName: "Företagskonto", Debit: a},
			{AccountNumber: 3001, AccountName: "Försäljning", Credit: a},
		},
	}
}

func TestPostgresPostingNumbersConcurrentEntriesWithoutGaps(t *testing.T) {
	pool := dbtest.Postgres(t)
	ctx := context.Background()
	workspaceID := uuid.New()
	periodID := dbtest.InsertPeriod(t, pool, workspaceID, "2024",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	svc := ledger.NewService(ledger.NewRepository(pool), nil, nil, nil)

	const n = 20
	numbers := make([]int, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry, err := svc.PostEntry(ctx, cashSale(workspaceID, periodID, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "100.00"))
			errs[i] = err
			numbers[i] = entry.VerificationNumber
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	sort.Ints(numbers)
	for i, got := range numbers {
		require.Equal(t, i+1, got)
	}

	tb, err := svc.TrialBalance(ctx, workspaceID, periodID, ledger.DefaultRangeTable())
	require.NoError(t, err)
	require.True(t, tb.Balanced)
}

func TestPostgresRejectsSecondEntryForSameSource(t *testing.T) {
	pool := dbtest.Postgres(t)
	ctx := context.Background()
	workspaceID := uuid.New()
	periodID := dbtest.InsertPeriod(t, pool, workspaceID, "2024",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	svc := ledger.NewService(ledger.NewRepository(pool), nil, nil, nil)

	invoiceID := uuid.New()
	in := cashSale(workspaceID, periodID, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), "250.00")
	in.EntryType = ledger.EntryTypeInvoice
	in.SourceType = ledger.SourceInvoiceSent
	in.SourceID = &invoiceID

	first, err := svc.PostEntry(ctx, in)
	require.NoError(t, err)
	require.Equal(t, 1, first.VerificationNumber)

	_, err = svc.PostEntry(ctx, in)
	require.ErrorIs(t, err, ledger.ErrSourceAlreadyLinked)

	found, err := svc.FindEntryBySource(ctx, workspaceID, ledger.SourceInvoiceSent, invoiceID)
	require.NoError(t, err)
	require.Equal(t, first.ID, found.ID)
	require.Len(t, found.Lines, 2)
}

func TestPostgresLockedPeriodRejectsWritesAndUnlock(t *testing.T) {
	pool := dbtest.Postgres(t)
	ctx := context.Background()
	workspaceID := uuid.New()
	periodID := dbtest.InsertPeriod(t, pool, workspaceID, "2023",
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC))
	svc := ledger.NewService(ledger.NewRepository(pool), nil, nil, nil)

	entry, err := svc.PostEntry(ctx, cashSale(workspaceID, periodID, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), "80.00"))
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `UPDATE fiscal_periods SET is_locked=TRUE, locked_at=NOW() WHERE id=$1`, periodID)
	require.NoError(t, err)

	_, err = svc.PostEntry(ctx, cashSale(workspaceID, periodID, time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC), "10.00"))
	require.ErrorIs(t, err, ledger.ErrPeriodLocked)

	_, err = pool.Exec(ctx, `UPDATE fiscal_periods SET is_locked=FALSE WHERE id=$1`, periodID)
	require.True(t, db.IsPrerequisiteState(err), "unlock should fail: %v", err)

	_, err = pool.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1`, entry.ID)
	require.True(t, db.IsPrerequisiteState(err), "delete should fail: %v", err)

	_, err = pool.Exec(ctx, `UPDATE journal_entry_lines SET debit=1 WHERE entry_id=$1 AND debit > 0`, entry.ID)
	require.True(t, db.IsPrerequisiteState(err), "line update should fail: %v", err)
}
