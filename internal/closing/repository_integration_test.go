package closing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bokslut/internal/closing"
	"github.com/odyssey-erp/bokslut/internal/ledger"
	"github.com/odyssey-erp/bokslut/internal/platform/db/dbtest"
	"github.com/odyssey-erp/bokslut/internal/shared"
)

func TestPostgresClosingRunsToFinalizedOnce(t *testing.T) {
	pool := dbtest.Postgres(t)
	ctx := context.Background()
	workspaceID, actorID := uuid.New(), uuid.New()
	periodID := dbtest.InsertPeriod(t, pool, workspaceID, "2023",
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC))

	ledgerSvc := ledger.NewService(ledger.NewRepository(pool), nil, nil, nil)
	_, err := ledgerSvc.PostEntry(ctx, ledger.PostingInput{
		WorkspaceID: workspaceID,
		PeriodID:    periodID,
		EntryDate:   time.Date(2023, 9, 15, 0, 0, 0, 0, time.UTC),
		Description: "Konsultarvode",
		EntryType:   ledger.EntryTypeIncome,
		Lines: []ledger.PostingLineInput{
			{AccountNumber: 1930, AccountName: "Företagskonto", Debit: decimal.RequireFromString("10000")},
			{AccountNumber: 3041, AccountName: "Försäljning tjänster", Credit: decimal.RequireFromString("10000")},
		},
	})
	require.NoError(t, err)

	cfg := closing.DefaultConfig()
	cfg.Location = time.UTC
	svc := closing.NewService(closing.NewRepository(pool), ledgerSvc, nil, nil, cfg, nil)
	svc.WithNow(func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) })

	status, err := svc.GetReconciliationStatus(ctx, workspaceID, periodID)
	require.NoError(t, err)
	require.True(t, status.TotalAssets.Equal(decimal.RequireFromString("10000")))

	_, err = svc.CompleteReconciliation(ctx, workspaceID, periodID, actorID)
	require.NoError(t, err)
	_, err = svc.SelectPackage(ctx, workspaceID, periodID, actorID, closing.PackageK2)
	require.NoError(t, err)
	_, err = svc.MarkClosingEntriesCreated(ctx, workspaceID, periodID, actorID)
	require.NoError(t, err)

	calc, err := svc.CalculateTax(ctx, workspaceID, periodID)
	require.NoError(t, err)
	require.True(t, calc.CalculatedTax.Equal(decimal.RequireFromString("2060")), "tax %s", calc.CalculatedTax)
	_, err = svc.SaveTaxCalculation(ctx, workspaceID, periodID, actorID, calc.ProfitBeforeTax, calc.CalculatedTax)
	require.NoError(t, err)

	const racers = 4
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Finalize(ctx, workspaceID, periodID, actorID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		require.True(t, errors.Is(err, shared.ErrConflict) || errors.Is(err, shared.ErrInvalidTransition), "unexpected error: %v", err)
	}
	require.Equal(t, 1, wins)

	view, err := svc.GetClosing(ctx, workspaceID, periodID)
	require.NoError(t, err)
	require.Equal(t, closing.StatusFinalized, view.Closing.Status)
	require.True(t, view.Period.IsLocked)
	require.NotNil(t, view.Closing.FinalizedAt)

	_, err = svc.SelectPackage(ctx, workspaceID, periodID, actorID, closing.PackageK3)
	require.ErrorIs(t, err, closing.ErrAlreadyFinalized)
}
