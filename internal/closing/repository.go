package closing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bokslut/internal/ledger"
	"github.com/odyssey-erp/bokslut/internal/platform/db"
)

const closingColumns = `id, workspace_id, period_id, status, closing_package,
reconciliation_completed_at, reconciliation_completed_by,
package_selected_at, package_selected_by,
closing_entries_created_at, closing_entries_created_by,
tax_calculated_at, tax_calculated_by, calculated_profit, calculated_tax,
finalized_at, finalized_by, created_at, updated_at`

// stampColumns names the actor/time columns each target status writes.
var stampColumns = map[Status][2]string{
	StatusReconciliationComplete: {"reconciliation_completed_at", "reconciliation_completed_by"},
	StatusPackageSelected:        {"package_selected_at", "package_selected_by"},
	StatusClosingEntriesCreated:  {"closing_entries_created_at", "closing_entries_created_by"},
	StatusTaxCalculated:          {"tax_calculated_at", "tax_calculated_by"},
	StatusFinalized:              {"finalized_at", "finalized_by"},
}

// Repository persists annual closings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txStore struct {
	tx pgx.Tx
}

// WithTx runs fn in a read-committed transaction; the conditional updates
// carry the concurrency guarantees.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	if r == nil || r.pool == nil {
		return errors.New("closing repository not initialised")
	}
	return db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

// WithSerializableTx runs fn in a serializable transaction.
func (r *Repository) WithSerializableTx(ctx context.Context, fn func(context.Context, Store) error) error {
	if r == nil || r.pool == nil {
		return errors.New("closing repository not initialised")
	}
	return db.WithTx(ctx, r.pool, db.Serializable, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

func (s *txStore) GetPeriod(ctx context.Context, workspaceID, periodID uuid.UUID) (ledger.FiscalPeriod, error) {
	row := s.tx.QueryRow(ctx, `SELECT `+ledger.PeriodColumns+` FROM fiscal_periods WHERE id=$1 AND workspace_id=$2`, periodID, workspaceID)
	return ledger.ScanPeriod(row)
}

func (s *txStore) EnsureClosing(ctx context.Context, workspaceID, periodID uuid.UUID) error {
	_, err := s.tx.Exec(ctx, `INSERT INTO annual_closings (workspace_id, period_id, status)
VALUES ($1, $2, $3) ON CONFLICT (workspace_id, period_id) DO NOTHING`, workspaceID, periodID, StatusNotStarted)
	return err
}

func (s *txStore) GetClosing(ctx context.Context, workspaceID, periodID uuid.UUID) (AnnualClosing, error) {
	row := s.tx.QueryRow(ctx, `SELECT `+closingColumns+` FROM annual_closings WHERE workspace_id=$1 AND period_id=$2`, workspaceID, periodID)
	c, err := scanClosing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return AnnualClosing{}, ErrClosingNotFound
	}
	return c, err
}

func (s *txStore) TransitionStatus(ctx context.Context, workspaceID, closingID uuid.UUID, from, to Status, m Mutation) (AnnualClosing, bool, error) {
	stamp, ok := stampColumns[to]
	if !ok {
		return AnnualClosing{}, false, invalidTransition(from, to)
	}
	query := fmt.Sprintf(`UPDATE annual_closings SET status=$4, %s=$5, %s=$6,
closing_package=COALESCE($7, closing_package),
calculated_profit=COALESCE($8, calculated_profit),
calculated_tax=COALESCE($9, calculated_tax),
updated_at=NOW()
WHERE id=$1 AND workspace_id=$2 AND status=$3
RETURNING `+closingColumns, stamp[0], stamp[1])
	row := s.tx.QueryRow(ctx, query, closingID, workspaceID, from, to, m.At, nullUUID(m.ActorID), m.Package, m.Profit, m.Tax)
	c, err := scanClosing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AnnualClosing{}, false, nil
		}
		return AnnualClosing{}, false, err
	}
	return c, true, nil
}

func (s *txStore) LockPeriod(ctx context.Context, workspaceID, periodID, actorID uuid.UUID, at time.Time) (bool, error) {
	cmd, err := s.tx.Exec(ctx, `UPDATE fiscal_periods SET is_locked=TRUE, locked_at=$3, locked_by=$4, updated_at=NOW()
WHERE id=$1 AND workspace_id=$2 AND is_locked=FALSE`, periodID, workspaceID, at, nullUUID(actorID))
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func scanClosing(row pgx.Row) (AnnualClosing, error) {
	var c AnnualClosing
	err := row.Scan(&c.ID, &c.WorkspaceID, &c.PeriodID, &c.Status, &c.Package,
		&c.ReconciliationCompletedAt, &c.ReconciliationCompletedBy,
		&c.PackageSelectedAt, &c.PackageSelectedBy,
		&c.ClosingEntriesCreatedAt, &c.ClosingEntriesCreatedBy,
		&c.TaxCalculatedAt, &c.TaxCalculatedBy, &c.CalculatedProfit, &c.CalculatedTax,
		&c.FinalizedAt, &c.FinalizedBy, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
