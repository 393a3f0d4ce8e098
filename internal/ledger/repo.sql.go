package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bokslut/internal/platform/db"
	"github.com/odyssey-erp/bokslut/internal/shared"
)

const (
	constraintVerification = "uq_journal_entries_verification"
	constraintSource       = "uq_journal_entries_source"
)

// PeriodColumns is the select list ScanPeriod expects.
const PeriodColumns = `id, workspace_id, name, start_date, end_date, is_locked, locked_at, locked_by, created_at, updated_at`

const entryColumns = `id, workspace_id, period_id, verification_number, entry_date, description, entry_type, source_type, source_id, created_by, created_at`

// Repository persists ledger entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a read-committed transaction. Posting takes the
// period's advisory lock first, so every later statement sees the rows
// committed by the previous lock holder.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) LockPeriodForPosting(ctx context.Context, workspaceID, periodID uuid.UUID) (FiscalPeriod, error) {
	if _, err := r.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, shared.PeriodLockKey(workspaceID, periodID)); err != nil {
		return FiscalPeriod{}, err
	}
	row := r.tx.QueryRow(ctx, `SELECT `+PeriodColumns+` FROM fiscal_periods WHERE id=$1 AND workspace_id=$2 FOR SHARE`, periodID, workspaceID)
	return ScanPeriod(row)
}

func (r *txRepository) MaxVerificationNumber(ctx context.Context, workspaceID, periodID uuid.UUID) (int, error) {
	var max int
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(verification_number), 0) FROM journal_entries WHERE workspace_id=$1 AND period_id=$2`,
		workspaceID, periodID).Scan(&max)
	return max, err
}

func (r *txRepository) InsertEntry(ctx context.Context, in PostingInput, number int) (JournalEntry, error) {
	entry := JournalEntry{
		WorkspaceID:        in.WorkspaceID,
		PeriodID:           in.PeriodID,
		VerificationNumber: number,
		EntryDate:          in.EntryDate,
		Description:        in.Description,
		EntryType:          in.EntryType,
		SourceType:         in.SourceType,
		SourceID:           in.SourceID,
		CreatedBy:          in.CreatedBy,
	}
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (workspace_id, period_id, verification_number, entry_date, description, entry_type, source_type, source_id, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, created_at`,
		in.WorkspaceID, in.PeriodID, number, in.EntryDate, in.Description, in.EntryType, in.SourceType, in.SourceID, nullUUID(in.CreatedBy)).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return JournalEntry{}, mapWriteError(err)
	}

	entry.Lines = make([]JournalLine, 0, len(in.Lines))
	for i, line := range in.Lines {
		jl := JournalLine{
			EntryID:       entry.ID,
			AccountNumber: line.AccountNumber,
			AccountName:   line.AccountName,
			Debit:         line.Debit,
			Credit:        line.Credit,
			Description:   line.Description,
			SortOrder:     i,
		}
		err := r.tx.QueryRow(ctx, `INSERT INTO journal_entry_lines (entry_id, account_number, account_name, debit, credit, description, sort_order)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			entry.ID, jl.AccountNumber, jl.AccountName, jl.Debit, jl.Credit, jl.Description, jl.SortOrder).Scan(&jl.ID)
		if err != nil {
			return JournalEntry{}, mapWriteError(err)
		}
		entry.Lines = append(entry.Lines, jl)
	}
	return entry, nil
}

// GetPeriod loads a period of the workspace.
func (r *Repository) GetPeriod(ctx context.Context, workspaceID, periodID uuid.UUID) (FiscalPeriod, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+PeriodColumns+` FROM fiscal_periods WHERE id=$1 AND workspace_id=$2`, periodID, workspaceID)
	return ScanPeriod(row)
}

// FindPeriodByDate returns the period covering the supplied date.
func (r *Repository) FindPeriodByDate(ctx context.Context, workspaceID uuid.UUID, date time.Time) (FiscalPeriod, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+PeriodColumns+` FROM fiscal_periods
WHERE workspace_id=$1 AND $2::date BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, workspaceID, civilDate(date))
	return ScanPeriod(row)
}

// SumByAccountRange aggregates committed lines of the period per account.
func (r *Repository) SumByAccountRange(ctx context.Context, workspaceID, periodID uuid.UUID, ar AccountRange) ([]AccountTotals, error) {
	rows, err := r.pool.Query(ctx, `SELECT l.account_number, MAX(l.account_name), COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM journal_entry_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE e.workspace_id=$1 AND e.period_id=$2 AND l.account_number BETWEEN $3 AND $4
GROUP BY l.account_number
ORDER BY l.account_number`, workspaceID, periodID, ar.Min, ar.Max)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var totals []AccountTotals
	for rows.Next() {
		var t AccountTotals
		if err := rows.Scan(&t.AccountNumber, &t.AccountName, &t.Debit, &t.Credit); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// ListEntries returns a page of entries with their lines and the total count.
func (r *Repository) ListEntries(ctx context.Context, workspaceID, periodID uuid.UUID, filter ListFilter) ([]JournalEntry, int, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+`, COUNT(*) OVER()
FROM journal_entries WHERE workspace_id=$1 AND period_id=$2
ORDER BY verification_number DESC LIMIT $3 OFFSET $4`, workspaceID, periodID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var (
		entries []JournalEntry
		total   int
	)
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &e.PeriodID, &e.VerificationNumber, &e.EntryDate, &e.Description,
			&e.EntryType, &e.SourceType, &e.SourceID, &e.CreatedBy, &e.CreatedAt, &total); err != nil {
			return nil, 0, err
		}
		index[e.ID] = len(entries)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(entries) == 0 {
		return entries, total, nil
	}
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, line := range lines {
		i := index[line.EntryID]
		entries[i].Lines = append(entries[i].Lines, line)
	}
	return entries, total, nil
}

// GetEntry loads one entry with lines.
func (r *Repository) GetEntry(ctx context.Context, workspaceID, entryID uuid.UUID) (JournalEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 AND workspace_id=$2`, entryID, workspaceID)
	return r.entryWithLines(ctx, row)
}

// FindEntryBySource loads the entry created for a source document.
func (r *Repository) FindEntryBySource(ctx context.Context, workspaceID uuid.UUID, source SourceType, sourceID uuid.UUID) (JournalEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE workspace_id=$1 AND source_type=$2 AND source_id=$3`,
		workspaceID, source, sourceID)
	return r.entryWithLines(ctx, row)
}

func (r *Repository) entryWithLines(ctx context.Context, row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.WorkspaceID, &e.PeriodID, &e.VerificationNumber, &e.EntryDate, &e.Description,
		&e.EntryType, &e.SourceType, &e.SourceID, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	lines, err := r.loadLines(ctx, []uuid.UUID{e.ID})
	if err != nil {
		return JournalEntry{}, err
	}
	e.Lines = lines
	return e, nil
}

func (r *Repository) loadLines(ctx context.Context, entryIDs []uuid.UUID) ([]JournalLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, entry_id, account_number, account_name, debit, credit, description, sort_order
FROM journal_entry_lines WHERE entry_id = ANY($1) ORDER BY entry_id, sort_order`, entryIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var l JournalLine
		if err := rows.Scan(&l.ID, &l.EntryID, &l.AccountNumber, &l.AccountName, &l.Debit, &l.Credit, &l.Description, &l.SortOrder); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ScanPeriod reads a fiscal_periods row selected with PeriodColumns.
func ScanPeriod(row pgx.Row) (FiscalPeriod, error) {
	var p FiscalPeriod
	err := row.Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.StartDate, &p.EndDate, &p.IsLocked, &p.LockedAt, &p.LockedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FiscalPeriod{}, ErrPeriodNotFound
		}
		return FiscalPeriod{}, err
	}
	return p, nil
}

func mapWriteError(err error) error {
	switch {
	case db.IsUniqueViolation(err, constraintVerification):
		return ErrDuplicateVerification
	case db.IsUniqueViolation(err, constraintSource):
		return ErrSourceAlreadyLinked
	case db.IsPrerequisiteState(err):
		return ErrPeriodLocked
	}
	return err
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
