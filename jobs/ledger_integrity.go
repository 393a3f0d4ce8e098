package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	jobmetrics "github.com/odyssey-erp/bokslut/internal/jobs"
	"github.com/odyssey-erp/bokslut/internal/ledger"
	"github.com/odyssey-erp/bokslut/internal/shared"
)

// EntryTotal is the aggregated shape of one journal entry.
type EntryTotal struct {
	EntryID            uuid.UUID
	VerificationNumber int
	Lines              int
	Debit              decimal.Decimal
	Credit             decimal.Decimal
}

// IntegrityStore reads what the integrity check needs.
type IntegrityStore interface {
	OpenPeriods(ctx context.Context, workspaceID *uuid.UUID) ([]ledger.FiscalPeriod, error)
	EntryTotals(ctx context.Context, workspaceID, periodID uuid.UUID) ([]EntryTotal, error)
}

// PeriodFindings lists the defects found in one period.
type PeriodFindings struct {
	WorkspaceID uuid.UUID
	PeriodID    uuid.UUID
	Unbalanced  []int
	TooFewLines []int
	Duplicates  []int
	Gaps        []int
}

// Clean reports whether the period has no defects. Gaps alone are allowed:
// numbering may skip after a rolled back posting.
func (f PeriodFindings) Clean() bool {
	return len(f.Unbalanced) == 0 && len(f.TooFewLines) == 0 && len(f.Duplicates) == 0
}

// CheckPeriod inspects the entries of one period.
func CheckPeriod(entries []EntryTotal) PeriodFindings {
	var out PeriodFindings
	seen := make(map[int]int, len(entries))
	max := 0
	for _, e := range entries {
		seen[e.VerificationNumber]++
		if e.VerificationNumber > max {
			max = e.VerificationNumber
		}
		if !shared.WithinTolerance(e.Debit, e.Credit) {
			out.Unbalanced = append(out.Unbalanced, e.VerificationNumber)
		}
		if e.Lines < 2 {
			out.TooFewLines = append(out.TooFewLines, e.VerificationNumber)
		}
	}
	for n := 1; n <= max; n++ {
		switch c := seen[n]; {
		case c == 0:
			out.Gaps = append(out.Gaps, n)
		case c > 1:
			out.Duplicates = append(out.Duplicates, n)
		}
	}
	sort.Ints(out.Unbalanced)
	sort.Ints(out.TooFewLines)
	return out
}

// LedgerIntegrityJob verifies the ledger invariants of every open period.
type LedgerIntegrityJob struct {
	Store   IntegrityStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewLedgerIntegrityJob initialises the integrity handler.
func NewLedgerIntegrityJob(store IntegrityStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{
		Store:   store,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the integrity check.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload LedgerIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("ledger integrity: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	defer func() { err = tracker.End(err) }()

	_, err = j.Run(ctx, payload.WorkspaceID)
	return err
}

// Run checks every open period and returns the periods with findings.
func (j *LedgerIntegrityJob) Run(ctx context.Context, workspaceID *uuid.UUID) ([]PeriodFindings, error) {
	start := j.clock()
	logger := j.logger()
	periods, err := j.Store.OpenPeriods(ctx, workspaceID)
	if err != nil {
		logger.Error("ledger integrity: list periods", slog.Any("error", err))
		return nil, err
	}

	var flagged []PeriodFindings
	for _, p := range periods {
		entries, err := j.Store.EntryTotals(ctx, p.WorkspaceID, p.ID)
		if err != nil {
			return flagged, fmt.Errorf("ledger integrity: period %s: %w", p.ID, err)
		}
		f := CheckPeriod(entries)
		f.WorkspaceID, f.PeriodID = p.WorkspaceID, p.ID

		j.Metrics.AddIntegrityViolations("unbalanced", len(f.Unbalanced))
		j.Metrics.AddIntegrityViolations("too_few_lines", len(f.TooFewLines))
		j.Metrics.AddIntegrityViolations("duplicate_number", len(f.Duplicates))
		j.Metrics.AddIntegrityViolations("gap", len(f.Gaps))

		if len(f.Gaps) > 0 {
			logger.Info("verification numbering has gaps",
				slog.String("period_id", p.ID.String()),
				slog.Any("missing", f.Gaps),
			)
		}
		if !f.Clean() {
			logger.Error("ledger integrity violated",
				slog.String("workspace_id", p.WorkspaceID.String()),
				slog.String("period_id", p.ID.String()),
				slog.Any("unbalanced", f.Unbalanced),
				slog.Any("too_few_lines", f.TooFewLines),
				slog.Any("duplicates", f.Duplicates),
			)
			flagged = append(flagged, f)
		}
	}
	logger.Info("ledger integrity check completed",
		slog.Int("periods", len(periods)),
		slog.Int("flagged", len(flagged)),
		slog.Duration("duration", j.clock().Sub(start)),
	)
	return flagged, nil
}

func (j *LedgerIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskLedgerIntegrity))
}

// PgIntegrityStore reads entry aggregates from PostgreSQL.
type PgIntegrityStore struct {
	pool *pgxpool.Pool
}

// NewPgIntegrityStore constructs the store.
func NewPgIntegrityStore(pool *pgxpool.Pool) *PgIntegrityStore {
	return &PgIntegrityStore{pool: pool}
}

// OpenPeriods lists unlocked periods, optionally of one workspace.
func (s *PgIntegrityStore) OpenPeriods(ctx context.Context, workspaceID *uuid.UUID) ([]ledger.FiscalPeriod, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+ledger.PeriodColumns+` FROM fiscal_periods
WHERE is_locked = FALSE AND ($1::uuid IS NULL OR workspace_id = $1) ORDER BY workspace_id, start_date`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.FiscalPeriod
	for rows.Next() {
		p, err := ledger.ScanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// EntryTotals aggregates lines per entry of a period.
func (s *PgIntegrityStore) EntryTotals(ctx context.Context, workspaceID, periodID uuid.UUID) ([]EntryTotal, error) {
	rows, err := s.pool.Query(ctx, `SELECT e.id, e.verification_number, COUNT(l.id), COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM journal_entries e LEFT JOIN journal_entry_lines l ON l.entry_id = e.id
WHERE e.workspace_id = $1 AND e.period_id = $2
GROUP BY e.id, e.verification_number ORDER BY e.verification_number`, workspaceID, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EntryTotal
	for rows.Next() {
		var e EntryTotal
		if err := rows.Scan(&e.EntryID, &e.VerificationNumber, &e.Lines, &e.Debit, &e.Credit); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
