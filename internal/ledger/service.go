package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/bokslut/internal/shared"
)

// RepositoryPort abstracts the ledger store.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPeriod(ctx context.Context, workspaceID, periodID uuid.UUID) (FiscalPeriod, error)
	FindPeriodByDate(ctx context.Context, workspaceID uuid.UUID, date time.Time) (FiscalPeriod, error)
	SumByAccountRange(ctx context.Context, workspaceID, periodID uuid.UUID, r AccountRange) ([]AccountTotals, error)
	ListEntries(ctx context.Context, workspaceID, periodID uuid.UUID, filter ListFilter) ([]JournalEntry, int, error)
	GetEntry(ctx context.Context, workspaceID, entryID uuid.UUID) (JournalEntry, error)
	FindEntryBySource(ctx context.Context, workspaceID uuid.UUID, source SourceType, sourceID uuid.UUID) (JournalEntry, error)
}

// TxRepository exposes the operations that must share the posting transaction.
type TxRepository interface {
	NumberSource
	LockPeriodForPosting(ctx context.Context, workspaceID, periodID uuid.UUID) (FiscalPeriod, error)
	InsertEntry(ctx context.Context, in PostingInput, number int) (JournalEntry, error)
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort observes posting outcomes.
type MetricsPort interface {
	ObservePosting(source string, err error)
}

// Service posts verifications and answers ledger queries.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics MetricsPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, metrics: metrics, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PostEntry validates and persists a verification with the next number of its period.
func (s *Service) PostEntry(ctx context.Context, in PostingInput) (JournalEntry, error) {
	if in.SourceType == "" {
		in.SourceType = SourceManual
	}
	entry, err := s.postEntry(ctx, in)
	if s.metrics != nil {
		s.metrics.ObservePosting(string(in.SourceType), err)
	}
	if err != nil {
		return JournalEntry{}, err
	}

	s.logger.Info("journal entry posted",
		slog.String("workspace_id", entry.WorkspaceID.String()),
		slog.String("period_id", entry.PeriodID.String()),
		slog.Int("verification_number", entry.VerificationNumber),
		slog.String("source_type", string(entry.SourceType)),
	)
	if s.audit != nil {
		meta := map[string]any{
			"verification_number": entry.VerificationNumber,
			"period_id":           entry.PeriodID.String(),
			"source_type":         string(entry.SourceType),
		}
		if entry.SourceID != nil {
			meta["source_id"] = entry.SourceID.String()
		}
		if err := s.audit.Record(ctx, shared.AuditLog{
			WorkspaceID: entry.WorkspaceID,
			ActorID:     entry.CreatedBy,
			Action:      "journal.post",
			Entity:      "journal_entry",
			EntityID:    entry.ID.String(),
			Meta:        meta,
			At:          s.now(),
		}); err != nil {
			s.logger.Warn("audit journal post", slog.Any("error", err))
		}
	}
	return entry, nil
}

func (s *Service) postEntry(ctx context.Context, in PostingInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	in.EntryDate = civilDate(in.EntryDate)
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.LockPeriodForPosting(ctx, in.WorkspaceID, in.PeriodID)
		if err != nil {
			return err
		}
		if period.IsLocked {
			return ErrPeriodLocked
		}
		if !period.Contains(in.EntryDate) {
			return ErrDateOutOfRange
		}
		number, err := NextVerificationNumber(ctx, tx, in.WorkspaceID, in.PeriodID)
		if err != nil {
			return err
		}
		entry, err = tx.InsertEntry(ctx, in, number)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// GetPeriod returns a period of the workspace.
func (s *Service) GetPeriod(ctx context.Context, workspaceID, periodID uuid.UUID) (FiscalPeriod, error) {
	return s.repo.GetPeriod(ctx, workspaceID, periodID)
}

// FindPeriodByDate returns the period whose range contains the calendar day
// of date, read in date's own location.
func (s *Service) FindPeriodByDate(ctx context.Context, workspaceID uuid.UUID, date time.Time) (FiscalPeriod, error) {
	return s.repo.FindPeriodByDate(ctx, workspaceID, civilDate(date))
}

// SumByAccountRange returns per-account totals of the period within r.
func (s *Service) SumByAccountRange(ctx context.Context, workspaceID, periodID uuid.UUID, r AccountRange) ([]AccountTotals, error) {
	if _, err := s.repo.GetPeriod(ctx, workspaceID, periodID); err != nil {
		return nil, err
	}
	return s.repo.SumByAccountRange(ctx, workspaceID, periodID, r)
}

// ListEntries returns a page of the period's entries, newest number first.
func (s *Service) ListEntries(ctx context.Context, workspaceID, periodID uuid.UUID, filter ListFilter) ([]JournalEntry, int, error) {
	if _, err := s.repo.GetPeriod(ctx, workspaceID, periodID); err != nil {
		return nil, 0, err
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.ListEntries(ctx, workspaceID, periodID, filter)
}

// GetEntry returns one entry with its lines.
func (s *Service) GetEntry(ctx context.Context, workspaceID, entryID uuid.UUID) (JournalEntry, error) {
	return s.repo.GetEntry(ctx, workspaceID, entryID)
}

// FindEntryBySource returns the entry produced by a given source.
func (s *Service) FindEntryBySource(ctx context.Context, workspaceID uuid.UUID, source SourceType, sourceID uuid.UUID) (JournalEntry, error) {
	return s.repo.FindEntryBySource(ctx, workspaceID, source, sourceID)
}

// TrialBalance aggregates the period's totals into a trial balance.
func (s *Service) TrialBalance(ctx context.Context, workspaceID, periodID uuid.UUID, table RangeTable) (TrialBalance, error) {
	bounds := AccountRange{Min: 1, Max: 9999}
	totals, err := s.SumByAccountRange(ctx, workspaceID, periodID, bounds)
	if err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(totals, table), nil
}
