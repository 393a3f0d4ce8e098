package closing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/bokslut/internal/ledger"
	"github.com/odyssey-erp/bokslut/internal/shared"
)

// Store is the closing persistence available inside a transaction.
type Store interface {
	transitioner
	GetPeriod(ctx context.Context, workspaceID, periodID uuid.UUID) (ledger.FiscalPeriod, error)
	// EnsureClosing inserts a not_started record unless one exists.
	EnsureClosing(ctx context.Context, workspaceID, periodID uuid.UUID) error
	GetClosing(ctx context.Context, workspaceID, periodID uuid.UUID) (AnnualClosing, error)
	// LockPeriod sets is_locked only while it is false and reports whether
	// the row changed.
	LockPeriod(ctx context.Context, workspaceID, periodID, actorID uuid.UUID, at time.Time) (bool, error)
}

// RepositoryPort runs closing work in transactions.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, Store) error) error
	WithSerializableTx(ctx context.Context, fn func(context.Context, Store) error) error
}

// LedgerPort supplies the per-account totals of a period.
type LedgerPort interface {
	SumByAccountRange(ctx context.Context, workspaceID, periodID uuid.UUID, r ledger.AccountRange) ([]ledger.AccountTotals, error)
}

// AuditPort records closing transitions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort observes transition attempts.
type MetricsPort interface {
	ObserveClosingTransition(target string, err error)
}

// Config parameterises the closing workflow.
type Config struct {
	TaxRate           decimal.Decimal
	FinalizeGraceDays int
	Location          *time.Location
	Ranges            ledger.RangeTable
}

// DefaultConfig matches a Swedish aktiebolag on the BAS chart.
func DefaultConfig() Config {
	loc, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		loc = time.UTC
	}
	return Config{
		TaxRate:           DefaultTaxRate,
		FinalizeGraceDays: 2,
		Location:          loc,
		Ranges:            ledger.DefaultRangeTable(),
	}
}

// Service drives the annual closing state machine.
type Service struct {
	repo    RepositoryPort
	ledger  LedgerPort
	audit   AuditPort
	metrics MetricsPort
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs the closing service.
func NewService(repo RepositoryPort, ledgerPort LedgerPort, audit AuditPort, metrics MetricsPort, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if len(cfg.Ranges) == 0 {
		cfg.Ranges = ledger.DefaultRangeTable()
	}
	return &Service{repo: repo, ledger: ledgerPort, audit: audit, metrics: metrics, cfg: cfg, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// GetClosing returns the closing of a period, creating it on first access.
func (s *Service) GetClosing(ctx context.Context, workspaceID, periodID uuid.UUID) (View, error) {
	var view View
	err := s.repo.WithTx(ctx, func(ctx context.Context, store Store) error {
		var err error
		view, err = loadOrCreate(ctx, store, workspaceID, periodID)
		return err
	})
	return view, err
}

// GetReconciliationStatus classifies the period's account totals.
func (s *Service) GetReconciliationStatus(ctx context.Context, workspaceID, periodID uuid.UUID) (ReconciliationStatus, error) {
	totals, err := s.ledger.SumByAccountRange(ctx, workspaceID, periodID, s.cfg.Ranges.Bounds())
	if err != nil {
		return ReconciliationStatus{}, err
	}
	return Reconcile(totals, s.cfg.Ranges), nil
}

// CalculateTax estimates corporate tax from the period's result accounts.
func (s *Service) CalculateTax(ctx context.Context, workspaceID, periodID uuid.UUID) (TaxCalculation, error) {
	totals, err := s.ledger.SumByAccountRange(ctx, workspaceID, periodID, s.cfg.Ranges.Bounds())
	if err != nil {
		return TaxCalculation{}, err
	}
	return EstimateTax(totals, s.cfg.Ranges, s.cfg.TaxRate), nil
}

// Summary is the closing with its reconciliation and tax estimate.
type Summary struct {
	View
	Reconciliation ReconciliationStatus `json:"reconciliation"`
	Tax            TaxCalculation       `json:"tax"`
}

// Summary loads the closing, reconciliation and tax estimate concurrently.
func (s *Service) Summary(ctx context.Context, workspaceID, periodID uuid.UUID) (Summary, error) {
	var out Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		view, err := s.GetClosing(gctx, workspaceID, periodID)
		out.View = view
		return err
	})
	g.Go(func() error {
		rec, err := s.GetReconciliationStatus(gctx, workspaceID, periodID)
		out.Reconciliation = rec
		return err
	})
	g.Go(func() error {
		tax, err := s.CalculateTax(gctx, workspaceID, periodID)
		out.Tax = tax
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return out, nil
}

// CompleteReconciliation moves not_started to reconciliation_complete.
func (s *Service) CompleteReconciliation(ctx context.Context, workspaceID, periodID, actorID uuid.UUID) (AnnualClosing, error) {
	return s.advance(ctx, workspaceID, periodID, StatusReconciliationComplete, Mutation{ActorID: actorID})
}

// SelectPackage stores the K-framework choice.
func (s *Service) SelectPackage(ctx context.Context, workspaceID, periodID, actorID uuid.UUID, pkg Package) (AnnualClosing, error) {
	if !pkg.Valid() {
		return AnnualClosing{}, ErrInvalidPackage
	}
	return s.advance(ctx, workspaceID, periodID, StatusPackageSelected, Mutation{ActorID: actorID, Package: &pkg})
}

// MarkClosingEntriesCreated records that year-end entries have been booked.
func (s *Service) MarkClosingEntriesCreated(ctx context.Context, workspaceID, periodID, actorID uuid.UUID) (AnnualClosing, error) {
	return s.advance(ctx, workspaceID, periodID, StatusClosingEntriesCreated, Mutation{ActorID: actorID})
}

// SaveTaxCalculation stores the profit and tax the user accepted.
func (s *Service) SaveTaxCalculation(ctx context.Context, workspaceID, periodID, actorID uuid.UUID, profit, tax decimal.Decimal) (AnnualClosing, error) {
	if tax.IsNegative() {
		return AnnualClosing{}, ErrInvalidAmount
	}
	profit, tax = shared.Round2(profit), shared.Round2(tax)
	return s.advance(ctx, workspaceID, periodID, StatusTaxCalculated, Mutation{ActorID: actorID, Profit: &profit, Tax: &tax})
}

// Finalize locks the fiscal period and completes the closing in one
// serializable transaction. Losing a race to another session surfaces as
// a conflict and leaves both records as the winner wrote them.
func (s *Service) Finalize(ctx context.Context, workspaceID, periodID, actorID uuid.UUID) (AnnualClosing, error) {
	at := s.now()
	var closing AnnualClosing
	err := s.repo.WithSerializableTx(ctx, func(ctx context.Context, store Store) error {
		view, err := loadOrCreate(ctx, store, workspaceID, periodID)
		if err != nil {
			return err
		}
		current := view.Closing
		if current.Status == StatusFinalized {
			return ErrAlreadyFinalized
		}
		if current.Status != StatusTaxCalculated {
			return invalidTransition(current.Status, StatusFinalized)
		}
		if view.Period.IsLocked {
			return ErrPeriodAlreadyLocked
		}
		if !s.finalizeAllowed(view.Period, at) {
			return ErrFinalizeTooEarly
		}
		locked, err := store.LockPeriod(ctx, workspaceID, periodID, actorID, at)
		if err != nil {
			return err
		}
		if !locked {
			return ErrPeriodAlreadyLocked
		}
		closing, err = tryTransition(ctx, store, current, StatusFinalized, Mutation{ActorID: actorID, At: at})
		return err
	})
	s.record(ctx, workspaceID, periodID, actorID, StatusFinalized, closing, err)
	if err != nil {
		return AnnualClosing{}, err
	}
	return closing, nil
}

// finalizeAllowed compares calendar dates in the closing time zone: the
// earliest allowed day is the period end plus the grace days.
func (s *Service) finalizeAllowed(period ledger.FiscalPeriod, now time.Time) bool {
	y, m, d := now.In(s.cfg.Location).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	ey, em, ed := period.EndDate.Date()
	earliest := time.Date(ey, em, ed+s.cfg.FinalizeGraceDays, 0, 0, 0, 0, time.UTC)
	return !today.Before(earliest)
}

func (s *Service) advance(ctx context.Context, workspaceID, periodID uuid.UUID, target Status, m Mutation) (AnnualClosing, error) {
	if m.At.IsZero() {
		m.At = s.now()
	}
	var closing AnnualClosing
	err := s.repo.WithTx(ctx, func(ctx context.Context, store Store) error {
		view, err := loadOrCreate(ctx, store, workspaceID, periodID)
		if err != nil {
			return err
		}
		closing, err = tryTransition(ctx, store, view.Closing, target, m)
		return err
	})
	s.record(ctx, workspaceID, periodID, m.ActorID, target, closing, err)
	if err != nil {
		return AnnualClosing{}, err
	}
	return closing, nil
}

func (s *Service) record(ctx context.Context, workspaceID, periodID, actorID uuid.UUID, target Status, closing AnnualClosing, err error) {
	if s.metrics != nil {
		s.metrics.ObserveClosingTransition(string(target), err)
	}
	if err != nil {
		level := slog.LevelWarn
		if !isExpected(err) {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "closing transition rejected",
			slog.String("workspace_id", workspaceID.String()),
			slog.String("period_id", periodID.String()),
			slog.String("target", string(target)),
			slog.Any("error", err),
		)
		return
	}
	s.logger.Info("closing transition applied",
		slog.String("workspace_id", workspaceID.String()),
		slog.String("period_id", periodID.String()),
		slog.String("status", string(closing.Status)),
	)
	if s.audit == nil {
		return
	}
	meta := map[string]any{"period_id": periodID.String(), "status": string(closing.Status)}
	if closing.Package != nil {
		meta["package"] = string(*closing.Package)
	}
	if closing.CalculatedTax != nil {
		meta["calculated_tax"] = closing.CalculatedTax.StringFixed(2)
	}
	if auditErr := s.audit.Record(ctx, shared.AuditLog{
		WorkspaceID: workspaceID,
		ActorID:     actorID,
		Action:      "closing." + string(target),
		Entity:      "annual_closing",
		EntityID:    closing.ID.String(),
		Meta:        meta,
		At:          s.now(),
	}); auditErr != nil {
		s.logger.Warn("audit closing transition", slog.Any("error", auditErr))
	}
}

func isExpected(err error) bool {
	return errors.Is(err, shared.ErrInvalidTransition) ||
		errors.Is(err, shared.ErrConflict) ||
		errors.Is(err, shared.ErrPreconditionNotMet) ||
		errors.Is(err, shared.ErrNotFound) ||
		errors.Is(err, shared.ErrValidation)
}

// loadOrCreate reads the period, inserts the closing if absent and re-reads
// it. Concurrent first readers all observe the single winning row.
func loadOrCreate(ctx context.Context, store Store, workspaceID, periodID uuid.UUID) (View, error) {
	if workspaceID == uuid.Nil {
		return View{}, ledger.ErrWorkspaceRequired
	}
	period, err := store.GetPeriod(ctx, workspaceID, periodID)
	if err != nil {
		return View{}, err
	}
	if err := store.EnsureClosing(ctx, workspaceID, periodID); err != nil {
		return View{}, err
	}
	closing, err := store.GetClosing(ctx, workspaceID, periodID)
	if err != nil {
		return View{}, err
	}
	return View{Closing: closing, Period: period}, nil
}
