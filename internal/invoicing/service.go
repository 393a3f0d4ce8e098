package invoicing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bokslut/internal/ledger"
)

// RepositoryPort reads invoices and records their journal entry references.
type RepositoryPort interface {
	GetInvoice(ctx context.Context, workspaceID, invoiceID uuid.UUID) (Invoice, error)
	// LinkSentEntry sets sent_journal_entry_id only while it is NULL and
	// reports whether the row was updated.
	LinkSentEntry(ctx context.Context, workspaceID, invoiceID, entryID uuid.UUID) (bool, error)
	// LinkPaidEntry sets paid_journal_entry_id only while it is NULL.
	LinkPaidEntry(ctx context.Context, workspaceID, invoiceID, entryID uuid.UUID, paidAt time.Time, amount decimal.Decimal) (bool, error)
}

// LedgerPort is the slice of the ledger the posting engine needs.
type LedgerPort interface {
	FindPeriodByDate(ctx context.Context, workspaceID uuid.UUID, date time.Time) (ledger.FiscalPeriod, error)
	PostEntry(ctx context.Context, in ledger.PostingInput) (ledger.JournalEntry, error)
	FindEntryBySource(ctx context.Context, workspaceID uuid.UUID, source ledger.SourceType, sourceID uuid.UUID) (ledger.JournalEntry, error)
}

// MetricsPort observes posting outcomes per invoice event.
type MetricsPort interface {
	ObserveInvoicePosting(event, outcome string)
}

// Service turns invoice lifecycle events into journal entries.
type Service struct {
	repo     RepositoryPort
	ledger   LedgerPort
	accounts PostingAccounts
	metrics  MetricsPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the posting engine.
func NewService(repo RepositoryPort, ledgerPort LedgerPort, accounts PostingAccounts, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, ledger: ledgerPort, accounts: accounts, metrics: metrics, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// OnInvoiceSent posts the revenue/VAT verification of a sent invoice. A
// missing period, a non-positive total, or an existing sent verification are
// reported as outcomes rather than errors.
func (s *Service) OnInvoiceSent(ctx context.Context, workspaceID, invoiceID, actorID uuid.UUID, createVerification bool) (Result, error) {
	res, err := s.onInvoiceSent(ctx, workspaceID, invoiceID, actorID, createVerification)
	s.observe("sent", res, err)
	return res, err
}

func (s *Service) onInvoiceSent(ctx context.Context, workspaceID, invoiceID, actorID uuid.UUID, createVerification bool) (Result, error) {
	inv, err := s.repo.GetInvoice(ctx, workspaceID, invoiceID)
	if err != nil {
		return Result{}, err
	}
	if !createVerification {
		return Result{InvoiceID: inv.ID, Outcome: OutcomeNotRequested}, nil
	}
	if inv.SentJournalEntryID != nil {
		return Result{InvoiceID: inv.ID, Outcome: OutcomeAlreadyPosted, JournalEntryID: inv.SentJournalEntryID}, nil
	}
	return s.postSent(ctx, inv, actorID, false)
}

// CreateSentVerification posts the sent verification after the fact. It fails
// with ErrAlreadyHasVerification when the invoice already carries one.
func (s *Service) CreateSentVerification(ctx context.Context, workspaceID, invoiceID, actorID uuid.UUID) (Result, error) {
	res, err := s.createSentVerification(ctx, workspaceID, invoiceID, actorID)
	s.observe("sent", res, err)
	return res, err
}

func (s *Service) createSentVerification(ctx context.Context, workspaceID, invoiceID, actorID uuid.UUID) (Result, error) {
	inv, err := s.repo.GetInvoice(ctx, workspaceID, invoiceID)
	if err != nil {
		return Result{}, err
	}
	if inv.SentJournalEntryID != nil {
		return Result{}, ErrAlreadyHasVerification
	}
	return s.postSent(ctx, inv, actorID, true)
}

// OnInvoicePaid posts the bank/receivables verification of a payment. Unlike
// sent-posting, a payment date without a fiscal period is an error.
func (s *Service) OnInvoicePaid(ctx context.Context, workspaceID, invoiceID, actorID uuid.UUID, in PaidInput) (Result, error) {
	res, err := s.onInvoicePaid(ctx, workspaceID, invoiceID, actorID, in)
	s.observe("paid", res, err)
	return res, err
}

func (s *Service) onInvoicePaid(ctx context.Context, workspaceID, invoiceID, actorID uuid.UUID, in PaidInput) (Result, error) {
	inv, err := s.repo.GetInvoice(ctx, workspaceID, invoiceID)
	if err != nil {
		return Result{}, err
	}
	if !in.CreateVerification {
		return Result{InvoiceID: inv.ID, Outcome: OutcomeNotRequested}, nil
	}
	if inv.PaidJournalEntryID != nil {
		return Result{InvoiceID: inv.ID, Outcome: OutcomeAlreadyPosted, JournalEntryID: inv.PaidJournalEntryID}, nil
	}
	return s.postPaid(ctx, inv, actorID, in, false)
}

// CreatePaidVerification posts the payment verification after the fact.
func (s *Service) CreatePaidVerification(ctx context.Context, workspaceID, invoiceID, actorID uuid.UUID, in PaidInput) (Result, error) {
	res, err := s.createPaidVerification(ctx, workspaceID, invoiceID, actorID, in)
	s.observe("paid", res, err)
	return res, err
}

func (s *Service) createPaidVerification(ctx context.Context, workspaceID, invoiceID, actorID uuid.UUID, in PaidInput) (Result, error) {
	inv, err := s.repo.GetInvoice(ctx, workspaceID, invoiceID)
	if err != nil {
		return Result{}, err
	}
	if inv.PaidJournalEntryID != nil {
		return Result{}, ErrAlreadyHasVerification
	}
	return s.postPaid(ctx, inv, actorID, in, true)
}

func (s *Service) postSent(ctx context.Context, inv Invoice, actorID uuid.UUID, strict bool) (Result, error) {
	if err := ValidateLines(inv.Lines); err != nil {
		return Result{}, err
	}
	period, err := s.ledger.FindPeriodByDate(ctx, inv.WorkspaceID, inv.InvoiceDate)
	if err != nil {
		if !errors.Is(err, ledger.ErrPeriodNotFound) {
			return Result{}, err
		}
		if strict {
			return Result{}, ErrNoPeriodForSentDate
		}
		s.logger.Info("invoice sent without fiscal period, posting skipped",
			slog.String("invoice_id", inv.ID.String()),
			slog.Time("invoice_date", inv.InvoiceDate),
		)
		return Result{InvoiceID: inv.ID, Outcome: OutcomeNoPeriod}, nil
	}

	b := Calculate(inv.Lines)
	if !b.TotalInclVAT.IsPositive() {
		if strict {
			return Result{}, ErrNothingToPost
		}
		return Result{InvoiceID: inv.ID, Outcome: OutcomeNothingToPost, Breakdown: &b}, nil
	}

	entry, err := s.ledger.PostEntry(ctx, s.sentPosting(inv, period, b, actorID))
	if err != nil {
		if errors.Is(err, ledger.ErrSourceAlreadyLinked) {
			return s.relinkSent(ctx, inv, strict)
		}
		return Result{}, err
	}
	if _, err := s.repo.LinkSentEntry(ctx, inv.WorkspaceID, inv.ID, entry.ID); err != nil {
		return Result{}, fmt.Errorf("invoicing: link sent entry: %w", err)
	}
	return Result{
		InvoiceID:      inv.ID,
		Outcome:        OutcomePosted,
		JournalEntryID: &entry.ID,
		Verification:   entry.VerificationNumber,
		Breakdown:      &b,
	}, nil
}

// relinkSent repairs an invoice whose sent entry was committed but whose
// reference was never written.
func (s *Service) relinkSent(ctx context.Context, inv Invoice, strict bool) (Result, error) {
	existing, err := s.ledger.FindEntryBySource(ctx, inv.WorkspaceID, ledger.SourceInvoiceSent, inv.ID)
	if err != nil {
		return Result{}, err
	}
	if _, err := s.repo.LinkSentEntry(ctx, inv.WorkspaceID, inv.ID, existing.ID); err != nil {
		return Result{}, fmt.Errorf("invoicing: relink sent entry: %w", err)
	}
	if strict {
		return Result{}, ErrAlreadyHasVerification
	}
	return Result{InvoiceID: inv.ID, Outcome: OutcomeAlreadyPosted, JournalEntryID: &existing.ID, Verification: existing.VerificationNumber}, nil
}

func (s *Service) postPaid(ctx context.Context, inv Invoice, actorID uuid.UUID, in PaidInput, strict bool) (Result, error) {
	amount := s.paidAmount(inv, in)
	if !amount.IsPositive() {
		return Result{}, ErrInvalidPaidAmount
	}
	paidDate := s.paidDate(inv, in)

	period, err := s.ledger.FindPeriodByDate(ctx, inv.WorkspaceID, paidDate)
	if err != nil {
		if errors.Is(err, ledger.ErrPeriodNotFound) {
			return Result{}, ErrNoPeriodForDate
		}
		return Result{}, err
	}

	entry, err := s.ledger.PostEntry(ctx, s.paidPosting(inv, period, paidDate, amount, actorID))
	if err != nil {
		if errors.Is(err, ledger.ErrSourceAlreadyLinked) {
			return s.relinkPaid(ctx, inv, paidDate, amount, strict)
		}
		return Result{}, err
	}
	if _, err := s.repo.LinkPaidEntry(ctx, inv.WorkspaceID, inv.ID, entry.ID, paidDate, amount); err != nil {
		return Result{}, fmt.Errorf("invoicing: link paid entry: %w", err)
	}
	return Result{
		InvoiceID:      inv.ID,
		Outcome:        OutcomePosted,
		JournalEntryID: &entry.ID,
		Verification:   entry.VerificationNumber,
	}, nil
}

func (s *Service) relinkPaid(ctx context.Context, inv Invoice, paidDate time.Time, amount decimal.Decimal, strict bool) (Result, error) {
	existing, err := s.ledger.FindEntryBySource(ctx, inv.WorkspaceID, ledger.SourceInvoicePayment, inv.ID)
	if err != nil {
		return Result{}, err
	}
	if _, err := s.repo.LinkPaidEntry(ctx, inv.WorkspaceID, inv.ID, existing.ID, paidDate, amount); err != nil {
		return Result{}, fmt.Errorf("invoicing: relink paid entry: %w", err)
	}
	if strict {
		return Result{}, ErrAlreadyHasVerification
	}
	return Result{InvoiceID: inv.ID, Outcome: OutcomeAlreadyPosted, JournalEntryID: &existing.ID, Verification: existing.VerificationNumber}, nil
}

func (s *Service) paidAmount(inv Invoice, in PaidInput) decimal.Decimal {
	switch {
	case in.PaidAmount != nil:
		return *in.PaidAmount
	case inv.PaidAmount != nil:
		return *inv.PaidAmount
	case !inv.Total.IsZero():
		return inv.Total
	}
	return Calculate(inv.Lines).TotalInclVAT
}

func (s *Service) paidDate(inv Invoice, in PaidInput) time.Time {
	switch {
	case in.PaidDate != nil:
		return *in.PaidDate
	case inv.PaidAt != nil:
		return *inv.PaidAt
	}
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Service) sentPosting(inv Invoice, period ledger.FiscalPeriod, b Breakdown, actorID uuid.UUID) ledger.PostingInput {
	desc := invoiceDescription("Faktura", inv)
	lines := []ledger.PostingLineInput{{
		AccountNumber: s.accounts.Receivables,
		AccountName:   accountNames["receivables"],
		Debit:         b.TotalInclVAT,
		Description:   desc,
	}}
	for _, c := range []struct {
		account int
		name    string
		amount  decimal.Decimal
	}{
		{s.accounts.Services, accountNames["services"], b.ServiceAmount},
		{s.accounts.Goods, accountNames["goods"], b.GoodsAmount},
		{s.accounts.OutputVAT25, accountNames["vat25"], b.VAT25},
		{s.accounts.OutputVAT12, accountNames["vat12"], b.VAT12},
		{s.accounts.OutputVAT6, accountNames["vat6"], b.VAT6},
	} {
		if c.amount.IsZero() {
			continue
		}
		line := ledger.PostingLineInput{AccountNumber: c.account, AccountName: c.name, Description: desc}
		// Credit notes inside an invoice can push a component below zero;
		// it then reduces the total from the debit side.
		if c.amount.IsNegative() {
			line.Debit = c.amount.Neg()
		} else {
			line.Credit = c.amount
		}
		lines = append(lines, line)
	}
	sourceID := inv.ID
	return ledger.PostingInput{
		WorkspaceID: inv.WorkspaceID,
		PeriodID:    period.ID,
		EntryDate:   inv.InvoiceDate,
		Description: desc,
		EntryType:   ledger.EntryTypeInvoice,
		SourceType:  ledger.SourceInvoiceSent,
		SourceID:    &sourceID,
		CreatedBy:   actorID,
		Lines:       lines,
	}
}

func (s *Service) paidPosting(inv Invoice, period ledger.FiscalPeriod, paidDate time.Time, amount decimal.Decimal, actorID uuid.UUID) ledger.PostingInput {
	desc := invoiceDescription("Betalning faktura", inv)
	sourceID := inv.ID
	return ledger.PostingInput{
		WorkspaceID: inv.WorkspaceID,
		PeriodID:    period.ID,
		EntryDate:   paidDate,
		Description: desc,
		EntryType:   ledger.EntryTypePayment,
		SourceType:  ledger.SourceInvoicePayment,
		SourceID:    &sourceID,
		CreatedBy:   actorID,
		Lines: []ledger.PostingLineInput{
			{AccountNumber: s.accounts.Bank, AccountName: accountNames["bank"], Debit: amount, Description: desc},
			{AccountNumber: s.accounts.Receivables, AccountName: accountNames["receivables"], Credit: amount, Description: desc},
		},
	}
}

func (s *Service) observe(event string, res Result, err error) {
	if s.metrics == nil {
		return
	}
	outcome := string(res.Outcome)
	if err != nil {
		outcome = "error"
	}
	s.metrics.ObserveInvoicePosting(event, outcome)
}

func invoiceDescription(prefix string, inv Invoice) string {
	parts := []string{prefix}
	if inv.InvoiceNumber != "" {
		parts = append(parts, inv.InvoiceNumber)
	}
	desc := strings.Join(parts, " ")
	if inv.CustomerName != "" {
		desc += ", " + inv.CustomerName
	}
	return desc
}
