package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bokslut/internal/shared"
)

// EntryType is the business category of a verification.
type EntryType string

const (
	EntryTypeReceipt         EntryType = "receipt"
	EntryTypeIncome          EntryType = "income"
	EntryTypeSupplierInvoice EntryType = "supplier_invoice"
	EntryTypeInvoice         EntryType = "invoice"
	EntryTypePayment         EntryType = "payment"
	EntryTypeOther           EntryType = "other"
)

// Valid reports whether the entry type is known.
func (t EntryType) Valid() bool {
	switch t {
	case EntryTypeReceipt, EntryTypeIncome, EntryTypeSupplierInvoice, EntryTypeInvoice, EntryTypePayment, EntryTypeOther:
		return true
	}
	return false
}

// SourceType records where an entry came from.
type SourceType string

const (
	SourceManual         SourceType = "manual"
	SourceInvoiceSent    SourceType = "invoice_sent"
	SourceInvoicePayment SourceType = "invoice_payment"
)

// FiscalPeriod is an accounting interval of a workspace.
type FiscalPeriod struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	Name        string     `json:"name"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	IsLocked    bool       `json:"is_locked"`
	LockedAt    *time.Time `json:"locked_at,omitempty"`
	LockedBy    *uuid.UUID `json:"locked_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Contains reports whether date falls inside [StartDate, EndDate] by calendar day.
func (p FiscalPeriod) Contains(date time.Time) bool {
	d := civilDate(date)
	return !d.Before(civilDate(p.StartDate)) && !d.After(civilDate(p.EndDate))
}

// JournalEntry is one verification with its lines.
type JournalEntry struct {
	ID                 uuid.UUID     `json:"id"`
	WorkspaceID        uuid.UUID     `json:"workspace_id"`
	PeriodID           uuid.UUID     `json:"period_id"`
	VerificationNumber int           `json:"verification_number"`
	EntryDate          time.Time     `json:"entry_date"`
	Description        string        `json:"description"`
	EntryType          EntryType     `json:"entry_type"`
	SourceType         SourceType    `json:"source_type"`
	SourceID           *uuid.UUID    `json:"source_id,omitempty"`
	CreatedBy          uuid.UUID     `json:"created_by"`
	CreatedAt          time.Time     `json:"created_at"`
	Lines              []JournalLine `json:"lines,omitempty"`
}

// JournalLine is a single debit or credit row.
type JournalLine struct {
	ID            uuid.UUID       `json:"id"`
	EntryID       uuid.UUID       `json:"entry_id"`
	AccountNumber int             `json:"account_number"`
	AccountName   string          `json:"account_name"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Description   string          `json:"description"`
	SortOrder     int             `json:"sort_order"`
}

// PostingInput carries the data needed to post a verification.
type PostingInput struct {
	WorkspaceID uuid.UUID
	PeriodID    uuid.UUID
	EntryDate   time.Time
	Description string
	EntryType   EntryType
	SourceType  SourceType
	SourceID    *uuid.UUID
	CreatedBy   uuid.UUID
	Lines       []PostingLineInput
}

// PostingLineInput describes a line to be posted.
type PostingLineInput struct {
	AccountNumber int
	AccountName   string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Description   string
}

// Totals returns Σdebit and Σcredit of the input lines.
func (p PostingInput) Totals() (decimal.Decimal, decimal.Decimal) {
	debit, credit := decimal.Zero, decimal.Zero
	for _, line := range p.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

// Validate performs structural and balance validation. Imbalances are
// rejected, never corrected.
func (p PostingInput) Validate() error {
	if p.WorkspaceID == uuid.Nil {
		return ErrWorkspaceRequired
	}
	if p.PeriodID == uuid.Nil {
		return ErrPeriodRequired
	}
	if p.EntryDate.IsZero() {
		return ErrEntryDateRequired
	}
	if !p.EntryType.Valid() {
		return ErrInvalidEntryType
	}
	if len(p.Lines) < 2 {
		return ErrTooFewLines
	}
	for _, line := range p.Lines {
		if line.AccountNumber <= 0 {
			return ErrInvalidAccount
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return ErrNegativeAmount
		}
		if line.Debit.IsPositive() == line.Credit.IsPositive() {
			return ErrLineSide
		}
		if !line.Debit.Equal(line.Debit.Round(2)) || !line.Credit.Equal(line.Credit.Round(2)) {
			return ErrAmountPrecision
		}
	}
	debit, credit := p.Totals()
	if !shared.WithinTolerance(debit, credit) {
		return ErrUnbalanced
	}
	return nil
}

// AccountTotals aggregates debit and credit for one account.
type AccountTotals struct {
	AccountNumber int             `json:"account_number"`
	AccountName   string          `json:"account_name"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
}

// ListFilter restricts ListEntries.
type ListFilter struct {
	Limit  int
	Offset int
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
