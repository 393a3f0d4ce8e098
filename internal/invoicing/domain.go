package invoicing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bokslut/internal/shared"
)

// LineType distinguishes chargeable lines from free-text annotations.
type LineType string

const (
	LineTypeItem LineType = "item"
	LineTypeText LineType = "text"
)

// ProductType selects the revenue account of a line.
type ProductType string

const (
	ProductGoods   ProductType = "goods"
	ProductService ProductType = "service"
)

// Supported output VAT rates in percent.
const (
	VATRate25 = 25
	VATRate12 = 12
	VATRate6  = 6
	VATRate0  = 0
)

// Invoice is the read model of an outgoing invoice owned by the invoicing subsystem.
type Invoice struct {
	ID                 uuid.UUID        `json:"id"`
	WorkspaceID        uuid.UUID        `json:"workspace_id"`
	InvoiceNumber      string           `json:"invoice_number"`
	CustomerName       string           `json:"customer_name"`
	InvoiceDate        time.Time        `json:"invoice_date"`
	DueDate            *time.Time       `json:"due_date,omitempty"`
	Currency           string           `json:"currency"`
	Total              decimal.Decimal  `json:"total"`
	PaidAt             *time.Time       `json:"paid_at,omitempty"`
	PaidAmount         *decimal.Decimal `json:"paid_amount,omitempty"`
	SentJournalEntryID *uuid.UUID       `json:"sent_journal_entry_id,omitempty"`
	PaidJournalEntryID *uuid.UUID       `json:"paid_journal_entry_id,omitempty"`
	Lines              []InvoiceLine    `json:"lines"`
}

// InvoiceLine is one row of an invoice. Amount is net of VAT.
type InvoiceLine struct {
	LineType    LineType        `json:"line_type"`
	ProductType ProductType     `json:"product_type,omitempty"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	VATRate     int             `json:"vat_rate"`
}

// PostingAccounts maps posting roles onto chart-of-accounts numbers.
type PostingAccounts struct {
	Receivables int `envconfig:"RECEIVABLES" default:"1510"`
	Bank        int `envconfig:"BANK" default:"1930"`
	Goods       int `envconfig:"GOODS" default:"3001"`
	Services    int `envconfig:"SERVICES" default:"3041"`
	OutputVAT25 int `envconfig:"OUTPUT_VAT_25" default:"2611"`
	OutputVAT12 int `envconfig:"OUTPUT_VAT_12" default:"2621"`
	OutputVAT6  int `envconfig:"OUTPUT_VAT_6" default:"2631"`
}

// DefaultPostingAccounts returns the BAS accounts used by a Swedish aktiebolag.
func DefaultPostingAccounts() PostingAccounts {
	return PostingAccounts{
		Receivables: 1510,
		Bank:        1930,
		Goods:       3001,
		Services:    3041,
		OutputVAT25: 2611,
		OutputVAT12: 2621,
		OutputVAT6:  2631,
	}
}

// accountNames are the BAS names written on generated lines.
var accountNames = map[string]string{
	"receivables": "Kundfordringar",
	"bank":        "Företagskonto",
	"goods":       "Försäljning varor",
	"services":    "Försäljning tjänster",
	"vat25":       "Utgående moms 25 %",
	"vat12":       "Utgående moms 12 %",
	"vat6":        "Utgående moms 6 %",
}

// PaidInput parameterises payment posting.
type PaidInput struct {
	PaidDate           *time.Time
	PaidAmount         *decimal.Decimal
	CreateVerification bool
}

// Outcome reports what a lifecycle call did.
type Outcome string

const (
	OutcomePosted        Outcome = "posted"
	OutcomeNotRequested  Outcome = "not_requested"
	OutcomeNoPeriod      Outcome = "no_period"
	OutcomeNothingToPost Outcome = "nothing_to_post"
	OutcomeAlreadyPosted Outcome = "already_posted"
)

// Result is returned by every posting operation.
type Result struct {
	InvoiceID      uuid.UUID  `json:"invoice_id"`
	Outcome        Outcome    `json:"outcome"`
	JournalEntryID *uuid.UUID `json:"journal_entry_id,omitempty"`
	Verification   int        `json:"verification_number,omitempty"`
	Breakdown      *Breakdown `json:"breakdown,omitempty"`
}

var (
	// ErrInvoiceNotFound indicates a missing or foreign invoice.
	ErrInvoiceNotFound = fmt.Errorf("%w: invoicing: invoice not found", shared.ErrNotFound)
	// ErrNoPeriodForDate indicates no fiscal period covers the payment date.
	ErrNoPeriodForDate = fmt.Errorf("%w: invoicing: no fiscal period covers the payment date", shared.ErrNotFound)
	// ErrAlreadyHasVerification indicates the invoice already carries the entry being created.
	ErrAlreadyHasVerification = fmt.Errorf("%w: invoicing: invoice already has a verification", shared.ErrConflict)
	// ErrUnsupportedVATRate indicates a VAT rate outside 0/6/12/25.
	ErrUnsupportedVATRate = fmt.Errorf("%w: invoicing: unsupported VAT rate", shared.ErrValidation)
	// ErrInvalidPaidAmount indicates a non-positive payment.
	ErrInvalidPaidAmount = fmt.Errorf("%w: invoicing: paid amount must be positive", shared.ErrValidation)
	// ErrNoPeriodForSentDate is reported by the after-the-fact variant when
	// the invoice date has no period.
	ErrNoPeriodForSentDate = fmt.Errorf("%w: invoicing: no fiscal period covers the invoice date", shared.ErrNotFound)
	// ErrNothingToPost is reported by the after-the-fact variant when the
	// breakdown total is zero or negative.
	ErrNothingToPost = fmt.Errorf("%w: invoicing: invoice total is not positive", shared.ErrValidation)
)
