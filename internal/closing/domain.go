package closing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bokslut/internal/ledger"
	"github.com/odyssey-erp/bokslut/internal/shared"
)

// Status is the step an annual closing has reached.
type Status string

const (
	StatusNotStarted             Status = "not_started"
	StatusReconciliationComplete Status = "reconciliation_complete"
	StatusPackageSelected        Status = "package_selected"
	StatusClosingEntriesCreated  Status = "closing_entries_created"
	StatusTaxCalculated          Status = "tax_calculated"
	StatusFinalized              Status = "finalized"
)

var statusOrder = []Status{
	StatusNotStarted,
	StatusReconciliationComplete,
	StatusPackageSelected,
	StatusClosingEntriesCreated,
	StatusTaxCalculated,
	StatusFinalized,
}

// Predecessor returns the only status a closing may advance to s from.
func (s Status) Predecessor() (Status, bool) {
	for i, st := range statusOrder {
		if st == s && i > 0 {
			return statusOrder[i-1], true
		}
	}
	return "", false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, st := range statusOrder {
		if st == s {
			return true
		}
	}
	return false
}

// Package is the K-regulation framework chosen for the annual report.
type Package string

const (
	PackageK1 Package = "k1"
	PackageK2 Package = "k2"
	PackageK3 Package = "k3"
)

// Valid reports whether p is a supported package.
func (p Package) Valid() bool {
	switch p {
	case PackageK1, PackageK2, PackageK3:
		return true
	}
	return false
}

// AnnualClosing is the bokslut workflow record of one fiscal period.
type AnnualClosing struct {
	ID                        uuid.UUID        `json:"id"`
	WorkspaceID               uuid.UUID        `json:"workspace_id"`
	PeriodID                  uuid.UUID        `json:"period_id"`
	Status                    Status           `json:"status"`
	Package                   *Package         `json:"closing_package,omitempty"`
	ReconciliationCompletedAt *time.Time       `json:"reconciliation_completed_at,omitempty"`
	ReconciliationCompletedBy *uuid.UUID       `json:"reconciliation_completed_by,omitempty"`
	PackageSelectedAt         *time.Time       `json:"package_selected_at,omitempty"`
	PackageSelectedBy         *uuid.UUID       `json:"package_selected_by,omitempty"`
	ClosingEntriesCreatedAt   *time.Time       `json:"closing_entries_created_at,omitempty"`
	ClosingEntriesCreatedBy   *uuid.UUID       `json:"closing_entries_created_by,omitempty"`
	TaxCalculatedAt           *time.Time       `json:"tax_calculated_at,omitempty"`
	TaxCalculatedBy           *uuid.UUID       `json:"tax_calculated_by,omitempty"`
	CalculatedProfit          *decimal.Decimal `json:"calculated_profit,omitempty"`
	CalculatedTax             *decimal.Decimal `json:"calculated_tax,omitempty"`
	FinalizedAt               *time.Time       `json:"finalized_at,omitempty"`
	FinalizedBy               *uuid.UUID       `json:"finalized_by,omitempty"`
	CreatedAt                 time.Time        `json:"created_at"`
	UpdatedAt                 time.Time        `json:"updated_at"`
}

// View pairs a closing with its fiscal period.
type View struct {
	Closing AnnualClosing       `json:"closing"`
	Period  ledger.FiscalPeriod `json:"period"`
}

// Mutation carries the values a transition writes besides the status.
type Mutation struct {
	ActorID uuid.UUID
	At      time.Time
	Package *Package
	Profit  *decimal.Decimal
	Tax     *decimal.Decimal
}

var (
	// ErrClosingNotFound indicates the closing record could not be read back.
	ErrClosingNotFound = fmt.Errorf("%w: closing: annual closing not found", shared.ErrNotFound)
	// ErrAlreadyFinalized is returned for any mutation of a finalized closing.
	ErrAlreadyFinalized = fmt.Errorf("%w: closing: annual closing already finalized", shared.ErrInvalidTransition)
	// ErrTransitionConflict indicates the status changed between read and write.
	ErrTransitionConflict = fmt.Errorf("%w: closing: status changed concurrently", shared.ErrConflict)
	// ErrPeriodAlreadyLocked indicates another session locked the period first.
	ErrPeriodAlreadyLocked = fmt.Errorf("%w: closing: fiscal period already locked", shared.ErrConflict)
	// ErrFinalizeTooEarly indicates the grace period after the period end has not passed.
	ErrFinalizeTooEarly = fmt.Errorf("%w: closing: finalize not allowed before grace period after period end", shared.ErrPreconditionNotMet)
	// ErrInvalidPackage indicates a package outside k1/k2/k3.
	ErrInvalidPackage = fmt.Errorf("%w: closing: package must be k1, k2 or k3", shared.ErrValidation)
	// ErrInvalidAmount indicates a missing profit or a negative tax.
	ErrInvalidAmount = fmt.Errorf("%w: closing: invalid profit or tax", shared.ErrValidation)
)

func invalidTransition(current, target Status) error {
	return fmt.Errorf("%w: closing: cannot move from %s to %s", shared.ErrInvalidTransition, current, target)
}
