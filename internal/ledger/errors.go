package ledger

import (
	"fmt"

	"github.com/odyssey-erp/bokslut/internal/shared"
)

var (
	// ErrUnbalanced indicates Σdebit and Σcredit differ by 0.01 or more.
	ErrUnbalanced = fmt.Errorf("%w: ledger: journal lines must balance", shared.ErrValidation)
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = fmt.Errorf("%w: ledger: journal entry requires at least two lines", shared.ErrValidation)
	// ErrNegativeAmount indicates a negative debit or credit.
	ErrNegativeAmount = fmt.Errorf("%w: ledger: amounts must be non-negative", shared.ErrValidation)
	// ErrLineSide indicates a line with both or neither side populated.
	ErrLineSide = fmt.Errorf("%w: ledger: each line needs exactly one of debit or credit", shared.ErrValidation)
	// ErrAmountPrecision indicates an amount with fractions of öre.
	ErrAmountPrecision = fmt.Errorf("%w: ledger: amounts are limited to two decimals", shared.ErrValidation)
	// ErrInvalidAccount indicates a non-positive account number.
	ErrInvalidAccount = fmt.Errorf("%w: ledger: account number must be positive", shared.ErrValidation)
	// ErrInvalidEntryType indicates an unknown entry type.
	ErrInvalidEntryType = fmt.Errorf("%w: ledger: unknown entry type", shared.ErrValidation)
	// ErrWorkspaceRequired indicates a missing workspace id.
	ErrWorkspaceRequired = fmt.Errorf("%w: ledger: workspace id required", shared.ErrValidation)
	// ErrPeriodRequired indicates a missing period id.
	ErrPeriodRequired = fmt.Errorf("%w: ledger: period id required", shared.ErrValidation)
	// ErrEntryDateRequired indicates a missing entry date.
	ErrEntryDateRequired = fmt.Errorf("%w: ledger: entry date required", shared.ErrValidation)
	// ErrDateOutOfRange indicates the entry date falls outside the period.
	ErrDateOutOfRange = fmt.Errorf("%w: ledger: entry date outside period", shared.ErrValidation)

	// ErrPeriodNotFound indicates a missing or foreign period.
	ErrPeriodNotFound = fmt.Errorf("%w: ledger: fiscal period not found", shared.ErrNotFound)
	// ErrEntryNotFound indicates a missing or foreign journal entry.
	ErrEntryNotFound = fmt.Errorf("%w: ledger: journal entry not found", shared.ErrNotFound)

	// ErrPeriodLocked indicates a write into a locked period.
	ErrPeriodLocked = fmt.Errorf("%w: ledger: fiscal period is locked", shared.ErrPreconditionNotMet)

	// ErrDuplicateVerification indicates a verification number collision.
	ErrDuplicateVerification = fmt.Errorf("%w: ledger: verification number already used in period", shared.ErrConflict)
	// ErrSourceAlreadyLinked indicates the source already produced an entry.
	ErrSourceAlreadyLinked = fmt.Errorf("%w: ledger: source already has a journal entry", shared.ErrConflict)
)
