package shared

import "errors"

// Error kinds shared by every domain package. Domain errors wrap one of these
// so transport layers can classify them with errors.Is.
var (
	// ErrNotFound indicates the resource does not exist in the caller's workspace.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition indicates a workflow call made from an incompatible status.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrConflict indicates a conditional write lost a race or hit a uniqueness constraint.
	ErrConflict = errors.New("conflict")
	// ErrPreconditionNotMet indicates a business precondition that only time or
	// other state can satisfy.
	ErrPreconditionNotMet = errors.New("precondition not met")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
)
