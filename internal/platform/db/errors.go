package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/bokslut/internal/shared"
)

// SQLSTATE codes the repositories react to.
const (
	CodeUniqueViolation      = "23505"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeObjectNotInPrereq    = "55000"
)

// Translate maps transaction-level PostgreSQL failures onto shared error kinds.
// Errors that already carry a domain meaning pass through untouched.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case CodeSerializationFailure, CodeDeadlockDetected:
		return fmt.Errorf("%w: concurrent update detected (%s)", shared.ErrConflict, pgErr.Code)
	}
	return err
}

// IsUniqueViolation reports whether err is a unique violation, optionally on
// the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != CodeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsPrerequisiteState reports whether a trigger rejected the write because
// the target object is in the wrong state (for example a locked period).
func IsPrerequisiteState(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == CodeObjectNotInPrereq
}
