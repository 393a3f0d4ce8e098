package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bokslut/internal/shared"
)

func TestTranslateSerializationFailuresAreConflicts(t *testing.T) {
	for _, code := range []string{CodeSerializationFailure, CodeDeadlockDetected} {
		err := Translate(fmt.Errorf("commit: %w", &pgconn.PgError{Code: code}))
		require.ErrorIs(t, err, shared.ErrConflict, code)
	}
}

func TestTranslatePassesOtherErrorsThrough(t *testing.T) {
	require.NoError(t, Translate(nil))

	plain := errors.New("boom")
	require.Same(t, plain, Translate(plain))

	unique := &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "uq_journal_entries_verification"}
	require.Equal(t, error(unique), Translate(unique))
	require.True(t, IsUniqueViolation(unique, "uq_journal_entries_verification"))
	require.True(t, IsUniqueViolation(unique, ""))
	require.False(t, IsUniqueViolation(unique, "other"))
}

func TestIsPrerequisiteState(t *testing.T) {
	require.True(t, IsPrerequisiteState(fmt.Errorf("insert: %w", &pgconn.PgError{Code: CodeObjectNotInPrereq})))
	require.False(t, IsPrerequisiteState(&pgconn.PgError{Code: CodeUniqueViolation}))
	require.False(t, IsPrerequisiteState(errors.New("x")))
}
