package ledger

import (
	"context"

	"github.com/google/uuid"
)

// NumberSource reads the highest verification number used in a period.
type NumberSource interface {
	MaxVerificationNumber(ctx context.Context, workspaceID, periodID uuid.UUID) (int, error)
}

// NextVerificationNumber returns 1 + max(existing, 0) for the period.
//
// The result is only safe to use inside the transaction that holds the
// period's posting lock (see TxRepository.LockPeriodForPosting). The unique
// index on (workspace_id, period_id, verification_number) turns any slip into
// ErrDuplicateVerification instead of a silent duplicate.
func NextVerificationNumber(ctx context.Context, src NumberSource, workspaceID, periodID uuid.UUID) (int, error) {
	max, err := src.MaxVerificationNumber(ctx, workspaceID, periodID)
	if err != nil {
		return 0, err
	}
	if max < 0 {
		max = 0
	}
	return max + 1, nil
}
