package shared

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// PeriodLockKey derives the pg_advisory_xact_lock key that serialises ledger
// writers of one fiscal period.
func PeriodLockKey(workspaceID, periodID uuid.UUID) int64 {
	key := uuid.NewSHA1(workspaceID, periodID[:])
	return int64(binary.BigEndian.Uint64(key[:8]))
}
