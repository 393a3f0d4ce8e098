package closing

import (
	"context"

	"github.com/google/uuid"
)

// transitioner is the conditional update every step goes through.
type transitioner interface {
	TransitionStatus(ctx context.Context, workspaceID, closingID uuid.UUID, from, to Status, m Mutation) (AnnualClosing, bool, error)
}

// tryTransition moves current to target when current sits exactly one step
// before it. The write only applies while the stored status still equals
// the predecessor; losing that race yields ErrTransitionConflict.
func tryTransition(ctx context.Context, store transitioner, current AnnualClosing, target Status, m Mutation) (AnnualClosing, error) {
	if current.Status == StatusFinalized {
		return AnnualClosing{}, ErrAlreadyFinalized
	}
	from, ok := target.Predecessor()
	if !ok || current.Status != from {
		return AnnualClosing{}, invalidTransition(current.Status, target)
	}
	updated, applied, err := store.TransitionStatus(ctx, current.WorkspaceID, current.ID, from, target, m)
	if err != nil {
		return AnnualClosing{}, err
	}
	if !applied {
		return AnnualClosing{}, ErrTransitionConflict
	}
	return updated, nil
}
