package shared

import (
	"context"

	"github.com/google/uuid"
)

// Principal identifies the workspace and actor a request acts for.
type Principal struct {
	WorkspaceID uuid.UUID
	ActorID     uuid.UUID
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
