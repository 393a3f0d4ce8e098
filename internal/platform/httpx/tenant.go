package httpx

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/odyssey-erp/bokslut/internal/shared"
)

// Headers set by the upstream gateway after authentication.
const (
	HeaderWorkspaceID = "X-Workspace-ID"
	HeaderActorID     = "X-Actor-ID"
)

// RequirePrincipal resolves the workspace and actor of the request and stores
// them in the context. Requests without both are rejected.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, errWS := uuid.Parse(strings.TrimSpace(r.Header.Get(HeaderWorkspaceID)))
		actor, errActor := uuid.Parse(strings.TrimSpace(r.Header.Get(HeaderActorID)))
		if errWS != nil || errActor != nil || ws == uuid.Nil || actor == uuid.Nil {
			Problem(w, http.StatusUnauthorized, "Unauthorized", ErrUnauthorized.Error())
			return
		}
		ctx := shared.ContextWithPrincipal(r.Context(), shared.Principal{WorkspaceID: ws, ActorID: actor})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Principal returns the principal stored by RequirePrincipal.
func Principal(r *http.Request) (shared.Principal, error) {
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok || p.WorkspaceID == uuid.Nil {
		return shared.Principal{}, ErrUnauthorized
	}
	return p, nil
}

// UUIDParam parses a URL path value as UUID.
func UUIDParam(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrBadRequest
	}
	return id, nil
}
