package common

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type ctxKey string

const ownerIDKey ctxKey = "auth/owner-id"

// OwnerHeader is set by the fronting gateway after it authenticates the
// caller. This service trusts it; authentication itself is out of scope.
const OwnerHeader = "X-Owner-Id"

// WithOwnerID stores the document owner identifier on the provided context.
func WithOwnerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ownerIDKey, id)
}

// OwnerID extracts the document owner identifier from the context if present.
func OwnerID(ctx context.Context) (string, bool) {
	v := ctx.Value(ownerIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// RequireOwner rejects requests missing a valid owner header and stores the
// owner on the request context for downstream handlers.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
		if owner == "" {
			JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "owner identity required", nil)
			return
		}
		if _, err := uuid.Parse(owner); err != nil {
			JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid owner identity", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), owner)))
	})
}
