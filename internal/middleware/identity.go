package middleware

import (
	"context"
	"net/http"

	"feedback-backend/internal/identity"
	"feedback-backend/internal/models"
	"feedback-backend/internal/respond"
)

type contextKey string

const (
	identityKey    contextKey = "identity"
	identityErrKey contextKey = "identityErr"
)

// ResolveIdentity resolves the caller on every request without rejecting
// anonymous ones. Routes that need a caller sit behind RequireRole.
func ResolveIdentity(resolver identity.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id, err := resolver.Resolve(r)
			if err != nil {
				ctx = context.WithValue(ctx, identityErrKey, err)
			} else {
				ctx = context.WithValue(ctx, identityKey, id)
				respond.OutcomeFrom(ctx).SetActor(id.UserID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity returns the caller resolved for this request, if any.
func GetIdentity(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}

// identityError returns why resolution failed, or nil.
func identityError(ctx context.Context) error {
	err, _ := ctx.Value(identityErrKey).(error)
	return err
}
