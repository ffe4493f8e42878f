package middleware

import (
	"context"
	"net/http"

	"feedback-backend/internal/apperr"
	"feedback-backend/internal/models"
	"feedback-backend/internal/respond"
)

// CheckRole is the access control decision on its own.
func CheckRole(id models.Identity, required models.Role) error {
	if id.Role != required {
		return apperr.New(apperr.KindForbidden, "%s role required", required)
	}
	return nil
}

// Authorize reports the caller for ctx, or why it may not proceed.
func Authorize(ctx context.Context, required models.Role) (models.Identity, error) {
	id, ok := GetIdentity(ctx)
	if !ok {
		if err := identityError(ctx); err != nil {
			return models.Identity{}, err
		}
		return models.Identity{}, apperr.New(apperr.KindUnauthenticated, "missing identity")
	}
	if err := CheckRole(id, required); err != nil {
		return models.Identity{}, err
	}
	return id, nil
}

// RequireRole rejects requests whose caller is unknown (401) or lacks the
// role (403) before the wrapped handler looks at any resource.
func RequireRole(required models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := Authorize(r.Context(), required); err != nil {
				respond.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
