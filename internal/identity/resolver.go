// Package identity turns an incoming request into the caller's Identity.
package identity

import (
	"net/http"
	"strings"

	"feedback-backend/internal/apperr"
	"feedback-backend/internal/models"
)

const (
	HeaderUser = "X-User"
	HeaderRole = "X-Role"
)

// Resolver derives the caller of a request. Missing identity must be
// reported as an apperr unauthenticated error.
type Resolver interface {
	Resolve(r *http.Request) (models.Identity, error)
}

// HeaderResolver trusts the X-User and X-Role headers as given. It simulates
// authentication and must only run behind a trusted proxy.
type HeaderResolver struct{}

func NewHeaderResolver() *HeaderResolver {
	return &HeaderResolver{}
}

func (HeaderResolver) Resolve(r *http.Request) (models.Identity, error) {
	userID := strings.TrimSpace(r.Header.Get(HeaderUser))
	if userID == "" {
		return models.Identity{}, apperr.New(apperr.KindUnauthenticated, "missing %s header", HeaderUser)
	}
	return models.Identity{
		UserID: userID,
		Role:   models.ParseRole(strings.TrimSpace(r.Header.Get(HeaderRole))),
	}, nil
}
