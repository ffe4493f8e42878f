package identity

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"feedback-backend/internal/apperr"
	"feedback-backend/internal/models"
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTResolver reads an HS256 bearer token carrying the user id in "sub" and
// the role in "role".
type JWTResolver struct {
	secret []byte
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

func (j *JWTResolver) Resolve(r *http.Request) (models.Identity, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return models.Identity{}, apperr.New(apperr.KindUnauthenticated, "authorization header required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return models.Identity{}, apperr.New(apperr.KindUnauthenticated, "invalid authorization header format")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return models.Identity{}, &apperr.Error{Kind: apperr.KindUnauthenticated, Message: "invalid or expired token", Err: err}
	}

	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return models.Identity{}, apperr.New(apperr.KindUnauthenticated, "token has no subject")
	}
	return models.Identity{UserID: userID, Role: models.ParseRole(claims.Role)}, nil
}

// MintToken signs a token JWTResolver accepts. It exists for local
// development; the service itself never issues tokens.
func MintToken(secret string, id models.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
