package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ray-remotestate/menu/models"
	"github.com/ray-remotestate/menu/utils"
)

type ContextKey string

const (
	adminContextKey ContextKey = "admin"
)

type TokenParser interface {
	ParseToken(token string) (*models.Identity, error)
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the token's identity in the request context.
func AuthMiddleware(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := extractBearerToken(r)
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, err, "unauthorized: missing token")
				return
			}

			identity, err := tokens.ParseToken(tokenStr)
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, err, "unauthorized: invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), adminContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func AdminFromContext(ctx context.Context) (*models.Identity, bool) {
	identity, ok := ctx.Value(adminContextKey).(*models.Identity)
	return identity, ok
}

func extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header missing")
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("invalid authorization format")
	}
	return parts[1], nil
}
