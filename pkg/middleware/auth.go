package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	jwtutil "github.com/Dias221467/Social_Graph/pkg/jwt"
	"github.com/Dias221467/Social_Graph/pkg/logger"
)

type contextKey string

// UserContextKey holds the *jwtutil.Claims of the authenticated actor.
const UserContextKey contextKey = "user"

// AuthMiddleware rejects requests without a valid bearer token and stores
// the token claims in the request context.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			claims, err := jwtutil.ValidateToken(parts[1], secret)
			if err != nil {
				logger.Log.WithError(err).Warn("Rejected bearer token")
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *jwtutil.Claims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

// GetUserFromContext returns the claims stored by AuthMiddleware, or nil.
func GetUserFromContext(ctx context.Context) *jwtutil.Claims {
	claims, ok := ctx.Value(UserContextKey).(*jwtutil.Claims)
	if !ok {
		return nil
	}
	return claims
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}
