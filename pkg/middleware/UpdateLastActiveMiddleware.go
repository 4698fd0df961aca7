package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dias221467/Social_Graph/pkg/apperror"
	"github.com/Dias221467/Social_Graph/pkg/logger"
)

// LastActiveUpdater records that a user made a request.
type LastActiveUpdater interface {
	UpdateLastActive(ctx context.Context, userID string) error
}

// UpdateLastActiveMiddleware stamps lastActiveAt for the authenticated actor.
// Failures never block the request.
func UpdateLastActiveMiddleware(users LastActiveUpdater) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims := GetUserFromContext(r.Context()); claims != nil {
				err := users.UpdateLastActive(r.Context(), claims.UserID)
				switch {
				case errors.Is(err, apperror.ErrNotFound):
					logger.Log.WithField("user_id", claims.UserID).Debug("No profile yet, last active not updated")
				case err != nil:
					logger.Log.WithError(err).WithField("user_id", claims.UserID).Warn("Failed to update last active")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
