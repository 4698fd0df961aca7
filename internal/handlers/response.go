package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Dias221467/Social_Graph/pkg/apperror"
	"github.com/Dias221467/Social_Graph/pkg/logger"
	"github.com/Dias221467/Social_Graph/pkg/middleware"
)

// Response is the body of every API reply.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Response{
		Success: status < http.StatusBadRequest,
		Message: message,
		Data:    data,
	}); err != nil {
		logger.Log.WithError(err).Warn("Failed to encode response")
	}
}

// writeError maps a service error to its HTTP status and user-facing message.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), apperror.Message(err), nil)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// actorID returns the authenticated user id, writing a 401 when there is none.
func actorID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil || claims.UserID == "" {
		logger.Log.WithField("path", r.URL.Path).Warn("Unauthorized request")
		writeJSON(w, http.StatusUnauthorized, "unauthorized", nil)
		return "", false
	}
	return claims.UserID, true
}

// decodeBody decodes an optional JSON body into v. An empty body is not an error.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
