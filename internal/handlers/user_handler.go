package handlers

import (
	"net/http"

	"github.com/Dias221467/Social_Graph/internal/services"
	"github.com/Dias221467/Social_Graph/pkg/logger"
	"github.com/Dias221467/Social_Graph/pkg/middleware"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// UserHandler handles HTTP requests related to user profiles.
type UserHandler struct {
	Service *services.UserService
}

// NewUserHandler creates a new instance of UserHandler.
func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{Service: service}
}

// RegisterSelfHandler creates the caller's profile document on first call
// and refreshes the display name afterwards. The display name defaults to
// the one carried by the token.
func (h *UserHandler) RegisterSelfHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	body := struct {
		DisplayName string `json:"displayName"`
	}{DisplayName: claims.DisplayName}
	if err := decodeBody(r, &body); err != nil {
		log.WithError(err).Warn("Failed to decode profile request")
		writeJSON(w, http.StatusBadRequest, "invalid request payload", nil)
		return
	}

	user, err := h.Service.EnsureUser(r.Context(), claims.UserID, body.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}

	log.WithField("userID", user.ID).Info("Profile ensured")
	writeJSON(w, http.StatusOK, "profile saved", user)
}

// GetUserHandler retrieves a user by ID. "me" resolves to the caller.
func (h *UserHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	if id == "me" {
		id = userID
	}

	user, err := h.Service.GetUserByID(r.Context(), id)
	if err != nil {
		logger.Log.Warnf("Failed to get user %s: %v", id, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "", user)
}
