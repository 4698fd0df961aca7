package handlers

import (
	"net/http"

	"github.com/Dias221467/Social_Graph/internal/services"
	"github.com/Dias221467/Social_Graph/pkg/logger"
	"github.com/gorilla/mux"
)

// CommunityHandler exposes community creation and membership.
type CommunityHandler struct {
	Service *services.CommunityService
}

func NewCommunityHandler(service *services.CommunityService) *CommunityHandler {
	return &CommunityHandler{Service: service}
}

func (h *CommunityHandler) CreateCommunityHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeBody(r, &body); err != nil {
		logger.Log.Warnf("Failed to decode community body: %v", err)
		writeJSON(w, http.StatusBadRequest, "invalid request payload", nil)
		return
	}

	community, err := h.Service.CreateCommunity(r.Context(), userID, body.Name, body.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	logger.Log.Infof("User %s created community %s", userID, community.ID)
	writeJSON(w, http.StatusCreated, "community created", community)
}

func (h *CommunityHandler) JoinCommunityHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}
	communityID := mux.Vars(r)["id"]

	membership, err := h.Service.JoinCommunity(r.Context(), userID, communityID)
	if err != nil {
		writeError(w, err)
		return
	}

	logger.Log.Infof("User %s joined community %s", userID, communityID)
	writeJSON(w, http.StatusCreated, "joined community", membership)
}

func (h *CommunityHandler) LeaveCommunityHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}
	communityID := mux.Vars(r)["id"]

	if err := h.Service.LeaveCommunity(r.Context(), userID, communityID); err != nil {
		writeError(w, err)
		return
	}

	logger.Log.Infof("User %s left community %s", userID, communityID)
	writeJSON(w, http.StatusOK, "left community", nil)
}

// GetMembershipHandler returns the caller's membership, or null data when
// the caller is not a member.
func (h *CommunityHandler) GetMembershipHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}

	membership, err := h.Service.CheckMembership(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "", map[string]interface{}{
		"isMember":   membership != nil,
		"membership": membership,
	})
}
