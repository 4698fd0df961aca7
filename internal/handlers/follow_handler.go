package handlers

import (
	"net/http"

	"github.com/Dias221467/Social_Graph/internal/services"
	"github.com/Dias221467/Social_Graph/pkg/logger"
	"github.com/gorilla/mux"
)

type FollowHandler struct {
	Service *services.FollowService
}

func NewFollowHandler(service *services.FollowService) *FollowHandler {
	return &FollowHandler{Service: service}
}

// FollowHandler makes the caller follow the user in the path.
func (h *FollowHandler) FollowHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}
	targetID := mux.Vars(r)["id"]

	edge, err := h.Service.Follow(r.Context(), userID, targetID)
	if err != nil {
		writeError(w, err)
		return
	}

	logger.Log.Infof("User %s followed %s", userID, targetID)
	writeJSON(w, http.StatusCreated, "followed", edge)
}

func (h *FollowHandler) UnfollowHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}
	targetID := mux.Vars(r)["id"]

	if err := h.Service.Unfollow(r.Context(), userID, targetID); err != nil {
		writeError(w, err)
		return
	}

	logger.Log.Infof("User %s unfollowed %s", userID, targetID)
	writeJSON(w, http.StatusOK, "unfollowed", nil)
}

// IsFollowingHandler reports whether the caller follows the user in the path.
func (h *FollowHandler) IsFollowingHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}

	following, err := h.Service.IsFollowing(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "", map[string]bool{"following": following})
}

func (h *FollowHandler) GetFollowersHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorID(w, r); !ok {
		return
	}

	followers, err := h.Service.ListFollowers(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "", followers)
}

func (h *FollowHandler) GetFollowingHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorID(w, r); !ok {
		return
	}

	following, err := h.Service.ListFollowing(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "", following)
}
