package handlers

import (
	"net/http"
	"strconv"

	"github.com/Dias221467/Social_Graph/internal/services"
)

type ActivityHandler struct {
	Service *services.ActivityService
}

func NewActivityHandler(service *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{Service: service}
}

// GetActivitiesHandler lists the caller's recent relationship activity.
// ?limit= caps the result.
func (h *ActivityHandler) GetActivitiesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, "limit must be a positive number", nil)
			return
		}
		limit = n
	}

	activities, err := h.Service.GetRecentActivities(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "", activities)
}
