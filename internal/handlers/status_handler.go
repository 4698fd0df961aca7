package handlers

import (
	"net/http"

	"github.com/Dias221467/Social_Graph/internal/services"
	"github.com/Dias221467/Social_Graph/pkg/logger"
	"github.com/gorilla/mux"
)

// StatusHandler exposes the caller's status line and saved custom statuses.
type StatusHandler struct {
	Service *services.StatusService
}

func NewStatusHandler(service *services.StatusService) *StatusHandler {
	return &StatusHandler{Service: service}
}

type statusBody struct {
	Text string `json:"text"`
}

func (h *StatusHandler) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}

	var body statusBody
	if err := decodeBody(r, &body); err != nil {
		logger.Log.Warnf("Failed to decode status body: %v", err)
		writeJSON(w, http.StatusBadRequest, "invalid request payload", nil)
		return
	}

	status, err := h.Service.UpdateStatus(r.Context(), userID, body.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "status updated", status)
}

func (h *StatusHandler) ClearStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}

	if err := h.Service.ClearStatus(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "status cleared", nil)
}

// GetUserStatusHandler returns the status of the user in the path. A user
// without a status yields null data. ?fresh=true skips the cache.
func (h *StatusHandler) GetUserStatusHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorID(w, r); !ok {
		return
	}

	var opts []services.StatusOption
	if r.URL.Query().Get("fresh") == "true" {
		opts = append(opts, services.BypassCache())
	}

	status, err := h.Service.GetUserStatus(r.Context(), mux.Vars(r)["id"], opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "", status)
}

func (h *StatusHandler) ListCustomStatusesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}

	statuses, err := h.Service.ListCustomStatuses(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "", statuses)
}

func (h *StatusHandler) AddCustomStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}

	var body statusBody
	if err := decodeBody(r, &body); err != nil {
		logger.Log.Warnf("Failed to decode custom status body: %v", err)
		writeJSON(w, http.StatusBadRequest, "invalid request payload", nil)
		return
	}

	statuses, err := h.Service.AddCustomStatus(r.Context(), userID, body.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, "custom status added", statuses)
}

func (h *StatusHandler) RemoveCustomStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}

	statuses, err := h.Service.RemoveCustomStatus(r.Context(), userID, mux.Vars(r)["text"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "custom status removed", statuses)
}
