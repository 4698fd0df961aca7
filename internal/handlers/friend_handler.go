package handlers

import (
	"net/http"

	"github.com/Dias221467/Social_Graph/internal/services"
	"github.com/Dias221467/Social_Graph/pkg/logger"
	"github.com/gorilla/mux"
)

// FriendHandler manages HTTP endpoints related to friend requests.
type FriendHandler struct {
	Service *services.FriendService
}

// NewFriendHandler initializes a new FriendHandler.
func NewFriendHandler(service *services.FriendService) *FriendHandler {
	return &FriendHandler{Service: service}
}

// SendFriendRequestHandler allows a user to send a friend request.
func (h *FriendHandler) SendFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}
	receiverID := mux.Vars(r)["id"]

	request, err := h.Service.SendRequest(r.Context(), userID, receiverID)
	if err != nil {
		writeError(w, err)
		return
	}

	logger.Log.Infof("User %s sent a friend request to %s", userID, receiverID)
	writeJSON(w, http.StatusCreated, "friend request sent", request)
}

// GetPendingRequestsHandler shows all incoming friend requests.
func (h *FriendHandler) GetPendingRequestsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}

	requests, err := h.Service.ListIncomingRequests(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "", requests)
}

// GetSentRequestsHandler shows the user's outgoing pending requests.
func (h *FriendHandler) GetSentRequestsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}

	requests, err := h.Service.ListOutgoingRequests(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "", requests)
}

// AcceptFriendRequestHandler accepts a request addressed to the caller. The
// body may carry the expected sender as {"fromUserId": "..."}.
func (h *FriendHandler) AcceptFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}
	requestID := mux.Vars(r)["id"]

	var body struct {
		FromUserID string `json:"fromUserId"`
	}
	if err := decodeBody(r, &body); err != nil {
		logger.Log.Warnf("Failed to decode accept body: %v", err)
		writeJSON(w, http.StatusBadRequest, "invalid request payload", nil)
		return
	}

	request, err := h.Service.AcceptRequest(r.Context(), userID, requestID, body.FromUserID)
	if err != nil {
		writeError(w, err)
		return
	}

	logger.Log.Infof("User %s accepted friend request %s", userID, requestID)
	writeJSON(w, http.StatusOK, "friend request accepted", request)
}

// RejectFriendRequestHandler declines a request addressed to the caller.
func (h *FriendHandler) RejectFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}
	requestID := mux.Vars(r)["id"]

	if err := h.Service.RejectRequest(r.Context(), userID, requestID); err != nil {
		writeError(w, err)
		return
	}

	logger.Log.Infof("User %s rejected friend request %s", userID, requestID)
	writeJSON(w, http.StatusOK, "friend request rejected", nil)
}

// CancelFriendRequestHandler withdraws a request the caller sent.
func (h *FriendHandler) CancelFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}
	requestID := mux.Vars(r)["id"]

	if err := h.Service.CancelRequest(r.Context(), userID, requestID); err != nil {
		writeError(w, err)
		return
	}

	logger.Log.Infof("User %s cancelled friend request %s", userID, requestID)
	writeJSON(w, http.StatusOK, "friend request cancelled", nil)
}

// GetFriendsHandler returns a list of user’s friends.
func (h *FriendHandler) GetFriendsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}

	friends, err := h.Service.ListFriends(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "", friends)
}

func (h *FriendHandler) GetFriendshipStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}

	status, err := h.Service.GetFriendshipStatus(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "", status)
}

// RemoveFriendHandler ends a friendship from either side.
func (h *FriendHandler) RemoveFriendHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := actorID(w, r)
	if !ok {
		return
	}
	friendID := mux.Vars(r)["id"]

	if err := h.Service.RemoveFriend(r.Context(), userID, friendID); err != nil {
		writeError(w, err)
		return
	}

	logger.Log.Infof("User %s removed friend %s", userID, friendID)
	writeJSON(w, http.StatusOK, "friend removed", nil)
}
