package handlers

import (
	"net/http"

	"github.com/Dias221467/Social_Graph/pkg/middleware"
	"github.com/gorilla/mux"
)

// Handlers groups every HTTP handler the router serves.
type Handlers struct {
	User      *UserHandler
	Friend    *FriendHandler
	Follow    *FollowHandler
	Community *CommunityHandler
	Status    *StatusHandler
	Stream    *StatusStreamHandler
	Activity  *ActivityHandler
}

// RouterOptions configures the middleware wrapped around protected routes.
// Nil fields are skipped.
type RouterOptions struct {
	JWTSecret   string
	RateLimiter *middleware.RateLimiter
	LastActive  middleware.LastActiveUpdater
}

// NewRouter registers all routes. Everything except /health and the status
// stream, which authenticates with a query token, requires a bearer token.
func NewRouter(h Handlers, opts RouterOptions) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, "ok", nil)
	}).Methods("GET")
	router.HandleFunc("/ws/status/{id}", h.Stream.StatusWebSocketHandler).Methods("GET")

	api := router.PathPrefix("/").Subrouter()
	api.Use(middleware.AuthMiddleware(opts.JWTSecret))
	if opts.RateLimiter != nil {
		api.Use(opts.RateLimiter.Middleware)
	}
	if opts.LastActive != nil {
		api.Use(middleware.UpdateLastActiveMiddleware(opts.LastActive))
	}

	// Friend routes
	api.HandleFunc("/friends", h.Friend.GetFriendsHandler).Methods("GET")
	api.HandleFunc("/friends/requests", h.Friend.GetPendingRequestsHandler).Methods("GET")
	api.HandleFunc("/friends/requests/sent", h.Friend.GetSentRequestsHandler).Methods("GET")
	api.HandleFunc("/friends/requests/{id}/accept", h.Friend.AcceptFriendRequestHandler).Methods("POST")
	api.HandleFunc("/friends/requests/{id}/reject", h.Friend.RejectFriendRequestHandler).Methods("POST")
	api.HandleFunc("/friends/requests/{id}", h.Friend.CancelFriendRequestHandler).Methods("DELETE")
	api.HandleFunc("/friends/{id}/request", h.Friend.SendFriendRequestHandler).Methods("POST")
	api.HandleFunc("/friends/{id}/status", h.Friend.GetFriendshipStatusHandler).Methods("GET")
	api.HandleFunc("/friends/{id}", h.Friend.RemoveFriendHandler).Methods("DELETE")

	// User and follow routes
	api.HandleFunc("/users/me", h.User.RegisterSelfHandler).Methods("PUT")
	api.HandleFunc("/users/{id}", h.User.GetUserHandler).Methods("GET")
	api.HandleFunc("/users/{id}/follow", h.Follow.FollowHandler).Methods("POST")
	api.HandleFunc("/users/{id}/follow", h.Follow.UnfollowHandler).Methods("DELETE")
	api.HandleFunc("/users/{id}/follow", h.Follow.IsFollowingHandler).Methods("GET")
	api.HandleFunc("/users/{id}/followers", h.Follow.GetFollowersHandler).Methods("GET")
	api.HandleFunc("/users/{id}/following", h.Follow.GetFollowingHandler).Methods("GET")
	api.HandleFunc("/users/{id}/status", h.Status.GetUserStatusHandler).Methods("GET")

	// Community routes
	api.HandleFunc("/communities", h.Community.CreateCommunityHandler).Methods("POST")
	api.HandleFunc("/communities/{id}/join", h.Community.JoinCommunityHandler).Methods("POST")
	api.HandleFunc("/communities/{id}/membership", h.Community.GetMembershipHandler).Methods("GET")
	api.HandleFunc("/communities/{id}/membership", h.Community.LeaveCommunityHandler).Methods("DELETE")

	// Status routes
	api.HandleFunc("/status", h.Status.UpdateStatusHandler).Methods("PUT")
	api.HandleFunc("/status", h.Status.ClearStatusHandler).Methods("DELETE")
	api.HandleFunc("/status/custom", h.Status.ListCustomStatusesHandler).Methods("GET")
	api.HandleFunc("/status/custom", h.Status.AddCustomStatusHandler).Methods("POST")
	api.HandleFunc("/status/custom/{text}", h.Status.RemoveCustomStatusHandler).Methods("DELETE")

	api.HandleFunc("/activities", h.Activity.GetActivitiesHandler).Methods("GET")

	router.Use(middleware.LoggingMiddleware)
	return router
}
