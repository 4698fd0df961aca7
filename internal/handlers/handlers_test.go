package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dias221467/Social_Graph/internal/cache"
	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/Dias221467/Social_Graph/internal/repository"
	"github.com/Dias221467/Social_Graph/internal/services"
	jwtutil "github.com/Dias221467/Social_Graph/pkg/jwt"
	"github.com/Dias221467/Social_Graph/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-secret"

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	handler http.Handler
	store   *docstore.MemoryStore
	status  *services.StatusService
}

func newTestServer(t *testing.T, userIDs ...string) *testServer {
	t.Helper()
	store := docstore.NewMemoryStore()
	users := repository.NewUserRepository(store)
	for _, id := range userIDs {
		require.NoError(t, users.CreateUser(context.Background(), &models.User{ID: id, DisplayName: "User " + id}))
	}

	userService := services.NewUserService(store, time.Second)
	statusService := services.NewStatusService(store, cache.NewMemoryStatusCache(time.Minute), nil, time.Second)
	h := Handlers{
		User:      NewUserHandler(userService),
		Friend:    NewFriendHandler(services.NewFriendService(store, nil, time.Second)),
		Follow:    NewFollowHandler(services.NewFollowService(store, nil, time.Second)),
		Community: NewCommunityHandler(services.NewCommunityService(store, nil, time.Second)),
		Status:    NewStatusHandler(statusService),
		Stream:    NewStatusStreamHandler(statusService, testSecret, nil),
		Activity:  NewActivityHandler(services.NewActivityService(store, time.Second)),
	}
	router := NewRouter(h, RouterOptions{
		JWTSecret:   testSecret,
		RateLimiter: middleware.NewRateLimiter(1000, 1000),
		LastActive:  userService,
	})
	return &testServer{handler: router, store: store, status: statusService}
}

func (s *testServer) do(t *testing.T, method, path, userID string, body interface{}) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		token, err := jwtutil.GenerateToken(userID, "Token "+userID, testSecret, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func decodeData(t *testing.T, resp apiResponse, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func TestHealthNeedsNoToken(t *testing.T) {
	s := newTestServer(t)
	code, resp := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newTestServer(t, "a")
	code, resp := s.do(t, http.MethodGet, "/friends", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, resp.Success)
}

func TestFriendRequestFlow(t *testing.T) {
	s := newTestServer(t, "a", "b")

	code, resp := s.do(t, http.MethodPost, "/friends/b/request", "a", nil)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var req models.FriendRequest
	decodeData(t, resp, &req)
	assert.Equal(t, models.FriendRequestPending, req.Status)

	code, resp = s.do(t, http.MethodPost, "/friends/b/request", "a", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "friend request already sent", resp.Message)

	code, resp = s.do(t, http.MethodGet, "/friends/requests", "b", nil)
	require.Equal(t, http.StatusOK, code)
	var incoming []models.FriendRequest
	decodeData(t, resp, &incoming)
	require.Len(t, incoming, 1)

	code, resp = s.do(t, http.MethodGet, "/friends/requests/sent", "a", nil)
	require.Equal(t, http.StatusOK, code)
	var outgoing []models.FriendRequest
	decodeData(t, resp, &outgoing)
	require.Len(t, outgoing, 1)

	code, _ = s.do(t, http.MethodPost, "/friends/requests/"+req.ID+"/accept", "a", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = s.do(t, http.MethodPost, "/friends/requests/"+req.ID+"/accept", "b", map[string]string{"fromUserId": "a"})
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, resp = s.do(t, http.MethodGet, "/friends/a/status", "b", nil)
	require.Equal(t, http.StatusOK, code)
	var status models.FriendshipStatus
	decodeData(t, resp, &status)
	assert.Equal(t, models.FriendshipFriends, status.Status)

	code, resp = s.do(t, http.MethodGet, "/friends", "a", nil)
	require.Equal(t, http.StatusOK, code)
	var friends []models.FriendEdge
	decodeData(t, resp, &friends)
	require.Len(t, friends, 1)
	assert.Equal(t, "b", friends[0].UserID)

	code, _ = s.do(t, http.MethodDelete, "/friends/b", "a", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodDelete, "/friends/b", "a", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSendRequestErrorsMapToStatus(t *testing.T) {
	s := newTestServer(t, "a")

	code, resp := s.do(t, http.MethodPost, "/friends/a/request", "a", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, resp.Success)

	code, _ = s.do(t, http.MethodPost, "/friends/ghost/request", "a", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRejectAndCancel(t *testing.T) {
	s := newTestServer(t, "a", "b")

	_, resp := s.do(t, http.MethodPost, "/friends/b/request", "a", nil)
	var req models.FriendRequest
	decodeData(t, resp, &req)

	code, _ := s.do(t, http.MethodPost, "/friends/requests/"+req.ID+"/reject", "b", nil)
	assert.Equal(t, http.StatusOK, code)

	_, resp = s.do(t, http.MethodPost, "/friends/b/request", "a", nil)
	decodeData(t, resp, &req)

	code, _ = s.do(t, http.MethodDelete, "/friends/requests/"+req.ID, "b", nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodDelete, "/friends/requests/"+req.ID, "a", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestFollowRoutes(t *testing.T) {
	s := newTestServer(t, "a", "b")

	code, _ := s.do(t, http.MethodPost, "/users/b/follow", "a", nil)
	require.Equal(t, http.StatusCreated, code)
	code, _ = s.do(t, http.MethodPost, "/users/b/follow", "a", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, resp := s.do(t, http.MethodGet, "/users/b/follow", "a", nil)
	require.Equal(t, http.StatusOK, code)
	var following map[string]bool
	decodeData(t, resp, &following)
	assert.True(t, following["following"])

	code, resp = s.do(t, http.MethodGet, "/users/b/followers", "a", nil)
	require.Equal(t, http.StatusOK, code)
	var followers []models.FollowEdge
	decodeData(t, resp, &followers)
	require.Len(t, followers, 1)
	assert.Equal(t, "a", followers[0].UserID)

	code, _ = s.do(t, http.MethodDelete, "/users/b/follow", "a", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodDelete, "/users/b/follow", "a", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCommunityRoutes(t *testing.T) {
	s := newTestServer(t, "a", "b")

	code, resp := s.do(t, http.MethodPost, "/communities", "a", map[string]string{"name": "Gophers"})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var community models.Community
	decodeData(t, resp, &community)

	code, _ = s.do(t, http.MethodPost, "/communities/"+community.ID+"/join", "b", nil)
	require.Equal(t, http.StatusCreated, code)
	code, _ = s.do(t, http.MethodPost, "/communities/"+community.ID+"/join", "b", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, resp = s.do(t, http.MethodGet, "/communities/"+community.ID+"/membership", "b", nil)
	require.Equal(t, http.StatusOK, code)
	var membership struct {
		IsMember bool `json:"isMember"`
	}
	decodeData(t, resp, &membership)
	assert.True(t, membership.IsMember)

	code, _ = s.do(t, http.MethodDelete, "/communities/"+community.ID+"/membership", "b", nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp = s.do(t, http.MethodGet, "/communities/"+community.ID+"/membership", "b", nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, resp, &membership)
	assert.False(t, membership.IsMember)

	code, _ = s.do(t, http.MethodPost, "/communities", "a", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestStatusRoutes(t *testing.T) {
	s := newTestServer(t, "a", "b")

	code, _ := s.do(t, http.MethodPut, "/status", "a", map[string]string{"text": "Busy"})
	require.Equal(t, http.StatusOK, code)

	code, resp := s.do(t, http.MethodGet, "/users/a/status", "b", nil)
	require.Equal(t, http.StatusOK, code)
	var status models.UserStatus
	decodeData(t, resp, &status)
	assert.Equal(t, "Busy", status.Text)

	code, _ = s.do(t, http.MethodPut, "/status", "a", map[string]string{"text": "  "})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = s.do(t, http.MethodPost, "/status/custom", "a", map[string]string{"text": "At the gym"})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	code, _ = s.do(t, http.MethodPost, "/status/custom", "a", map[string]string{"text": "At the gym"})
	assert.Equal(t, http.StatusConflict, code)

	code, resp = s.do(t, http.MethodGet, "/status/custom", "a", nil)
	require.Equal(t, http.StatusOK, code)
	var custom []string
	decodeData(t, resp, &custom)
	assert.Equal(t, []string{"At the gym"}, custom)

	code, _ = s.do(t, http.MethodDelete, "/status/custom/At%20the%20gym", "a", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodDelete, "/status", "a", nil)
	assert.Equal(t, http.StatusOK, code)
	code, resp = s.do(t, http.MethodGet, "/users/a/status?fresh=true", "b", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "null", string(resp.Data))
}

func TestRegisterSelfAndGetUser(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.do(t, http.MethodPut, "/users/me", "n1", nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	var user models.User
	decodeData(t, resp, &user)
	assert.Equal(t, "n1", user.ID)
	assert.Equal(t, "Token n1", user.DisplayName)

	code, _ = s.do(t, http.MethodPut, "/users/me", "n1", map[string]string{"displayName": "Nina"})
	require.Equal(t, http.StatusOK, code)

	code, resp = s.do(t, http.MethodGet, "/users/me", "n1", nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, resp, &user)
	assert.Equal(t, "Nina", user.DisplayName)
	assert.NotNil(t, user.LastActiveAt)

	code, _ = s.do(t, http.MethodGet, "/users/ghost", "n1", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestActivitiesRoute(t *testing.T) {
	s := newTestServer(t, "a", "b")
	s.do(t, http.MethodPost, "/friends/b/request", "a", nil)

	code, resp := s.do(t, http.MethodGet, "/activities?limit=5", "a", nil)
	require.Equal(t, http.StatusOK, code)
	var activities []models.Activity
	decodeData(t, resp, &activities)
	require.Len(t, activities, 1)
	assert.Equal(t, models.ActivityFriendRequestSent, activities[0].Type)

	code, _ = s.do(t, http.MethodGet, "/activities?limit=abc", "a", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
