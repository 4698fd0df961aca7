package handlers

import (
	"net/http"
	"time"

	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/Dias221467/Social_Graph/internal/services"
	jwtutil "github.com/Dias221467/Social_Graph/pkg/jwt"
	"github.com/Dias221467/Social_Graph/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

// WSStatusMessage is pushed to the client on every status change.
type WSStatusMessage struct {
	Type   string             `json:"type"`
	UserID string             `json:"userId"`
	Status *models.UserStatus `json:"status"`
}

// StatusStreamHandler streams a user's status over a WebSocket.
type StatusStreamHandler struct {
	Service   *services.StatusService
	JWTSecret string
	upgrader  websocket.Upgrader
}

// NewStatusStreamHandler accepts connections from the given origins; an
// empty list accepts any origin.
func NewStatusStreamHandler(service *services.StatusService, jwtSecret string, allowedOrigins []string) *StatusStreamHandler {
	return &StatusStreamHandler{
		Service:   service,
		JWTSecret: jwtSecret,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if len(allowed) == 0 || origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// StatusWebSocketHandler authenticates with ?token=, then sends the current
// status of {id} followed by every change until the client disconnects.
func (h *StatusStreamHandler) StatusWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, "missing token", nil)
		return
	}
	claims, err := jwtutil.ValidateToken(token, h.JWTSecret)
	if err != nil {
		logger.Log.Warnf("WebSocket auth failed: %v", err)
		writeJSON(w, http.StatusUnauthorized, "invalid token", nil)
		return
	}
	targetID := mux.Vars(r)["id"]

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warnf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log := logger.Log.WithField("user_id", claims.UserID).WithField("target_id", targetID)
	log.Info("Status stream connected")

	stop, err := h.Service.SubscribeToUserStatus(r.Context(), targetID, func(status *models.UserStatus) {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(WSStatusMessage{Type: "status", UserID: targetID, Status: status}); err != nil {
			log.WithError(err).Debug("WebSocket write failed")
			conn.Close()
		}
	})
	if err != nil {
		conn.WriteJSON(map[string]string{"type": "error", "message": "failed to subscribe to status"})
		return
	}
	defer stop()

	// Clients only send control frames; reading detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Info("Status stream disconnected")
			return
		}
	}
}
