package realtime

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sublyy/sublyy-backend/internal/config"
	"github.com/sublyy/sublyy-backend/internal/models"
	"github.com/sublyy/sublyy-backend/internal/tokens"
	"github.com/sublyy/sublyy-backend/pkg/logger"
	"github.com/sublyy/sublyy-backend/pkg/metrics"
)

// Event is the wire shape of a server push.
type Event struct {
	Type     string      `json:"type"`
	Settings interface{} `json:"settings,omitempty"`
}

// Hub owns the user→connection registry and the websocket endpoint. Events
// are delivered at most once to whichever connection currently represents
// the user; there is no queueing and missed events are dropped.
type Hub struct {
	cfg      *config.Config
	registry *Registry
	upgrader websocket.Upgrader
}

func NewHub(cfg *config.Config) *Hub {
	origin := cfg.Client.Origin
	return &Hub{
		cfg:      cfg,
		registry: NewRegistry(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// same-origin tools send no Origin header
				o := r.Header.Get("Origin")
				return o == "" || o == origin
			},
		},
	}
}

// safeConn serializes writes. The underlying gorilla connection supports at
// most one concurrent writer, and settings pushes arrive from arbitrary
// request goroutines.
type safeConn struct {
	mu   sync.Mutex
	conn Conn
}

func (c *safeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *safeConn) Close() error {
	return c.conn.Close()
}

// Register exposes the websocket route.
func (h *Hub) Register(r gin.IRoutes) {
	r.GET("/ws", h.handleWS)
}

// handleWS authenticates the socket with the access token passed as a query
// parameter, then parks the connection in the registry until it drops.
func (h *Hub) handleWS(c *gin.Context) {
	userID, err := tokens.VerifyAccess(h.cfg, c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
		return
	}
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("websocket upgrade failed for user %s: %v", userID, err)
		return
	}
	conn := &safeConn{conn: ws}
	h.registry.Register(userID, conn)
	metrics.RealtimeConnections.Inc()
	logger.Debugf("realtime: user %s connected", userID)

	go func() {
		defer func() {
			h.registry.Unregister(conn)
			metrics.RealtimeConnections.Dec()
			_ = conn.Close()
			logger.Debugf("realtime: user %s disconnected", userID)
		}()
		// clients never send application frames; the read loop only
		// notices the close
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// NotifySettingsUpdated pushes the updated settings to the user's live
// connection, if any. Best-effort: a write failure is logged and dropped.
func (h *Hub) NotifySettingsUpdated(userID string, settings models.Settings) {
	conn := h.registry.Lookup(userID)
	if conn == nil {
		return
	}
	if err := conn.WriteJSON(Event{Type: "settingsUpdated", Settings: settings}); err != nil {
		logger.Warnf("realtime: push to user %s failed: %v", userID, err)
	}
}
