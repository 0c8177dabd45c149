package ws

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hiyorin/shardrealm/server/cache"
	"github.com/hiyorin/shardrealm/server/config"
	"github.com/hiyorin/shardrealm/server/game/entity"
	"github.com/hiyorin/shardrealm/server/game/player"
	mw "github.com/hiyorin/shardrealm/server/middleware"
	"github.com/hiyorin/shardrealm/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler is the Gin handler for GET /ws.
type Handler struct {
	db       *gorm.DB
	cache    cache.Cache
	sec      config.SecurityConfig
	sm       *player.SessionManager
	entities *entity.Manager
	router   *Router
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket Handler.
// sec.AllowedOrigins controls which WebSocket origins are accepted.
// An empty slice permits all origins (development only).
func NewHandler(
	db *gorm.DB,
	c cache.Cache,
	sec config.SecurityConfig,
	sm *player.SessionManager,
	entities *entity.Manager,
	router *Router,
	logger *zap.Logger,
) *Handler {
	h := &Handler{
		db:       db,
		cache:    c,
		sec:      sec,
		sm:       sm,
		entities: entities,
		router:   router,
		logger:   logger,
	}
	allowed := sec.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true // dev mode: allow all
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowed {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// ServeWS handles GET /ws?token=<jwt>.
func (h *Handler) ServeWS(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	// Validate JWT.
	claims, err := mw.ParseToken(tokenStr, h.sec.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	// Validate session cache.
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	exists, err := h.cache.Exists(ctx, "session:"+tokenStr)
	if err != nil || !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return
	}

	// Upgrade to WebSocket.
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", zap.Error(err))
		return
	}

	// CharID stays 0 until the client picks a character (enter_world);
	// the session joins the manager only once a character is bound, so
	// connections idling at character select never displace each other.
	sess := player.NewSession(claims.AccountID, 0, conn, h.logger)
	h.readPump(sess)
}

// readPump reads messages from the WebSocket connection and dispatches them.
func (h *Handler) readPump(s *player.Session) {
	defer func() {
		h.handleDisconnect(s)
	}()

	s.SetReadDeadline()
	s.Conn.SetPongHandler(func(string) error {
		s.SetReadDeadline()
		return nil
	})

	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				h.logger.Warn("ws unexpected close",
					zap.Int64("account_id", s.AccountID),
					zap.Error(err))
			}
			return
		}
		// Reset read deadline on any message (heartbeat or otherwise).
		s.SetReadDeadline()
		h.router.Dispatch(s, raw)
	}
}

// handleDisconnect cleans up after the connection closes: the live entity
// leaves the shard and its position and balance are persisted.
func (h *Handler) handleDisconnect(s *player.Session) {
	s.Close()

	if s.CharID != 0 {
		ent := h.entities.Remove(s.CharID)
		h.sm.Unregister(s.CharID)

		if ent != nil {
			go func() {
				defer func() {
					if r := recover(); r != nil {
						h.logger.Error("panic in disconnect save",
							zap.Int64("char_id", ent.ID),
							zap.Any("recover", r),
							zap.String("stack", string(debug.Stack())))
					}
				}()
				x, y, z := ent.Position()
				updates := map[string]interface{}{
					"scene_name":   ent.SceneName,
					"scene_handle": ent.SceneHandle,
					"x":            x,
					"y":            y,
					"z":            z,
					"shard_id":     "",
				}
				if w, ok := ent.Wallet(); ok {
					updates["gold"] = w.Balance()
				}
				h.db.Model(&model.Character{}).
					Where("id = ?", ent.ID).
					Updates(updates)
			}()
		}
	}

	h.logger.Info("player disconnected",
		zap.Int64("account_id", s.AccountID),
		zap.Int64("char_id", s.CharID))
}
