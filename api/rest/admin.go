package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hiyorin/shardrealm/server/game/entity"
	"github.com/hiyorin/shardrealm/server/game/player"
	"github.com/hiyorin/shardrealm/server/game/scene"
	"github.com/hiyorin/shardrealm/server/model"
	"github.com/hiyorin/shardrealm/server/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	db       *gorm.DB
	sm       *player.SessionManager
	entities *entity.Manager
	scenes   *scene.Registry
	sched    *scheduler.Scheduler
	logger   *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(
	db *gorm.DB,
	sm *player.SessionManager,
	entities *entity.Manager,
	scenes *scene.Registry,
	sched *scheduler.Scheduler,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{db: db, sm: sm, entities: entities, scenes: scenes, sched: sched, logger: logger}
}

// Metrics returns shard health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"online_players":  h.sm.Count(),
		"live_entities":   h.entities.Count(),
		"scene_objects":   h.scenes.Count(),
		"scheduler_tasks": h.sched.ListTickers(),
	})
}

// ListPlayers returns a snapshot of all online players.
// GET /api/admin/players
func (h *AdminHandler) ListPlayers(c *gin.Context) {
	type playerInfo struct {
		CharID    int64   `json:"char_id"`
		Name      string  `json:"name"`
		SceneName string  `json:"scene_name"`
		X         float64 `json:"x"`
		Y         float64 `json:"y"`
		Z         float64 `json:"z"`
	}
	entities := h.entities.All()
	result := make([]playerInfo, 0, len(entities))
	for _, e := range entities {
		x, y, z := e.Position()
		result = append(result, playerInfo{
			CharID: e.ID, Name: e.Name, SceneName: e.SceneName,
			X: x, Y: y, Z: z,
		})
	}
	c.JSON(http.StatusOK, gin.H{"players": result, "count": len(result)})
}

// KickPlayer forcibly disconnects a player by character ID.
// POST /api/admin/kick/:id
func (h *AdminHandler) KickPlayer(c *gin.Context) {
	charID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if !h.sm.IsOnline(charID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not online"})
		return
	}
	h.sm.Kick(charID)
	h.logger.Info("admin kicked player", zap.Int64("char_id", charID))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// BanAccount bans or unbans a player account.
// POST /api/admin/accounts/:id/ban
func (h *AdminHandler) BanAccount(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req struct {
		Ban bool `json:"ban"`
	}
	_ = c.ShouldBindJSON(&req)

	status := 1
	if req.Ban {
		status = 0
	}
	result := h.db.Model(&model.Account{}).Where("id = ?", accountID).Update("status", status)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	// Kick the player if currently online.
	if req.Ban {
		for _, s := range h.sm.All() {
			if s.AccountID == accountID {
				s.Close()
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": status})
}

// AuditTrail returns recent audit rows, newest first.
// GET /api/admin/audit?char_id=&verdict=&limit=
func (h *AdminHandler) AuditTrail(c *gin.Context) {
	q := h.db.Model(&model.AuditLog{}).Order("id DESC")
	if v := c.Query("char_id"); v != "" {
		if charID, err := strconv.ParseInt(v, 10, 64); err == nil {
			q = q.Where("char_id = ?", charID)
		}
	}
	if v := c.Query("verdict"); v != "" {
		q = q.Where("verdict = ?", v)
	}
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	var rows []model.AuditLog
	if err := q.Limit(limit).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit": rows, "count": len(rows)})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header.
// WARNING: if adminKey is empty all admin endpoints are disabled (503) so the
// server cannot be accidentally deployed without protection. Set a non-empty
// server.admin_key in config to enable admin routes.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if key != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
