package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hiyorin/shardrealm/server/game/social"
	mw "github.com/hiyorin/shardrealm/server/middleware"
	"github.com/hiyorin/shardrealm/server/model"
	"gorm.io/gorm"
)

// GuildHandler exposes guild membership over REST. All mutations go through
// the social service so every change leaves an update-log signal behind.
type GuildHandler struct {
	db  *gorm.DB
	svc *social.GuildService
}

// NewGuildHandler creates a new GuildHandler.
func NewGuildHandler(db *gorm.DB, svc *social.GuildService) *GuildHandler {
	return &GuildHandler{db: db, svc: svc}
}

func guildStatus(err error) int {
	switch {
	case errors.Is(err, social.ErrGuildNotFound):
		return http.StatusNotFound
	case errors.Is(err, social.ErrGuildNameTaken),
		errors.Is(err, social.ErrAlreadyInGuild),
		errors.Is(err, social.ErrLeaderMustPass):
		return http.StatusConflict
	case errors.Is(err, social.ErrNotGuildMember),
		errors.Is(err, social.ErrNotGuildLeader):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

type createGuildRequest struct {
	Name string `json:"name" binding:"required,min=2,max=32"`
}

// Create handles POST /api/guilds.
func (h *GuildHandler) Create(c *gin.Context) {
	charID := getCharIDForAccount(h.db, mw.GetAccountID(c))
	if charID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no character"})
		return
	}
	var req createGuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	guild, err := h.svc.Create(c.Request.Context(), req.Name, charID)
	if err != nil {
		c.JSON(guildStatus(err), gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, guild)
}

// Detail handles GET /api/guilds/:id.
func (h *GuildHandler) Detail(c *gin.Context) {
	guildID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var guild model.Guild
	if err := h.db.First(&guild, guildID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "guild not found"})
		return
	}
	members, err := h.svc.Members(c.Request.Context(), guildID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"guild": guild, "members": members})
}

// Join handles POST /api/guilds/:id/join.
func (h *GuildHandler) Join(c *gin.Context) {
	charID := getCharIDForAccount(h.db, mw.GetAccountID(c))
	guildID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || charID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.svc.Join(c.Request.Context(), guildID, charID); err != nil {
		c.JSON(guildStatus(err), gin.H{"error": "join failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "joined"})
}

// Leave handles POST /api/guilds/:id/leave.
func (h *GuildHandler) Leave(c *gin.Context) {
	charID := getCharIDForAccount(h.db, mw.GetAccountID(c))
	guildID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || charID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.svc.Leave(c.Request.Context(), guildID, charID); err != nil {
		c.JSON(guildStatus(err), gin.H{"error": "leave failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left"})
}

// KickMember handles DELETE /api/guilds/:id/members/:cid.
func (h *GuildHandler) KickMember(c *gin.Context) {
	charID := getCharIDForAccount(h.db, mw.GetAccountID(c))
	guildID, err1 := strconv.ParseInt(c.Param("id"), 10, 64)
	targetID, err2 := strconv.ParseInt(c.Param("cid"), 10, 64)
	if err1 != nil || err2 != nil || charID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.svc.Kick(c.Request.Context(), guildID, charID, targetID); err != nil {
		c.JSON(guildStatus(err), gin.H{"error": "kick failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "kicked"})
}

type setRankRequest struct {
	Rank int `json:"rank" binding:"required"`
}

// SetRank handles PUT /api/guilds/:id/members/:cid/rank.
func (h *GuildHandler) SetRank(c *gin.Context) {
	charID := getCharIDForAccount(h.db, mw.GetAccountID(c))
	guildID, err1 := strconv.ParseInt(c.Param("id"), 10, 64)
	targetID, err2 := strconv.ParseInt(c.Param("cid"), 10, 64)
	if err1 != nil || err2 != nil || charID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	var req setRankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.SetRank(c.Request.Context(), guildID, charID, targetID, req.Rank); err != nil {
		c.JSON(guildStatus(err), gin.H{"error": "rank change failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// TransferLeadership handles POST /api/guilds/:id/transfer/:cid.
func (h *GuildHandler) TransferLeadership(c *gin.Context) {
	charID := getCharIDForAccount(h.db, mw.GetAccountID(c))
	guildID, err1 := strconv.ParseInt(c.Param("id"), 10, 64)
	targetID, err2 := strconv.ParseInt(c.Param("cid"), 10, 64)
	if err1 != nil || err2 != nil || charID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.svc.TransferLeadership(c.Request.Context(), guildID, charID, targetID); err != nil {
		c.JSON(guildStatus(err), gin.H{"error": "transfer failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transferred"})
}

// Disband handles DELETE /api/guilds/:id.
func (h *GuildHandler) Disband(c *gin.Context) {
	charID := getCharIDForAccount(h.db, mw.GetAccountID(c))
	guildID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || charID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.svc.Disband(c.Request.Context(), guildID, charID); err != nil {
		c.JSON(guildStatus(err), gin.H{"error": "disband failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "disbanded"})
}

type noticeRequest struct {
	Notice string `json:"notice" binding:"max=500"`
}

// UpdateNotice handles PUT /api/guilds/:id/notice. Notice text is cosmetic
// and shard-local readers tolerate staleness, so it writes directly without
// an update-log signal.
func (h *GuildHandler) UpdateNotice(c *gin.Context) {
	charID := getCharIDForAccount(h.db, mw.GetAccountID(c))
	guildID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || charID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	var guild model.Guild
	if err := h.db.First(&guild, guildID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "guild not found"})
		return
	}
	if guild.LeaderID != charID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only leader can update notice"})
		return
	}
	var req noticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.db.Model(&guild).Update("notice", req.Notice)
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}
