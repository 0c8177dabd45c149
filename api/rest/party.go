package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hiyorin/shardrealm/server/game/social"
	mw "github.com/hiyorin/shardrealm/server/middleware"
	"gorm.io/gorm"
)

// PartyHandler exposes party membership over REST.
type PartyHandler struct {
	db  *gorm.DB
	svc *social.PartyService
}

// NewPartyHandler creates a new PartyHandler.
func NewPartyHandler(db *gorm.DB, svc *social.PartyService) *PartyHandler {
	return &PartyHandler{db: db, svc: svc}
}

func partyStatus(err error) int {
	switch {
	case errors.Is(err, social.ErrPartyNotFound):
		return http.StatusNotFound
	case errors.Is(err, social.ErrAlreadyInParty), errors.Is(err, social.ErrPartyFull):
		return http.StatusConflict
	case errors.Is(err, social.ErrNotPartyMember), errors.Is(err, social.ErrNotPartyLeader):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Create handles POST /api/parties.
func (h *PartyHandler) Create(c *gin.Context) {
	charID := getCharIDForAccount(h.db, mw.GetAccountID(c))
	if charID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no character"})
		return
	}
	party, err := h.svc.Create(c.Request.Context(), charID)
	if err != nil {
		c.JSON(partyStatus(err), gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, party)
}

// Detail handles GET /api/parties/:id.
func (h *PartyHandler) Detail(c *gin.Context) {
	partyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	members, err := h.svc.Members(c.Request.Context(), partyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if len(members) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "party not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// Join handles POST /api/parties/:id/join.
func (h *PartyHandler) Join(c *gin.Context) {
	charID := getCharIDForAccount(h.db, mw.GetAccountID(c))
	partyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || charID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.svc.Join(c.Request.Context(), partyID, charID); err != nil {
		c.JSON(partyStatus(err), gin.H{"error": "join failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "joined"})
}

// Leave handles POST /api/parties/:id/leave.
func (h *PartyHandler) Leave(c *gin.Context) {
	charID := getCharIDForAccount(h.db, mw.GetAccountID(c))
	partyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || charID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.svc.Leave(c.Request.Context(), partyID, charID); err != nil {
		c.JSON(partyStatus(err), gin.H{"error": "leave failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left"})
}

// KickMember handles DELETE /api/parties/:id/members/:cid.
func (h *PartyHandler) KickMember(c *gin.Context) {
	charID := getCharIDForAccount(h.db, mw.GetAccountID(c))
	partyID, err1 := strconv.ParseInt(c.Param("id"), 10, 64)
	targetID, err2 := strconv.ParseInt(c.Param("cid"), 10, 64)
	if err1 != nil || err2 != nil || charID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.svc.Kick(c.Request.Context(), partyID, charID, targetID); err != nil {
		c.JSON(partyStatus(err), gin.H{"error": "kick failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "kicked"})
}
