package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	mw "github.com/hiyorin/shardrealm/server/middleware"
	"github.com/hiyorin/shardrealm/server/model"
	"gorm.io/gorm"
)

// InventoryHandler handles inventory and ability REST endpoints. Read-only:
// all mutation goes through the transaction pipeline.
type InventoryHandler struct {
	db *gorm.DB
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(db *gorm.DB) *InventoryHandler {
	return &InventoryHandler{db: db}
}

// ownedChar verifies the character in the path belongs to the caller.
func (h *InventoryHandler) ownedChar(c *gin.Context) (int64, bool) {
	accountID := mw.GetAccountID(c)
	charID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	var char model.Character
	if err := h.db.Where("id = ? AND account_id = ?", charID, accountID).First(&char).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
		return 0, false
	}
	return charID, true
}

// List handles GET /api/characters/:id/inventory.
func (h *InventoryHandler) List(c *gin.Context) {
	charID, ok := h.ownedChar(c)
	if !ok {
		return
	}
	var items []model.Inventory
	if err := h.db.Where("char_id = ?", charID).Order("slot ASC").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": items})
}

// Abilities handles GET /api/characters/:id/abilities.
func (h *InventoryHandler) Abilities(c *gin.Context) {
	charID, ok := h.ownedChar(c)
	if !ok {
		return
	}
	var known []model.KnownAbility
	if err := h.db.Where("char_id = ?", charID).Find(&known).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	var crafted []model.CharAbility
	if err := h.db.Where("char_id = ?", charID).Find(&crafted).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"known": known, "crafted": crafted})
}
