package model

import "time"

// Inventory represents a single occupied bag slot. Slot indices are dense
// from 0; a purchase or pickup always lands in the first free slot.
type Inventory struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CharID     int64     `gorm:"index:idx_char_inventory;not null" json:"char_id"`
	Slot       int       `gorm:"not null" json:"slot"`
	TemplateID int       `gorm:"not null" json:"template_id"`
	Qty        int       `gorm:"default:1" json:"qty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
