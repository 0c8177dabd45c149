package model

import (
	"time"

	"gorm.io/datatypes"
)

// KnownAbility records which ability/event templates a character has
// unlocked. Knowing a template is a prerequisite for crafting with it, but
// is distinct from having crafted it.
type KnownAbility struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CharID     int64     `gorm:"index:idx_char_known;uniqueIndex:idx_char_known_tpl;not null" json:"char_id"`
	TemplateID int       `gorm:"uniqueIndex:idx_char_known_tpl;not null" json:"template_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// CharAbility is a crafted ability: a base template plus the event templates
// baked into it at craft time. Crafting is a one-time unlock per base
// template, enforced by the unique (char_id, template_id) index.
type CharAbility struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CharID     int64          `gorm:"index:idx_char_ability;uniqueIndex:idx_char_ability_tpl;not null" json:"char_id"`
	TemplateID int            `gorm:"uniqueIndex:idx_char_ability_tpl;not null" json:"template_id"`
	EventIDs   datatypes.JSON `json:"event_ids"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
