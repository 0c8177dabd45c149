package entity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hiyorin/shardrealm/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Load hydrates a player entity from the ledger store: character row,
// wallet balance, bag contents, known and crafted abilities. The returned
// entity has all three player capabilities registered.
func Load(ctx context.Context, db *gorm.DB, charID int64, bagSlots int, logger *zap.Logger) (*Entity, error) {
	var ch model.Character
	if err := db.WithContext(ctx).First(&ch, charID).Error; err != nil {
		return nil, fmt.Errorf("entity: load character %d: %w", charID, err)
	}

	ent := New(ch.ID, ch.Name, logger)
	ent.SceneName = ch.SceneName
	ent.SceneHandle = ch.SceneHandle
	if ent.SceneHandle == 0 {
		// rows migrated from before instance handles existed
		ent.SceneHandle = 1
	}
	ent.X, ent.Y, ent.Z = ch.X, ch.Y, ch.Z

	ent.Register(NewWallet(ch.Gold))

	bag := NewBag(bagSlots)
	var items []model.Inventory
	if err := db.WithContext(ctx).Where("char_id = ?", charID).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("entity: load inventory for %d: %w", charID, err)
	}
	for _, item := range items {
		bag.SetSlot(item.Slot, item.TemplateID, item.Qty)
	}
	ent.Register(bag)

	spellbook := NewSpellbook()
	var known []model.KnownAbility
	if err := db.WithContext(ctx).Where("char_id = ?", charID).Find(&known).Error; err != nil {
		return nil, fmt.Errorf("entity: load known abilities for %d: %w", charID, err)
	}
	for _, k := range known {
		spellbook.LearnBase(k.TemplateID)
	}
	var crafted []model.CharAbility
	if err := db.WithContext(ctx).Where("char_id = ?", charID).Find(&crafted).Error; err != nil {
		return nil, fmt.Errorf("entity: load crafted abilities for %d: %w", charID, err)
	}
	for _, c := range crafted {
		var eventIDs []int
		if len(c.EventIDs) > 0 {
			if err := json.Unmarshal(c.EventIDs, &eventIDs); err != nil {
				logger.Warn("bad event list on crafted ability, skipping events",
					zap.Int64("char_id", charID),
					zap.Int("template_id", c.TemplateID),
					zap.Error(err))
			}
		}
		spellbook.LearnCrafted(&CraftedAbility{TemplateID: c.TemplateID, EventIDs: eventIDs})
	}
	ent.Register(spellbook)

	return ent, nil
}
