package interact

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hiyorin/shardrealm/server/game/entity"
	"github.com/hiyorin/shardrealm/server/game/scene"
	"github.com/hiyorin/shardrealm/server/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CraftRequest assembles a crafted ability at an ability crafter station.
// The client names the templates; the server verifies it owns every one of
// them and prices the assembly itself.
type CraftRequest struct {
	ObjectID    int64 `json:"object_id"`
	SceneHandle int   `json:"scene_handle"`
	TemplateID  int   `json:"template_id"`
	EventIDs    []int `json:"event_ids"`
}

// CraftResult reports a completed craft.
type CraftResult struct {
	TemplateID int   `json:"template_id"`
	EventIDs   []int `json:"event_ids"`
	Gold       int64 `json:"gold"`
}

// CraftAbility combines a known base ability with known event templates
// into a crafted ability. Crafting is a one-time unlock per base template.
// Total price is the base price plus the sum of every event's price.
func (p *Pipeline) CraftAbility(ctx context.Context, ent *entity.Entity, req CraftRequest) (*CraftResult, error) {
	start := time.Now()
	unlock := p.lockEntity(ent.ID)
	defer unlock()

	result, err := p.craftAbility(ctx, ent, req)
	return result, p.finish(ent, "craft_ability", req, result, start, err)
}

func (p *Pipeline) craftAbility(ctx context.Context, ent *entity.Entity, req CraftRequest) (*CraftResult, error) {
	if _, err := p.station(ent, req.ObjectID, req.SceneHandle, scene.KindAbilityCrafter); err != nil {
		return nil, err
	}
	spellbook, ok := ent.Spellbook()
	if !ok {
		return nil, tamper("entity %d has no spellbook", ent.ID)
	}
	wallet, ok := ent.Wallet()
	if !ok {
		return nil, tamper("entity %d has no wallet", ent.ID)
	}

	base, ok := p.catalog.Ability(req.TemplateID)
	if !ok {
		return nil, tamper("unknown ability template %d", req.TemplateID)
	}
	// the craft UI only lists templates the character owns
	if !spellbook.Knows(base.ID) {
		return nil, tamper("entity %d crafting unowned ability %d", ent.ID, base.ID)
	}
	if spellbook.KnowsCrafted(base.ID) {
		return nil, ErrAlreadyCrafted
	}
	if p.cfg.MaxAbilities > 0 && spellbook.CraftedCount() >= p.cfg.MaxAbilities {
		return nil, ErrSpellbookFull
	}

	price := base.Price
	overrides := 0
	seen := make(map[int]struct{}, len(req.EventIDs))
	for _, eventID := range req.EventIDs {
		if _, dup := seen[eventID]; dup {
			return nil, tamper("duplicate event template %d in craft", eventID)
		}
		seen[eventID] = struct{}{}

		tpl, ok := p.catalog.AbilityEvent(eventID)
		if !ok {
			return nil, tamper("unknown event template %d", eventID)
		}
		if !spellbook.Knows(tpl.ID) {
			return nil, tamper("entity %d crafting with unowned event %d", ent.ID, tpl.ID)
		}
		if tpl.TypeOverride {
			overrides++
			if overrides > 1 {
				return nil, tamper("multiple type-override events in craft")
			}
		}
		price += tpl.Price
	}

	eventJSON, err := json.Marshal(req.EventIDs)
	if err != nil {
		return nil, err
	}
	storeCtx, cancel := p.storeCtx(ctx)
	defer cancel()
	err = p.db.WithContext(storeCtx).Transaction(func(tx *gorm.DB) error {
		if err := debitGold(tx, ent.ID, price); err != nil {
			return err
		}
		return tx.Create(&model.CharAbility{
			CharID:     ent.ID,
			TemplateID: base.ID,
			EventIDs:   datatypes.JSON(eventJSON),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	spellbook.LearnCrafted(&entity.CraftedAbility{TemplateID: base.ID, EventIDs: req.EventIDs})
	gold := wallet.Apply(-price)
	result := &CraftResult{TemplateID: base.ID, EventIDs: req.EventIDs, Gold: gold}
	p.notify(ent, "ability_crafted", result)
	p.fire(ctx, EventCraftAbility, result)
	return result, nil
}
