package interact

import (
	"context"
	"time"

	"github.com/hiyorin/shardrealm/server/game/entity"
	"github.com/hiyorin/shardrealm/server/game/scene"
	"github.com/hiyorin/shardrealm/server/model"
	"gorm.io/gorm"
)

// Merchant tabs. Clients reference an offering by tab and index into the
// merchant template's slice for that tab; the server resolves the template
// and its price itself.
const (
	TabItems         = "items"
	TabAbilities     = "abilities"
	TabAbilityEvents = "ability_events"
)

// PurchaseRequest identifies one merchant offering.
type PurchaseRequest struct {
	ObjectID    int64 `json:"object_id"`
	SceneHandle int   `json:"scene_handle"`
	Index       int   `json:"index"`
}

// PurchaseItemResult reports a completed item purchase.
type PurchaseItemResult struct {
	TemplateID int   `json:"template_id"`
	Slot       int   `json:"slot"`
	Gold       int64 `json:"gold"`
}

// PurchaseAbilityResult reports a completed ability or event purchase.
type PurchaseAbilityResult struct {
	TemplateID int   `json:"template_id"`
	Gold       int64 `json:"gold"`
}

// PurchaseItem buys the item at req.Index of the merchant's item tab and
// places it into the first free bag slot. The bag is checked before any
// gold moves, so a full bag never costs anything.
func (p *Pipeline) PurchaseItem(ctx context.Context, ent *entity.Entity, req PurchaseRequest) (*PurchaseItemResult, error) {
	start := time.Now()
	unlock := p.lockEntity(ent.ID)
	defer unlock()

	result, err := p.purchaseItem(ctx, ent, req)
	return result, p.finish(ent, "purchase_item", req, result, start, err)
}

func (p *Pipeline) purchaseItem(ctx context.Context, ent *entity.Entity, req PurchaseRequest) (*PurchaseItemResult, error) {
	obj, err := p.station(ent, req.ObjectID, req.SceneHandle, scene.KindMerchant)
	if err != nil {
		return nil, err
	}
	merchant, err := p.merchant(obj)
	if err != nil {
		return nil, err
	}
	if req.Index < 0 || req.Index >= len(merchant.Items) {
		return nil, tamper("item index %d outside merchant %d offering", req.Index, merchant.ID)
	}
	tpl, ok := p.catalog.Item(merchant.Items[req.Index])
	if !ok {
		return nil, tamper("merchant %d offers unknown item template %d", merchant.ID, merchant.Items[req.Index])
	}

	bag, ok := ent.Bag()
	if !ok {
		return nil, tamper("entity %d has no bag", ent.ID)
	}
	wallet, ok := ent.Wallet()
	if !ok {
		return nil, tamper("entity %d has no wallet", ent.ID)
	}
	slot, ok := bag.TryAdd(tpl.ID, 1)
	if !ok {
		return nil, ErrBagFull
	}

	storeCtx, cancel := p.storeCtx(ctx)
	defer cancel()
	err = p.db.WithContext(storeCtx).Transaction(func(tx *gorm.DB) error {
		if err := debitGold(tx, ent.ID, tpl.Price); err != nil {
			return err
		}
		return tx.Create(&model.Inventory{
			CharID:     ent.ID,
			Slot:       slot,
			TemplateID: tpl.ID,
			Qty:        1,
		}).Error
	})
	if err != nil {
		bag.Clear(slot)
		return nil, err
	}

	gold := wallet.Apply(-tpl.Price)
	result := &PurchaseItemResult{TemplateID: tpl.ID, Slot: slot, Gold: gold}
	p.notify(ent, "item_grant", result)
	p.fire(ctx, EventPurchaseItem, result)
	return result, nil
}

// PurchaseAbility buys the base ability at req.Index of the merchant's
// ability tab, unlocking it in the character's spellbook.
func (p *Pipeline) PurchaseAbility(ctx context.Context, ent *entity.Entity, req PurchaseRequest) (*PurchaseAbilityResult, error) {
	start := time.Now()
	unlock := p.lockEntity(ent.ID)
	defer unlock()

	result, err := p.purchaseAbility(ctx, ent, req)
	return result, p.finish(ent, "purchase_ability", req, result, start, err)
}

func (p *Pipeline) purchaseAbility(ctx context.Context, ent *entity.Entity, req PurchaseRequest) (*PurchaseAbilityResult, error) {
	obj, err := p.station(ent, req.ObjectID, req.SceneHandle, scene.KindMerchant)
	if err != nil {
		return nil, err
	}
	merchant, err := p.merchant(obj)
	if err != nil {
		return nil, err
	}
	if req.Index < 0 || req.Index >= len(merchant.Abilities) {
		return nil, tamper("ability index %d outside merchant %d offering", req.Index, merchant.ID)
	}
	tpl, ok := p.catalog.Ability(merchant.Abilities[req.Index])
	if !ok {
		return nil, tamper("merchant %d offers unknown ability template %d", merchant.ID, merchant.Abilities[req.Index])
	}
	return p.unlockTemplate(ctx, ent, EventPurchaseAbility, tpl.ID, tpl.Price)
}

// PurchaseAbilityEvent buys the ability event at req.Index of the
// merchant's event tab. Events are unlocked the same way base abilities
// are; crafting later bakes them into a crafted ability.
func (p *Pipeline) PurchaseAbilityEvent(ctx context.Context, ent *entity.Entity, req PurchaseRequest) (*PurchaseAbilityResult, error) {
	start := time.Now()
	unlock := p.lockEntity(ent.ID)
	defer unlock()

	result, err := p.purchaseAbilityEvent(ctx, ent, req)
	return result, p.finish(ent, "purchase_ability_event", req, result, start, err)
}

func (p *Pipeline) purchaseAbilityEvent(ctx context.Context, ent *entity.Entity, req PurchaseRequest) (*PurchaseAbilityResult, error) {
	obj, err := p.station(ent, req.ObjectID, req.SceneHandle, scene.KindMerchant)
	if err != nil {
		return nil, err
	}
	merchant, err := p.merchant(obj)
	if err != nil {
		return nil, err
	}
	if req.Index < 0 || req.Index >= len(merchant.AbilityEvents) {
		return nil, tamper("event index %d outside merchant %d offering", req.Index, merchant.ID)
	}
	tpl, ok := p.catalog.AbilityEvent(merchant.AbilityEvents[req.Index])
	if !ok {
		return nil, tamper("merchant %d offers unknown event template %d", merchant.ID, merchant.AbilityEvents[req.Index])
	}
	return p.unlockTemplate(ctx, ent, EventPurchaseAbilityEvent, tpl.ID, tpl.Price)
}

// unlockTemplate is the shared tail of ability and event purchases.
func (p *Pipeline) unlockTemplate(ctx context.Context, ent *entity.Entity, event string, templateID int, price int64) (*PurchaseAbilityResult, error) {
	spellbook, ok := ent.Spellbook()
	if !ok {
		return nil, tamper("entity %d has no spellbook", ent.ID)
	}
	wallet, ok := ent.Wallet()
	if !ok {
		return nil, tamper("entity %d has no wallet", ent.ID)
	}
	if spellbook.Knows(templateID) {
		return nil, ErrAlreadyKnown
	}
	if p.cfg.MaxAbilities > 0 && spellbook.KnownCount() >= p.cfg.MaxAbilities {
		return nil, ErrSpellbookFull
	}

	storeCtx, cancel := p.storeCtx(ctx)
	defer cancel()
	err := p.db.WithContext(storeCtx).Transaction(func(tx *gorm.DB) error {
		if err := debitGold(tx, ent.ID, price); err != nil {
			return err
		}
		return tx.Create(&model.KnownAbility{CharID: ent.ID, TemplateID: templateID}).Error
	})
	if err != nil {
		return nil, err
	}

	spellbook.LearnBase(templateID)
	gold := wallet.Apply(-price)
	result := &PurchaseAbilityResult{TemplateID: templateID, Gold: gold}
	p.notify(ent, "ability_grant", result)
	p.fire(ctx, event, result)
	return result, nil
}
