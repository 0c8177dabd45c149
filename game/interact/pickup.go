package interact

import (
	"context"
	"time"

	"github.com/hiyorin/shardrealm/server/game/entity"
	"github.com/hiyorin/shardrealm/server/game/scene"
	"github.com/hiyorin/shardrealm/server/model"
)

// PickupRequest claims a dropped world item.
type PickupRequest struct {
	ObjectID    int64 `json:"object_id"`
	SceneHandle int   `json:"scene_handle"`
}

// PickupResult reports a claimed world item.
type PickupResult struct {
	TemplateID int `json:"template_id"`
	Slot       int `json:"slot"`
}

// PickupItem moves a dropped world item into the character's bag. The
// station is despawned inside the entity lock, so two characters racing for
// the same drop resolve to exactly one winner; the loser's request finds the
// object already gone and fails validation. The despawned instance goes back
// to the recycling pool when one is configured.
func (p *Pipeline) PickupItem(ctx context.Context, ent *entity.Entity, req PickupRequest) (*PickupResult, error) {
	start := time.Now()
	unlock := p.lockEntity(ent.ID)
	defer unlock()

	result, err := p.pickupItem(ctx, ent, req)
	return result, p.finish(ent, "pickup_item", req, result, start, err)
}

func (p *Pipeline) pickupItem(ctx context.Context, ent *entity.Entity, req PickupRequest) (*PickupResult, error) {
	obj, err := p.station(ent, req.ObjectID, req.SceneHandle, scene.KindWorldItem)
	if err != nil {
		return nil, err
	}
	tpl, ok := p.catalog.Item(obj.TemplateID)
	if !ok {
		return nil, tamper("world item %d has unknown template %d", obj.ID, obj.TemplateID)
	}
	bag, ok := ent.Bag()
	if !ok {
		return nil, tamper("entity %d has no bag", ent.ID)
	}
	slot, ok := bag.TryAdd(tpl.ID, 1)
	if !ok {
		return nil, ErrBagFull
	}

	// claim the drop before persisting: Despawn is atomic, so only one
	// caller gets a non-nil object back
	claimed := p.scenes.Despawn(obj.ID)
	if claimed == nil {
		bag.Clear(slot)
		return nil, tamper("world item %d already claimed", obj.ID)
	}

	storeCtx, cancel := p.storeCtx(ctx)
	defer cancel()
	err = p.db.WithContext(storeCtx).Create(&model.Inventory{
		CharID:     ent.ID,
		Slot:       slot,
		TemplateID: tpl.ID,
		Qty:        1,
	}).Error
	if err != nil {
		bag.Clear(slot)
		p.scenes.Spawn(claimed)
		return nil, err
	}

	if p.pool != nil {
		p.pool.Release(claimed)
	}

	result := &PickupResult{TemplateID: tpl.ID, Slot: slot}
	p.notify(ent, "item_grant", result)
	p.fire(ctx, EventPickupItem, result)
	return result, nil
}
