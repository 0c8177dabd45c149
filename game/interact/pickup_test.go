package interact

import (
	"context"
	"testing"

	"github.com/hiyorin/shardrealm/server/game/scene"
	"github.com/hiyorin/shardrealm/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickupItem(t *testing.T) {
	f := newFixture(t)
	drop := f.spawnStation(scene.KindWorldItem, itemSword)
	ent := f.newPlayer(t, 1, 0, 4) // pickups are free

	res, err := f.pipe.PickupItem(context.Background(), ent, PickupRequest{
		ObjectID: drop.ID, SceneHandle: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, itemSword, res.TemplateID)

	var inv model.Inventory
	require.NoError(t, f.db.Where("char_id = ?", 1).First(&inv).Error)
	assert.Equal(t, itemSword, inv.TemplateID)

	// the drop is gone from the world
	assert.Zero(t, f.scenes.Count())
}

func TestPickupItem_SecondClaimFails(t *testing.T) {
	f := newFixture(t)
	drop := f.spawnStation(scene.KindWorldItem, itemSword)
	ent := f.newPlayer(t, 1, 0, 4)
	ctx := context.Background()

	_, err := f.pipe.PickupItem(ctx, ent, PickupRequest{ObjectID: drop.ID, SceneHandle: 1})
	require.NoError(t, err)

	// stale client retries the same drop
	_, err = f.pipe.PickupItem(ctx, ent, PickupRequest{ObjectID: drop.ID, SceneHandle: 1})
	require.Error(t, err)
	assert.True(t, IsTampering(err))
}

func TestPickupItem_FullBag(t *testing.T) {
	f := newFixture(t)
	drop := f.spawnStation(scene.KindWorldItem, itemSword)
	ent := f.newPlayer(t, 1, 0, 1)
	bag, _ := ent.Bag()
	bag.SetSlot(0, 999, 1)

	_, err := f.pipe.PickupItem(context.Background(), ent, PickupRequest{
		ObjectID: drop.ID, SceneHandle: 1,
	})
	assert.ErrorIs(t, err, ErrBagFull)
	// the drop stays in the world
	assert.Equal(t, 1, f.scenes.Count())
}
