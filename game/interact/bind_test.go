package interact

import (
	"context"
	"testing"

	"github.com/hiyorin/shardrealm/server/game/scene"
	"github.com/hiyorin/shardrealm/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind(t *testing.T) {
	f := newFixture(t)
	stone := f.spawnStation(scene.KindBindstone, 0)
	ent := f.newPlayer(t, 1, 0, 4) // binding costs nothing

	res, err := f.pipe.Bind(context.Background(), ent, BindRequest{
		ObjectID: stone.ID, SceneHandle: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "town", res.SceneName)

	var ch model.Character
	require.NoError(t, f.db.First(&ch, 1).Error)
	assert.Equal(t, "town", ch.BindScene)
	assert.Equal(t, stone.X, ch.BindX)
	assert.Equal(t, stone.Y, ch.BindY)
	assert.Equal(t, stone.Z, ch.BindZ)
}

func TestBind_Rebind(t *testing.T) {
	f := newFixture(t)
	first := f.spawnStation(scene.KindBindstone, 0)
	second := &scene.Object{
		Kind: scene.KindBindstone, SceneName: "town", SceneHandle: 1,
		X: 3, Y: 0, Z: 3,
	}
	f.scenes.Spawn(second)
	ent := f.newPlayer(t, 1, 0, 4)
	ctx := context.Background()

	_, err := f.pipe.Bind(ctx, ent, BindRequest{ObjectID: first.ID, SceneHandle: 1})
	require.NoError(t, err)
	_, err = f.pipe.Bind(ctx, ent, BindRequest{ObjectID: second.ID, SceneHandle: 1})
	require.NoError(t, err)

	var ch model.Character
	require.NoError(t, f.db.First(&ch, 1).Error)
	assert.Equal(t, second.X, ch.BindX)
	assert.Equal(t, second.Z, ch.BindZ)
}

func TestBind_AtMerchantKicks(t *testing.T) {
	f := newFixture(t)
	merchant := f.spawnStation(scene.KindMerchant, merchantTown)
	ent := f.newPlayer(t, 1, 0, 4)

	_, err := f.pipe.Bind(context.Background(), ent, BindRequest{
		ObjectID: merchant.ID, SceneHandle: 1,
	})
	require.Error(t, err)
	assert.True(t, IsTampering(err))
}
