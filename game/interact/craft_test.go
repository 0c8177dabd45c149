package interact

import (
	"context"
	"testing"

	"github.com/hiyorin/shardrealm/server/game/entity"
	"github.com/hiyorin/shardrealm/server/game/scene"
	"github.com/hiyorin/shardrealm/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// craftReady returns a player that already knows the base ability and all
// three event templates, standing next to an ability crafter.
func craftReady(t *testing.T, f *fixture, gold int64) (*entity.Entity, *scene.Object) {
	t.Helper()
	crafter := f.spawnStation(scene.KindAbilityCrafter, 0)
	ent := f.newPlayer(t, 1, gold, 4)
	sb, _ := ent.Spellbook()
	sb.LearnBase(abilityFireball)
	sb.LearnBase(eventQuicken)
	sb.LearnBase(eventFireType)
	sb.LearnBase(eventIceType)
	return ent, crafter
}

func TestCraftAbility(t *testing.T) {
	f := newFixture(t)
	ent, crafter := craftReady(t, f, 100)

	// 10 base + 5 quicken + 5 fire type
	res, err := f.pipe.CraftAbility(context.Background(), ent, CraftRequest{
		ObjectID: crafter.ID, SceneHandle: 1,
		TemplateID: abilityFireball,
		EventIDs:   []int{eventQuicken, eventFireType},
	})
	require.NoError(t, err)
	assert.Equal(t, abilityFireball, res.TemplateID)
	assert.Equal(t, int64(80), res.Gold)
	assert.Equal(t, int64(80), f.charGold(t, 1))

	sb, _ := ent.Spellbook()
	assert.True(t, sb.KnowsCrafted(abilityFireball))

	var row model.CharAbility
	require.NoError(t, f.db.Where("char_id = ?", 1).First(&row).Error)
	assert.Equal(t, abilityFireball, row.TemplateID)
	assert.JSONEq(t, `[301,302]`, string(row.EventIDs))
}

func TestCraftAbility_Twice(t *testing.T) {
	f := newFixture(t)
	ent, crafter := craftReady(t, f, 100)
	ctx := context.Background()

	req := CraftRequest{ObjectID: crafter.ID, SceneHandle: 1, TemplateID: abilityFireball}
	_, err := f.pipe.CraftAbility(ctx, ent, req)
	require.NoError(t, err)

	_, err = f.pipe.CraftAbility(ctx, ent, req)
	assert.ErrorIs(t, err, ErrAlreadyCrafted)
	assert.Equal(t, int64(80), f.charGold(t, 1), "only the first craft may charge")
	assert.False(t, ent.Session.IsKicked())
}

func TestCraftAbility_InsufficientGold(t *testing.T) {
	f := newFixture(t)
	ent, crafter := craftReady(t, f, 5)

	_, err := f.pipe.CraftAbility(context.Background(), ent, CraftRequest{
		ObjectID: crafter.ID, SceneHandle: 1, TemplateID: abilityFireball,
	})
	assert.ErrorIs(t, err, ErrInsufficientGold)
	sb, _ := ent.Spellbook()
	assert.False(t, sb.KnowsCrafted(abilityFireball))
}

func TestCraftAbility_DuplicateEventKicks(t *testing.T) {
	f := newFixture(t)
	ent, crafter := craftReady(t, f, 100)

	_, err := f.pipe.CraftAbility(context.Background(), ent, CraftRequest{
		ObjectID: crafter.ID, SceneHandle: 1,
		TemplateID: abilityFireball,
		EventIDs:   []int{eventQuicken, eventQuicken},
	})
	require.Error(t, err)
	assert.True(t, IsTampering(err))
	assert.True(t, ent.Session.IsKicked())
	assert.Equal(t, int64(100), f.charGold(t, 1))
}

func TestCraftAbility_TwoTypeOverridesKicks(t *testing.T) {
	f := newFixture(t)
	ent, crafter := craftReady(t, f, 100)

	_, err := f.pipe.CraftAbility(context.Background(), ent, CraftRequest{
		ObjectID: crafter.ID, SceneHandle: 1,
		TemplateID: abilityFireball,
		EventIDs:   []int{eventFireType, eventIceType},
	})
	require.Error(t, err)
	assert.True(t, IsTampering(err))
	assert.True(t, ent.Session.IsKicked())
}

func TestCraftAbility_UnownedBaseKicks(t *testing.T) {
	f := newFixture(t)
	crafter := f.spawnStation(scene.KindAbilityCrafter, 0)
	ent := f.newPlayer(t, 1, 100, 4) // knows nothing

	_, err := f.pipe.CraftAbility(context.Background(), ent, CraftRequest{
		ObjectID: crafter.ID, SceneHandle: 1, TemplateID: abilityFireball,
	})
	require.Error(t, err)
	assert.True(t, IsTampering(err))
}

func TestCraftAbility_UnownedEventKicks(t *testing.T) {
	f := newFixture(t)
	crafter := f.spawnStation(scene.KindAbilityCrafter, 0)
	ent := f.newPlayer(t, 1, 100, 4)
	sb, _ := ent.Spellbook()
	sb.LearnBase(abilityFireball) // but not the event

	_, err := f.pipe.CraftAbility(context.Background(), ent, CraftRequest{
		ObjectID: crafter.ID, SceneHandle: 1,
		TemplateID: abilityFireball,
		EventIDs:   []int{eventQuicken},
	})
	require.Error(t, err)
	assert.True(t, IsTampering(err))
}

func TestCraftAbility_AtWrongStationKind(t *testing.T) {
	f := newFixture(t)
	merchant := f.spawnStation(scene.KindMerchant, merchantTown)
	ent := f.newPlayer(t, 1, 100, 4)
	sb, _ := ent.Spellbook()
	sb.LearnBase(abilityFireball)

	_, err := f.pipe.CraftAbility(context.Background(), ent, CraftRequest{
		ObjectID: merchant.ID, SceneHandle: 1, TemplateID: abilityFireball,
	})
	require.Error(t, err)
	assert.True(t, IsTampering(err))
}
