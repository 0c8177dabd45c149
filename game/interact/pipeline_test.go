package interact

import (
	"context"
	"sync"
	"testing"

	"github.com/hiyorin/shardrealm/server/audit"
	"github.com/hiyorin/shardrealm/server/game/entity"
	"github.com/hiyorin/shardrealm/server/game/player"
	"github.com/hiyorin/shardrealm/server/game/scene"
	"github.com/hiyorin/shardrealm/server/model"
	"github.com/hiyorin/shardrealm/server/plugin/hook"
	"github.com/hiyorin/shardrealm/server/resource"
	"github.com/hiyorin/shardrealm/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	itemSword       = 101
	abilityFireball = 201
	eventQuicken    = 301
	eventFireType   = 302 // type override
	eventIceType    = 303 // type override
	merchantTown    = 1
)

type fixture struct {
	db       *gorm.DB
	pipe     *Pipeline
	scenes   *scene.Registry
	sessions *player.SessionManager
	hooks    *hook.HookCenter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	db := testutil.SetupTestDB(t)

	catalog := resource.NewCatalog("")
	catalog.AddItem(&resource.ItemTemplate{ID: itemSword, Name: "sword", Price: 40})
	catalog.AddAbility(&resource.AbilityTemplate{ID: abilityFireball, Name: "fireball", Price: 10})
	catalog.AddAbilityEvent(&resource.AbilityEventTemplate{ID: eventQuicken, Name: "quicken", Price: 5})
	catalog.AddAbilityEvent(&resource.AbilityEventTemplate{ID: eventFireType, Name: "fire type", Price: 5, TypeOverride: true})
	catalog.AddAbilityEvent(&resource.AbilityEventTemplate{ID: eventIceType, Name: "ice type", Price: 7, TypeOverride: true})
	catalog.AddMerchant(&resource.MerchantTemplate{
		ID:            merchantTown,
		Name:          "town merchant",
		Items:         []int{itemSword},
		Abilities:     []int{abilityFireball},
		AbilityEvents: []int{eventQuicken, eventFireType, eventIceType},
	})

	f := &fixture{
		db:       db,
		scenes:   scene.NewRegistry(logger),
		sessions: player.NewSessionManager(logger),
		hooks:    hook.NewHookCenter(),
	}
	auditor := audit.New(db, logger)
	t.Cleanup(func() { auditor.Stop(context.Background()) })

	f.pipe = New(db, catalog, f.scenes, f.sessions, nil, f.hooks, auditor, logger, Config{
		ShardID:       "shard-test",
		InteractRange: 5,
		MaxAbilities:  25,
	})
	return f
}

func (f *fixture) spawnStation(kind scene.Kind, templateID int) *scene.Object {
	obj := &scene.Object{
		Kind:        kind,
		TemplateID:  templateID,
		SceneName:   "town",
		SceneHandle: 1,
		X:           1, Y: 0, Z: 1,
	}
	f.scenes.Spawn(obj)
	return obj
}

func (f *fixture) newPlayer(t *testing.T, id, gold int64, bagSlots int) *entity.Entity {
	t.Helper()
	require.NoError(t, f.db.Create(&model.Character{
		ID: id, AccountID: id, Name: "hero-" + string(rune('a'+id)),
		SceneName: "town", SceneHandle: 1, Gold: gold,
	}).Error)

	ent := entity.New(id, "hero", zap.NewNop())
	ent.SceneName = "town"
	ent.SceneHandle = 1
	ent.Register(entity.NewWallet(gold))
	ent.Register(entity.NewBag(bagSlots))
	ent.Register(entity.NewSpellbook())

	sess := player.NewDetachedSession(id, id, zap.NewNop())
	ent.Session = sess
	f.sessions.Register(sess)
	return ent
}

func (f *fixture) charGold(t *testing.T, id int64) int64 {
	t.Helper()
	var ch model.Character
	require.NoError(t, f.db.First(&ch, id).Error)
	return ch.Gold
}

func TestPurchaseItem(t *testing.T) {
	f := newFixture(t)
	merchant := f.spawnStation(scene.KindMerchant, merchantTown)
	ent := f.newPlayer(t, 1, 100, 4)

	res, err := f.pipe.PurchaseItem(context.Background(), ent, PurchaseRequest{
		ObjectID: merchant.ID, SceneHandle: 1, Index: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, itemSword, res.TemplateID)
	assert.Equal(t, 0, res.Slot)
	assert.Equal(t, int64(60), res.Gold)

	assert.Equal(t, int64(60), f.charGold(t, 1))
	var inv model.Inventory
	require.NoError(t, f.db.Where("char_id = ?", 1).First(&inv).Error)
	assert.Equal(t, itemSword, inv.TemplateID)
	assert.Equal(t, 0, inv.Slot)

	// the client was told about the grant
	select {
	case raw := <-ent.Session.SendChan:
		assert.Contains(t, string(raw), "item_grant")
	default:
		t.Fatal("expected a grant notification")
	}
}

func TestPurchaseItem_InsufficientGold(t *testing.T) {
	f := newFixture(t)
	merchant := f.spawnStation(scene.KindMerchant, merchantTown)
	ent := f.newPlayer(t, 1, 10, 4)

	_, err := f.pipe.PurchaseItem(context.Background(), ent, PurchaseRequest{
		ObjectID: merchant.ID, SceneHandle: 1, Index: 0,
	})
	assert.ErrorIs(t, err, ErrInsufficientGold)

	// nothing moved
	assert.Equal(t, int64(10), f.charGold(t, 1))
	bag, _ := ent.Bag()
	assert.Zero(t, bag.Used())
	var count int64
	require.NoError(t, f.db.Model(&model.Inventory{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.False(t, ent.Session.IsKicked(), "economic rejection must not kick")
}

func TestPurchaseItem_FullBagCheckedBeforeCharge(t *testing.T) {
	f := newFixture(t)
	merchant := f.spawnStation(scene.KindMerchant, merchantTown)
	ent := f.newPlayer(t, 1, 100, 1)
	bag, _ := ent.Bag()
	bag.SetSlot(0, 999, 1)

	_, err := f.pipe.PurchaseItem(context.Background(), ent, PurchaseRequest{
		ObjectID: merchant.ID, SceneHandle: 1, Index: 0,
	})
	assert.ErrorIs(t, err, ErrBagFull)
	assert.Equal(t, int64(100), f.charGold(t, 1))
}

func TestPurchaseItem_ConcurrentDoubleSpend(t *testing.T) {
	f := newFixture(t)
	merchant := f.spawnStation(scene.KindMerchant, merchantTown)
	ent := f.newPlayer(t, 1, 40, 4) // exactly one sword's worth

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.pipe.PurchaseItem(context.Background(), ent, PurchaseRequest{
				ObjectID: merchant.ID, SceneHandle: 1, Index: 0,
			})
		}(i)
	}
	wg.Wait()

	okCount, brokeCount := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			okCount++
		case assert.ErrorIs(t, err, ErrInsufficientGold):
			brokeCount++
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, brokeCount)
	assert.Equal(t, int64(0), f.charGold(t, 1))

	var count int64
	require.NoError(t, f.db.Model(&model.Inventory{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPurchaseItem_ForgedIndexKicks(t *testing.T) {
	f := newFixture(t)
	merchant := f.spawnStation(scene.KindMerchant, merchantTown)
	ent := f.newPlayer(t, 1, 100, 4)

	_, err := f.pipe.PurchaseItem(context.Background(), ent, PurchaseRequest{
		ObjectID: merchant.ID, SceneHandle: 1, Index: 99,
	})
	require.Error(t, err)
	assert.True(t, IsTampering(err))
	assert.True(t, ent.Session.IsKicked())
	assert.Equal(t, int64(100), f.charGold(t, 1))
}

func TestPurchaseItem_WrongSceneHandle(t *testing.T) {
	f := newFixture(t)
	merchant := f.spawnStation(scene.KindMerchant, merchantTown)
	ent := f.newPlayer(t, 1, 100, 4)

	_, err := f.pipe.PurchaseItem(context.Background(), ent, PurchaseRequest{
		ObjectID: merchant.ID, SceneHandle: 2, Index: 0,
	})
	require.Error(t, err)
	assert.True(t, IsTampering(err))
}

// A station in another instance of the caller's scene stays unreachable even
// when the client echoes that station's real handle: co-location is decided
// by the entity's instance, not the request.
func TestPurchaseItem_CrossInstanceStation(t *testing.T) {
	f := newFixture(t)
	other := &scene.Object{
		Kind:        scene.KindMerchant,
		TemplateID:  merchantTown,
		SceneName:   "town",
		SceneHandle: 2,
		X:           1, Y: 0, Z: 1,
	}
	f.scenes.Spawn(other)
	ent := f.newPlayer(t, 1, 100, 4) // instance 1

	_, err := f.pipe.PurchaseItem(context.Background(), ent, PurchaseRequest{
		ObjectID: other.ID, SceneHandle: 2, Index: 0,
	})
	require.Error(t, err)
	assert.True(t, IsTampering(err))
	assert.Equal(t, int64(100), f.charGold(t, 1))

	bag, _ := ent.Bag()
	assert.Equal(t, 0, bag.Used())
}

// A connection that dropped while the request was in flight aborts the
// transaction without a tampering verdict; disconnecting is not an offence.
func TestPurchaseItem_SessionClosedMidRequest(t *testing.T) {
	f := newFixture(t)
	merchant := f.spawnStation(scene.KindMerchant, merchantTown)
	ent := f.newPlayer(t, 1, 100, 4)

	ent.Session.Close()

	_, err := f.pipe.PurchaseItem(context.Background(), ent, PurchaseRequest{
		ObjectID: merchant.ID, SceneHandle: 1, Index: 0,
	})
	require.ErrorIs(t, err, ErrSessionClosed)
	assert.False(t, IsTampering(err))
	assert.False(t, ent.Session.IsKicked())
	assert.Equal(t, int64(100), f.charGold(t, 1))
}

func TestPurchaseItem_OutOfRange(t *testing.T) {
	f := newFixture(t)
	merchant := f.spawnStation(scene.KindMerchant, merchantTown)
	ent := f.newPlayer(t, 1, 100, 4)
	ent.SetPosition(100, 0, 100)

	_, err := f.pipe.PurchaseItem(context.Background(), ent, PurchaseRequest{
		ObjectID: merchant.ID, SceneHandle: 1, Index: 0,
	})
	require.Error(t, err)
	assert.True(t, IsTampering(err))
}

func TestPurchaseAbility_ThenDuplicateRejected(t *testing.T) {
	f := newFixture(t)
	merchant := f.spawnStation(scene.KindMerchant, merchantTown)
	ent := f.newPlayer(t, 1, 100, 4)

	res, err := f.pipe.PurchaseAbility(context.Background(), ent, PurchaseRequest{
		ObjectID: merchant.ID, SceneHandle: 1, Index: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, abilityFireball, res.TemplateID)
	assert.Equal(t, int64(90), res.Gold)

	sb, _ := ent.Spellbook()
	assert.True(t, sb.Knows(abilityFireball))

	_, err = f.pipe.PurchaseAbility(context.Background(), ent, PurchaseRequest{
		ObjectID: merchant.ID, SceneHandle: 1, Index: 0,
	})
	assert.ErrorIs(t, err, ErrAlreadyKnown)
	assert.Equal(t, int64(90), f.charGold(t, 1))
}

func TestPurchaseFlow_ItemThenAbility(t *testing.T) {
	f := newFixture(t)
	merchant := f.spawnStation(scene.KindMerchant, merchantTown)
	ent := f.newPlayer(t, 1, 100, 4)
	ctx := context.Background()

	itemRes, err := f.pipe.PurchaseItem(ctx, ent, PurchaseRequest{ObjectID: merchant.ID, SceneHandle: 1, Index: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(60), itemRes.Gold)

	abilityRes, err := f.pipe.PurchaseAbility(ctx, ent, PurchaseRequest{ObjectID: merchant.ID, SceneHandle: 1, Index: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(50), abilityRes.Gold)
	assert.Equal(t, int64(50), f.charGold(t, 1))
}
