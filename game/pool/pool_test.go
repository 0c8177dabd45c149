package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeObject struct {
	key       Key
	health    int
	placement Placement
	active    bool
	destroyed bool
	resets    int
}

func (f *fakeObject) PoolKey() Key               { return f.key }
func (f *fakeObject) SetPlacement(p Placement)   { f.placement = p }
func (f *fakeObject) SetActive(active bool)      { f.active = active }
func (f *fakeObject) Destroyed() bool            { return f.destroyed }
func (f *fakeObject) Destroy()                   { f.destroyed = true }
func (f *fakeObject) PooledReset() {
	f.health = 0
	f.resets++
}

var testKey = Key{CollectionID: 1, PrefabID: 7}

func newTestPool(t *testing.T, enabled bool) (*Pool, *int) {
	t.Helper()
	p := New(enabled, zap.NewNop())
	constructed := 0
	p.RegisterPrefab(testKey, func() Poolable {
		constructed++
		return &fakeObject{key: testKey}
	})
	return p, &constructed
}

func TestAcquire_ConstructsWhenEmpty(t *testing.T) {
	p, constructed := newTestPool(t, true)

	inst, err := p.Acquire(testKey, Placement{SceneName: "greenfields", X: 1})
	require.NoError(t, err)
	obj := inst.(*fakeObject)
	assert.Equal(t, 1, *constructed)
	assert.False(t, obj.active, "acquired instance must come back deactivated")
	assert.Equal(t, "greenfields", obj.placement.SceneName)
}

func TestRoundTrip_ReusesAndResets(t *testing.T) {
	p, constructed := newTestPool(t, true)

	inst, err := p.Acquire(testKey, Placement{})
	require.NoError(t, err)
	obj := inst.(*fakeObject)
	obj.health = 55 // dirty transient state during use

	p.Release(obj)
	require.Equal(t, 1, p.Size(testKey))

	again, err := p.Acquire(testKey, Placement{})
	require.NoError(t, err)
	assert.Same(t, obj, again, "non-empty pool must not allocate")
	assert.Equal(t, 1, *constructed)
	assert.Zero(t, again.(*fakeObject).health, "transient state must be fully reset")
}

func TestAcquire_LIFO(t *testing.T) {
	p, _ := newTestPool(t, true)

	a, _ := p.Acquire(testKey, Placement{})
	b, _ := p.Acquire(testKey, Placement{})
	p.Release(a)
	p.Release(b)

	got, err := p.Acquire(testKey, Placement{})
	require.NoError(t, err)
	assert.Same(t, b, got, "most recently released comes back first")
}

func TestAcquire_SkipsDestroyedEntries(t *testing.T) {
	p, constructed := newTestPool(t, true)

	a, _ := p.Acquire(testKey, Placement{})
	b, _ := p.Acquire(testKey, Placement{})
	p.Release(a)
	p.Release(b)

	// b sits on top; destroy it externally while pooled.
	b.(*fakeObject).destroyed = true

	got, err := p.Acquire(testKey, Placement{})
	require.NoError(t, err)
	assert.Same(t, a, got, "destroyed top-of-stack entry must be skipped")
	assert.Equal(t, 2, *constructed)
	assert.Equal(t, 0, p.Size(testKey))
}

func TestRelease_DisabledPoolDestroys(t *testing.T) {
	p, _ := newTestPool(t, false)

	inst, err := p.Acquire(testKey, Placement{})
	require.NoError(t, err)
	p.Release(inst)

	assert.True(t, inst.(*fakeObject).destroyed)
	assert.Equal(t, 0, p.Size(testKey))
}

func TestPrewarm(t *testing.T) {
	p, constructed := newTestPool(t, true)

	require.NoError(t, p.Prewarm(testKey, 3))
	assert.Equal(t, 3, *constructed)
	assert.Equal(t, 3, p.Size(testKey))

	_, err := p.Acquire(testKey, Placement{})
	require.NoError(t, err)
	assert.Equal(t, 3, *constructed, "acquire after prewarm must not construct")
}

func TestPrewarm_UnknownPrefabFails(t *testing.T) {
	p := New(true, zap.NewNop())
	assert.Error(t, p.Prewarm(Key{CollectionID: 9, PrefabID: 9}, 1))
}
