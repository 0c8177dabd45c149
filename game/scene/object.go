// Package scene tracks the interactable world objects (stations) a shard
// hosts: merchants, ability crafters, bindstones and dropped world items.
// The transaction pipeline validates every client-referenced station here
// before touching any state.
package scene

import (
	"sync"

	"github.com/hiyorin/shardrealm/server/game/pool"
)

// Kind classifies an interactable station.
type Kind int

const (
	KindMerchant Kind = iota + 1
	KindAbilityCrafter
	KindBindstone
	KindWorldItem
)

func (k Kind) String() string {
	switch k {
	case KindMerchant:
		return "merchant"
	case KindAbilityCrafter:
		return "ability_crafter"
	case KindBindstone:
		return "bindstone"
	case KindWorldItem:
		return "world_item"
	default:
		return "unknown"
	}
}

// Object is one interactable station instance. Scene handles disambiguate
// identically-numbered scenes running on the same shard, so an ID match
// alone is never trusted.
type Object struct {
	ID          int64
	Kind        Kind
	TemplateID  int // merchant template, or item template for world items
	SceneName   string
	SceneHandle int
	X, Y, Z     float64

	Pool pool.Key // zero for non-pooled stations

	mu        sync.Mutex
	active    bool
	destroyed bool
}

// InRange reports whether (x, y, z) is within r of the object.
func (o *Object) InRange(x, y, z, r float64) bool {
	dx, dy, dz := o.X-x, o.Y-y, o.Z-z
	return dx*dx+dy*dy+dz*dz <= r*r
}

// Active reports whether the object is live in the world.
func (o *Object) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// ---- pool.Poolable ----

// PoolKey implements pool.Poolable.
func (o *Object) PoolKey() pool.Key { return o.Pool }

// SetPlacement implements pool.Poolable.
func (o *Object) SetPlacement(p pool.Placement) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.SceneName = p.SceneName
	o.SceneHandle = p.SceneHandle
	o.X, o.Y, o.Z = p.X, p.Y, p.Z
}

// SetActive implements pool.Poolable.
func (o *Object) SetActive(active bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = active
}

// Destroyed implements pool.Poolable.
func (o *Object) Destroyed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.destroyed
}

// Destroy implements pool.Poolable.
func (o *Object) Destroy() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.destroyed = true
	o.active = false
}

// PooledReset implements pool.Poolable. Placement fields survive the reset;
// only per-use transient identity is cleared.
func (o *Object) PooledReset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ID = 0
	o.active = false
}
