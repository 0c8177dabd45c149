// Package pool recycles deactivated world-object instances to avoid
// allocation churn when objects are frequently spawned and despawned (loot
// drops, summons). One LIFO stack per (collection, prefab) identity.
package pool

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Key identifies which stack an instance belongs to.
type Key struct {
	CollectionID int
	PrefabID     int
}

// Placement is where an acquired instance should appear.
type Placement struct {
	SceneName   string
	SceneHandle int
	X, Y, Z     float64
}

// Poolable is implemented by world objects that can be recycled. PooledReset
// must clear every transient field; an instance coming out of the pool is
// indistinguishable from a freshly constructed one.
type Poolable interface {
	PoolKey() Key
	PooledReset()
	SetPlacement(p Placement)
	SetActive(active bool)
	// Destroyed reports whether the instance was torn down externally while
	// sitting in the pool. Destroyed instances are skipped and dropped.
	Destroyed() bool
	// Destroy tears the instance down immediately (used when pooling is
	// disabled).
	Destroy()
}

// Factory constructs a fresh instance for a prefab key.
type Factory func() Poolable

// Pool is a per-shard cache of deactivated instances.
type Pool struct {
	mu       sync.Mutex
	enabled  bool
	stacks   map[Key][]Poolable
	prefabs  map[Key]Factory
	logger   *zap.Logger
}

// New creates a Pool. When enabled is false, Acquire always constructs and
// Release always destroys.
func New(enabled bool, logger *zap.Logger) *Pool {
	return &Pool{
		enabled: enabled,
		stacks:  make(map[Key][]Poolable),
		prefabs: make(map[Key]Factory),
		logger:  logger,
	}
}

// RegisterPrefab installs the factory used when a stack runs empty.
func (p *Pool) RegisterPrefab(key Key, f Factory) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefabs[key] = f
}

// Acquire returns a reset, deactivated instance for key. Most recently
// released instances come back first; entries destroyed while pooled are
// skipped and discarded. When the stack is empty a fresh instance is
// constructed from the registered prefab.
func (p *Pool) Acquire(key Key, placement Placement) (Poolable, error) {
	p.mu.Lock()
	var inst Poolable
	if p.enabled {
		stack := p.stacks[key]
		for inst == nil && len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.Destroyed() {
				continue
			}
			inst = top
		}
		p.stacks[key] = stack
	}
	factory := p.prefabs[key]
	p.mu.Unlock()

	if inst == nil {
		if factory == nil {
			return nil, fmt.Errorf("pool: no prefab registered for %+v", key)
		}
		inst = factory()
	}

	inst.SetPlacement(placement)
	inst.PooledReset()
	inst.SetActive(false)
	return inst, nil
}

// Release resets and stores an instance for reuse. With pooling disabled
// the instance is destroyed instead.
func (p *Pool) Release(inst Poolable) {
	if inst == nil || inst.Destroyed() {
		return
	}
	inst.SetActive(false)
	inst.PooledReset()

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		inst.Destroy()
		return
	}
	key := inst.PoolKey()
	p.stacks[key] = append(p.stacks[key], inst)
}

// Prewarm eagerly constructs and stores count deactivated instances, so a
// burst of spawns does not pay cold-construction latency.
func (p *Pool) Prewarm(key Key, count int) error {
	p.mu.Lock()
	factory := p.prefabs[key]
	p.mu.Unlock()
	if factory == nil {
		return fmt.Errorf("pool: no prefab registered for %+v", key)
	}
	if !p.enabled {
		return nil
	}
	for i := 0; i < count; i++ {
		inst := factory()
		inst.SetActive(false)
		inst.PooledReset()
		p.mu.Lock()
		p.stacks[key] = append(p.stacks[key], inst)
		p.mu.Unlock()
	}
	p.logger.Debug("pool prewarmed",
		zap.Int("collection_id", key.CollectionID),
		zap.Int("prefab_id", key.PrefabID),
		zap.Int("count", count))
	return nil
}

// Size returns the number of pooled instances for key.
func (p *Pool) Size(key Key) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stacks[key])
}
