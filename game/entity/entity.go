// Package entity models a simulated actor (player character or NPC) and the
// capability registry the transaction pipeline uses to reach its currency,
// inventory and ability sub-controllers without static coupling.
package entity

import (
	"sync"

	"github.com/hiyorin/shardrealm/server/game/player"
	"go.uber.org/zap"
)

// Capability identifies one behaviour interface an entity may expose.
type Capability int

const (
	CapWallet Capability = iota + 1
	CapBag
	CapSpellbook
)

func (c Capability) String() string {
	switch c {
	case CapWallet:
		return "wallet"
	case CapBag:
		return "bag"
	case CapSpellbook:
		return "spellbook"
	default:
		return "unknown"
	}
}

// Behaviour is a sub-controller attached to an entity. Each behaviour
// declares the capabilities it implements; registration is explicit at
// entity construction rather than discovered by reflection.
type Behaviour interface {
	Capabilities() []Capability
}

// Entity is one simulated actor owned by this shard.
type Entity struct {
	ID          int64 // character ID for players
	Name        string
	SceneName   string
	SceneHandle int
	X, Y, Z     float64

	// Session is nil for NPCs and for players that have disconnected.
	Session *player.Session

	mu         sync.RWMutex
	behaviours map[Capability]Behaviour
	logger     *zap.Logger
}

// New creates an Entity with an empty capability registry.
func New(id int64, name string, logger *zap.Logger) *Entity {
	return &Entity{
		ID:         id,
		Name:       name,
		behaviours: make(map[Capability]Behaviour),
		logger:     logger,
	}
}

// Register inserts b under each capability it declares. First registration
// wins: a later behaviour claiming an already-taken capability is skipped
// and logged, never overwrites. This keeps a rogue behaviour from shadowing
// another's lookups.
func (e *Entity) Register(b Behaviour) {
	if b == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, cap := range b.Capabilities() {
		if _, taken := e.behaviours[cap]; taken {
			e.logger.Warn("capability already registered, skipping",
				zap.Int64("entity_id", e.ID),
				zap.Stringer("capability", cap))
			continue
		}
		e.behaviours[cap] = b
	}
}

// Unregister removes every capability mapping that points at this exact
// behaviour instance. Matching by instance, not by capability, avoids
// removing a different behaviour that holds the same slot.
func (e *Entity) Unregister(b Behaviour) {
	if b == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for cap, cur := range e.behaviours {
		if cur == b {
			delete(e.behaviours, cap)
		}
	}
}

// TryGet returns the behaviour registered for cap. A false result means the
// entity has no such capability; it is not an error.
func (e *Entity) TryGet(cap Capability) (Behaviour, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.behaviours[cap]
	return b, ok
}

// Wallet returns the entity's currency controller, if any.
func (e *Entity) Wallet() (*Wallet, bool) {
	b, ok := e.TryGet(CapWallet)
	if !ok {
		return nil, false
	}
	w, ok := b.(*Wallet)
	return w, ok
}

// Bag returns the entity's inventory controller, if any.
func (e *Entity) Bag() (*Bag, bool) {
	b, ok := e.TryGet(CapBag)
	if !ok {
		return nil, false
	}
	bag, ok := b.(*Bag)
	return bag, ok
}

// Spellbook returns the entity's ability controller, if any.
func (e *Entity) Spellbook() (*Spellbook, bool) {
	b, ok := e.TryGet(CapSpellbook)
	if !ok {
		return nil, false
	}
	sb, ok := b.(*Spellbook)
	return sb, ok
}

// Position returns the entity's current location.
func (e *Entity) Position() (x, y, z float64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.X, e.Y, e.Z
}

// SetPosition moves the entity.
func (e *Entity) SetPosition(x, y, z float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.X, e.Y, e.Z = x, y, z
}

// PooledReset clears all transient state so the instance can be recycled.
// The capability registry is torn down; behaviours are re-registered when
// the entity is activated again.
func (e *Entity) PooledReset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ID = 0
	e.Name = ""
	e.SceneName = ""
	e.SceneHandle = 0
	e.X, e.Y, e.Z = 0, 0, 0
	e.Session = nil
	e.behaviours = make(map[Capability]Behaviour)
}
