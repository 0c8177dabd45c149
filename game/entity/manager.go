package entity

import (
	"sync"

	"go.uber.org/zap"
)

// Manager indexes the live entities this shard simulates, keyed by ID.
type Manager struct {
	mu       sync.RWMutex
	entities map[int64]*Entity
	logger   *zap.Logger
}

// NewManager creates an empty Manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{entities: make(map[int64]*Entity), logger: logger}
}

// Add registers an entity, replacing any previous instance with the same ID
// (reconnect after an unclean disconnect).
func (m *Manager) Add(e *Entity) {
	m.mu.Lock()
	m.entities[e.ID] = e
	m.mu.Unlock()
}

// Remove drops the entity for id and returns it, or nil.
func (m *Manager) Remove(id int64) *Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[id]
	if !ok {
		return nil
	}
	delete(m.entities, id)
	return e
}

// Get returns the entity for id, or nil.
func (m *Manager) Get(id int64) *Entity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entities[id]
}

// Count returns the number of live entities.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entities)
}

// All returns a snapshot of the live entities.
func (m *Manager) All() []*Entity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Entity, 0, len(m.entities))
	for _, e := range m.entities {
		out = append(out, e)
	}
	return out
}
