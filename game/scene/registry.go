package scene

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Registry indexes every live station on this shard by object ID.
type Registry struct {
	mu      sync.RWMutex
	objects map[int64]*Object
	nextID  int64
	logger  *zap.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		objects: make(map[int64]*Object),
		logger:  logger,
	}
}

// Spawn assigns the object a fresh ID, activates it and registers it.
func (r *Registry) Spawn(o *Object) int64 {
	id := atomic.AddInt64(&r.nextID, 1)
	o.ID = id
	o.SetActive(true)
	r.mu.Lock()
	r.objects[id] = o
	r.mu.Unlock()
	return id
}

// Despawn removes the object from the index and deactivates it. The
// instance itself may go back to the recycling pool.
func (r *Registry) Despawn(id int64) *Object {
	r.mu.Lock()
	o, ok := r.objects[id]
	if ok {
		delete(r.objects, id)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	o.SetActive(false)
	return o
}

// Validate resolves id and checks it belongs to the caller's scene. Both a
// missing ID and a scene-handle mismatch fail: object IDs are only unique
// within a scene instance, and a client referencing an object in another
// scene is either stale or probing.
func (r *Registry) Validate(id int64, sceneHandle int) (*Object, bool) {
	r.mu.RLock()
	o, ok := r.objects[id]
	r.mu.RUnlock()
	if !ok {
		r.logger.Debug("unknown scene object", zap.Int64("object_id", id))
		return nil, false
	}
	if o.SceneHandle != sceneHandle {
		r.logger.Debug("scene object handle mismatch",
			zap.Int64("object_id", id),
			zap.Int("want", o.SceneHandle),
			zap.Int("got", sceneHandle))
		return nil, false
	}
	if !o.Active() {
		return nil, false
	}
	return o, true
}

// Count returns the number of registered objects.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}
