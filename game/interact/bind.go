package interact

import (
	"context"
	"time"

	"github.com/hiyorin/shardrealm/server/game/entity"
	"github.com/hiyorin/shardrealm/server/game/scene"
	"github.com/hiyorin/shardrealm/server/model"
)

// BindRequest sets the character's respawn point to a bindstone.
type BindRequest struct {
	ObjectID    int64 `json:"object_id"`
	SceneHandle int   `json:"scene_handle"`
}

// BindResult reports the new respawn location.
type BindResult struct {
	SceneName string  `json:"scene_name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
}

// Bind points the character's respawn location at the bindstone's position.
// Binding is free; the whole cost of the operation is getting there.
func (p *Pipeline) Bind(ctx context.Context, ent *entity.Entity, req BindRequest) (*BindResult, error) {
	start := time.Now()
	unlock := p.lockEntity(ent.ID)
	defer unlock()

	result, err := p.bind(ctx, ent, req)
	return result, p.finish(ent, "bind", req, result, start, err)
}

func (p *Pipeline) bind(ctx context.Context, ent *entity.Entity, req BindRequest) (*BindResult, error) {
	obj, err := p.station(ent, req.ObjectID, req.SceneHandle, scene.KindBindstone)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := p.storeCtx(ctx)
	defer cancel()
	err = p.db.WithContext(storeCtx).Model(&model.Character{}).
		Where("id = ?", ent.ID).
		Updates(map[string]interface{}{
			"bind_scene": obj.SceneName,
			"bind_x":     obj.X,
			"bind_y":     obj.Y,
			"bind_z":     obj.Z,
		}).Error
	if err != nil {
		return nil, err
	}

	result := &BindResult{SceneName: obj.SceneName, X: obj.X, Y: obj.Y, Z: obj.Z}
	p.notify(ent, "bind_update", result)
	p.fire(ctx, EventBind, result)
	return result, nil
}
