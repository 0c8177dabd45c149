package ws

import (
	"context"
	"encoding/json"

	"github.com/hiyorin/shardrealm/server/config"
	"github.com/hiyorin/shardrealm/server/game/entity"
	"github.com/hiyorin/shardrealm/server/game/player"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WorldHandlers bundles the dependencies for connection-level and movement
// messages.
type WorldHandlers struct {
	db       *gorm.DB
	sm       *player.SessionManager
	entities *entity.Manager
	game     config.GameConfig
	shardID  string
	logger   *zap.Logger
}

// NewWorldHandlers creates a new WorldHandlers.
func NewWorldHandlers(db *gorm.DB, sm *player.SessionManager, entities *entity.Manager,
	game config.GameConfig, shardID string, logger *zap.Logger) *WorldHandlers {
	return &WorldHandlers{db: db, sm: sm, entities: entities, game: game, shardID: shardID, logger: logger}
}

// RegisterHandlers registers connection and movement handlers on the Router.
func (wh *WorldHandlers) RegisterHandlers(r *Router) {
	r.On("ping", wh.HandlePing)
	r.On("enter_world", wh.HandleEnterWorld)
	r.On("move", wh.HandleMove)
}

func sendError(s *player.Session, msg string) {
	raw, _ := json.Marshal(map[string]string{"error": msg})
	s.Send(&player.Packet{Type: "error", Payload: raw})
}

// ------------------------------------------------------------------ ping

type pingPayload struct {
	TS int64 `json:"ts"`
}

// HandlePing responds to client heartbeat pings.
func (wh *WorldHandlers) HandlePing(_ context.Context, s *player.Session, raw json.RawMessage) error {
	var p pingPayload
	_ = json.Unmarshal(raw, &p)
	pong, _ := json.Marshal(map[string]int64{"ts": p.TS})
	s.Send(&player.Packet{Type: "pong", Payload: pong})
	return nil
}

// ------------------------------------------------------------------ enter_world

type enterWorldReq struct {
	CharID int64 `json:"char_id"`
}

// HandleEnterWorld loads the requested character into the shard and attaches
// it to this session. Ownership is checked against the authenticated account;
// a client cannot enter as someone else's character.
func (wh *WorldHandlers) HandleEnterWorld(ctx context.Context, s *player.Session, raw json.RawMessage) error {
	var req enterWorldReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return err
	}

	var owned int64
	err := wh.db.WithContext(ctx).
		Table("characters").
		Where("id = ? AND account_id = ?", req.CharID, s.AccountID).
		Count(&owned).Error
	if err != nil {
		return err
	}
	if owned == 0 {
		sendError(s, "invalid character")
		return nil
	}

	ent, err := entity.Load(ctx, wh.db, req.CharID, wh.game.BagSlots, wh.logger)
	if err != nil {
		return err
	}
	ent.Session = s

	oldCharID := s.CharID
	s.CharID = ent.ID
	s.CharName = ent.Name
	if oldCharID != 0 && oldCharID != s.CharID {
		wh.sm.Unregister(oldCharID)
	}
	// first registration for this connection; displaces any duplicate login
	// for the same character
	wh.sm.Register(s)
	wh.entities.Add(ent)

	// claim shard ownership of the character
	if err := wh.db.WithContext(ctx).
		Table("characters").
		Where("id = ?", ent.ID).
		Update("shard_id", wh.shardID).Error; err != nil {
		wh.logger.Warn("shard claim failed", zap.Int64("char_id", ent.ID), zap.Error(err))
	}
	if err := wh.db.WithContext(ctx).
		Table("accounts").
		Where("id = ?", s.AccountID).
		Update("last_shard_id", wh.shardID).Error; err != nil {
		wh.logger.Warn("last shard update failed", zap.Int64("account_id", s.AccountID), zap.Error(err))
	}

	x, y, z := ent.Position()
	welcome, _ := json.Marshal(map[string]interface{}{
		"char_id": ent.ID, "name": ent.Name,
		"scene_name": ent.SceneName, "scene_handle": ent.SceneHandle,
		"x": x, "y": y, "z": z,
	})
	s.Send(&player.Packet{Type: "world_entered", Payload: welcome})
	wh.logger.Info("character entered world",
		zap.Int64("char_id", ent.ID),
		zap.String("scene", ent.SceneName))
	return nil
}

// ------------------------------------------------------------------ move

type moveReq struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandleMove updates the entity's position. Movement is client-driven but
// bounded per message; a teleport-sized jump is ignored.
func (wh *WorldHandlers) HandleMove(_ context.Context, s *player.Session, raw json.RawMessage) error {
	if s.CharID == 0 {
		sendError(s, "not in world")
		return nil
	}
	var req moveReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return err
	}
	ent := wh.entities.Get(s.CharID)
	if ent == nil {
		sendError(s, "not in world")
		return nil
	}

	x, y, z := ent.Position()
	dx, dy, dz := req.X-x, req.Y-y, req.Z-z
	const maxStep = 20.0 // world units per message
	if dx*dx+dy*dy+dz*dz > maxStep*maxStep {
		wh.logger.Warn("oversized move rejected",
			zap.Int64("char_id", s.CharID),
			zap.Float64("dist_sq", dx*dx+dy*dy+dz*dz))
		return nil
	}
	ent.SetPosition(req.X, req.Y, req.Z)
	return nil
}
