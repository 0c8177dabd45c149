// Package interact is the authoritative transaction pipeline. Every
// state-changing interaction a client requests (buying, crafting, binding,
// picking up) runs through here: the request is validated against server
// state only, priced from the server's catalog, committed to the ledger
// store, and only then reflected into memory and echoed to the client.
// Client-supplied fields are treated as claims to verify, never as facts.
package interact

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/hiyorin/shardrealm/server/audit"
	"github.com/hiyorin/shardrealm/server/game/entity"
	"github.com/hiyorin/shardrealm/server/game/player"
	"github.com/hiyorin/shardrealm/server/game/pool"
	"github.com/hiyorin/shardrealm/server/game/scene"
	"github.com/hiyorin/shardrealm/server/model"
	"github.com/hiyorin/shardrealm/server/plugin/hook"
	"github.com/hiyorin/shardrealm/server/resource"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Hook events fired after a transaction commits.
const (
	EventPurchaseItem         = "interact.purchase_item"
	EventPurchaseAbility      = "interact.purchase_ability"
	EventPurchaseAbilityEvent = "interact.purchase_ability_event"
	EventCraftAbility         = "interact.craft_ability"
	EventBind                 = "interact.bind"
	EventPickupItem           = "interact.pickup_item"
)

// Config carries the pipeline's tunables.
type Config struct {
	ShardID       string
	InteractRange float64 // max distance to a station, world units
	MaxAbilities  int     // cap on known and crafted abilities alike
	// CallTimeout bounds each ledger store call. Zero means no bound.
	CallTimeout time.Duration
}

// Pipeline validates and executes interactions for entities on this shard.
type Pipeline struct {
	db       *gorm.DB
	catalog  *resource.Catalog
	scenes   *scene.Registry
	sessions *player.SessionManager
	pool     *pool.Pool
	hooks    *hook.HookCenter
	auditor  *audit.Service
	logger   *zap.Logger
	cfg      Config

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New creates a Pipeline. pool may be nil if world-item recycling is off.
func New(db *gorm.DB, catalog *resource.Catalog, scenes *scene.Registry,
	sessions *player.SessionManager, p *pool.Pool, hooks *hook.HookCenter,
	auditor *audit.Service, logger *zap.Logger, cfg Config) *Pipeline {
	return &Pipeline{
		db:       db,
		catalog:  catalog,
		scenes:   scenes,
		sessions: sessions,
		pool:     p,
		hooks:    hooks,
		auditor:  auditor,
		logger:   logger,
		cfg:      cfg,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// lockEntity serializes transactions per entity. Two concurrent requests
// from the same character never interleave between validation and commit.
func (p *Pipeline) lockEntity(id int64) func() {
	p.mu.Lock()
	l, ok := p.locks[id]
	if !ok {
		l = &sync.Mutex{}
		p.locks[id] = l
	}
	p.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// storeCtx bounds one ledger store call. A call that times out aborts the
// whole transaction with no partial effect.
func (p *Pipeline) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.cfg.CallTimeout)
}

// station runs the validation chain shared by every operation: live player
// session, station resolvable in the caller's scene instance, expected
// station kind, and the caller physically close enough to use it.
func (p *Pipeline) station(ent *entity.Entity, objectID int64, sceneHandle int, kind scene.Kind) (*scene.Object, error) {
	if ent.Session == nil || ent.Session.IsKicked() {
		return nil, tamper("no live session for entity %d", ent.ID)
	}
	// A plain disconnect mid-request is not a verdict on the client.
	if ent.Session.IsClosed() {
		return nil, ErrSessionClosed
	}
	obj, ok := p.scenes.Validate(objectID, sceneHandle)
	if !ok {
		return nil, tamper("station %d not valid in scene handle %d", objectID, sceneHandle)
	}
	// Co-location is decided by the entity's authoritative instance, never
	// by the handle the client echoed (that one only catches stale state).
	if obj.SceneName != ent.SceneName {
		return nil, tamper("station %d is in scene %q, caller is in %q", objectID, obj.SceneName, ent.SceneName)
	}
	if obj.SceneHandle != ent.SceneHandle {
		return nil, tamper("station %d is in instance %d of %q, caller is in instance %d",
			objectID, obj.SceneHandle, obj.SceneName, ent.SceneHandle)
	}
	if obj.Kind != kind {
		return nil, tamper("station %d is a %s, not a %s", objectID, obj.Kind, kind)
	}
	x, y, z := ent.Position()
	if !obj.InRange(x, y, z, p.cfg.InteractRange) {
		return nil, tamper("station %d out of range for entity %d", objectID, ent.ID)
	}
	return obj, nil
}

// merchant resolves the station's merchant template.
func (p *Pipeline) merchant(obj *scene.Object) (*resource.MerchantTemplate, error) {
	tpl, ok := p.catalog.Merchant(obj.TemplateID)
	if !ok {
		return nil, tamper("station %d references unknown merchant template %d", obj.ID, obj.TemplateID)
	}
	return tpl, nil
}

// debitGold charges price against the character row. The balance guard runs
// in SQL so two shards (or two requests racing past the in-memory wallet)
// can never both win the same gold.
func debitGold(tx *gorm.DB, charID, price int64) error {
	if price <= 0 {
		return nil
	}
	res := tx.Model(&model.Character{}).
		Where("id = ? AND gold >= ?", charID, price).
		Update("gold", gorm.Expr("gold - ?", price))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientGold
	}
	return nil
}

// finish applies the shared outcome handling: audit verdict, tamper kick,
// structured log. It returns err unchanged for the caller to propagate.
func (p *Pipeline) finish(ent *entity.Entity, action string, req, resp interface{}, start time.Time, err error) error {
	verdict := audit.VerdictOK
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
		if IsTampering(err) {
			verdict = audit.VerdictTampering
			p.logger.Warn("tampering detected, kicking",
				zap.Int64("char_id", ent.ID),
				zap.String("action", action),
				zap.String("reason", errMsg))
			p.sessions.Kick(ent.ID)
		} else {
			verdict = audit.VerdictRejected
		}
	}
	traceID := ""
	if ent.Session != nil {
		traceID = ent.Session.TraceID
	}
	charID := ent.ID
	p.auditor.Log(audit.Entry{
		TraceID:    traceID,
		CharID:     &charID,
		ShardID:    p.cfg.ShardID,
		Action:     action,
		Request:    req,
		Response:   resp,
		Verdict:    verdict,
		Error:      errMsg,
		DurationMs: int(time.Since(start).Milliseconds()),
	})
	return err
}

// notify pushes a server-initiated packet to the entity's session.
func (p *Pipeline) notify(ent *entity.Entity, typ string, payload interface{}) {
	if ent.Session == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("notify marshal failed", zap.String("type", typ), zap.Error(err))
		return
	}
	ent.Session.Send(&player.Packet{Type: typ, Payload: raw})
}

// fire runs post-commit hooks. Hook errors never unwind a committed
// transaction; they are logged and dropped.
func (p *Pipeline) fire(ctx context.Context, event string, data interface{}) {
	if p.hooks == nil {
		return
	}
	if _, err := p.hooks.Trigger(ctx, event, data); err != nil && !errors.Is(err, hook.ErrInterrupt) {
		p.logger.Warn("post-commit hook failed", zap.String("event", event), zap.Error(err))
	}
}
