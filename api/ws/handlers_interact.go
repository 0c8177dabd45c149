package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hiyorin/shardrealm/server/game/entity"
	"github.com/hiyorin/shardrealm/server/game/interact"
	"github.com/hiyorin/shardrealm/server/game/player"
	"go.uber.org/zap"
)

// InteractHandlers routes station interaction messages into the transaction
// pipeline. Economic rejections go back to the client as error packets;
// tampering verdicts are swallowed here because the pipeline has already
// kicked the session and a kicked client gets no explanation.
type InteractHandlers struct {
	pipe     *interact.Pipeline
	entities *entity.Manager
	logger   *zap.Logger
}

// NewInteractHandlers creates a new InteractHandlers.
func NewInteractHandlers(pipe *interact.Pipeline, entities *entity.Manager, logger *zap.Logger) *InteractHandlers {
	return &InteractHandlers{pipe: pipe, entities: entities, logger: logger}
}

// RegisterHandlers registers interaction handlers on the Router.
func (ih *InteractHandlers) RegisterHandlers(r *Router) {
	r.On("purchase_item", ih.HandlePurchaseItem)
	r.On("purchase_ability", ih.HandlePurchaseAbility)
	r.On("purchase_ability_event", ih.HandlePurchaseAbilityEvent)
	r.On("craft_ability", ih.HandleCraftAbility)
	r.On("bind", ih.HandleBind)
	r.On("pickup_item", ih.HandlePickupItem)
}

// live resolves the session's in-world entity.
func (ih *InteractHandlers) live(s *player.Session) *entity.Entity {
	if s.CharID == 0 {
		sendError(s, "not in world")
		return nil
	}
	ent := ih.entities.Get(s.CharID)
	if ent == nil {
		sendError(s, "not in world")
	}
	return ent
}

// report sends the outcome back to the client. Success results were already
// pushed by the pipeline; only economic rejections need an explicit reply.
// Tampering stays silent on purpose, and a session that disconnected mid
// request has nobody left to tell.
func report(s *player.Session, err error) error {
	if err == nil || interact.IsTampering(err) || errors.Is(err, interact.ErrSessionClosed) {
		return nil
	}
	sendError(s, err.Error())
	return nil
}

func (ih *InteractHandlers) HandlePurchaseItem(ctx context.Context, s *player.Session, raw json.RawMessage) error {
	ent := ih.live(s)
	if ent == nil {
		return nil
	}
	var req interact.PurchaseRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return err
	}
	_, err := ih.pipe.PurchaseItem(ctx, ent, req)
	return report(s, err)
}

func (ih *InteractHandlers) HandlePurchaseAbility(ctx context.Context, s *player.Session, raw json.RawMessage) error {
	ent := ih.live(s)
	if ent == nil {
		return nil
	}
	var req interact.PurchaseRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return err
	}
	_, err := ih.pipe.PurchaseAbility(ctx, ent, req)
	return report(s, err)
}

func (ih *InteractHandlers) HandlePurchaseAbilityEvent(ctx context.Context, s *player.Session, raw json.RawMessage) error {
	ent := ih.live(s)
	if ent == nil {
		return nil
	}
	var req interact.PurchaseRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return err
	}
	_, err := ih.pipe.PurchaseAbilityEvent(ctx, ent, req)
	return report(s, err)
}

func (ih *InteractHandlers) HandleCraftAbility(ctx context.Context, s *player.Session, raw json.RawMessage) error {
	ent := ih.live(s)
	if ent == nil {
		return nil
	}
	var req interact.CraftRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return err
	}
	_, err := ih.pipe.CraftAbility(ctx, ent, req)
	return report(s, err)
}

func (ih *InteractHandlers) HandleBind(ctx context.Context, s *player.Session, raw json.RawMessage) error {
	ent := ih.live(s)
	if ent == nil {
		return nil
	}
	var req interact.BindRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return err
	}
	_, err := ih.pipe.Bind(ctx, ent, req)
	return report(s, err)
}

func (ih *InteractHandlers) HandlePickupItem(ctx context.Context, s *player.Session, raw json.RawMessage) error {
	ent := ih.live(s)
	if ent == nil {
		return nil
	}
	var req interact.PickupRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return err
	}
	_, err := ih.pipe.PickupItem(ctx, ent, req)
	return report(s, err)
}
