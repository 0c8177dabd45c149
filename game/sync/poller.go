// Package sync pulls change signals from an update-log stream and refreshes
// the shard-local rosters. One Poller runs per stream per shard; it is the
// only cross-shard coupling in the system.
package sync

import (
	"context"
	"sync/atomic"

	"github.com/hiyorin/shardrealm/server/updatelog"
	"go.uber.org/zap"
)

// Applier refreshes local state for one group from the authoritative store.
// social.GuildService and social.PartyService both satisfy it.
type Applier interface {
	Reload(ctx context.Context, groupID int64) error
}

// Poller cursor-pages one update-log stream and applies each page. Applying
// is a re-read of authoritative state, so replaying a page is harmless; the
// cursor only advances once a whole page applied cleanly, which gives
// at-least-once delivery with idempotent application.
type Poller struct {
	log      *updatelog.Service
	applier  Applier
	pageSize int
	logger   *zap.Logger

	running atomic.Bool
	cursor  atomic.Pointer[updatelog.Cursor]
}

// NewPoller creates a Poller over the given stream. A zero cursor starts
// from the beginning of the stream.
func NewPoller(log *updatelog.Service, applier Applier, pageSize int, logger *zap.Logger) *Poller {
	p := &Poller{log: log, applier: applier, pageSize: pageSize, logger: logger}
	p.cursor.Store(&updatelog.Cursor{})
	return p
}

// Cursor returns the last fully-applied position.
func (p *Poller) Cursor() updatelog.Cursor { return *p.cursor.Load() }

// SetCursor positions the poller, e.g. to resume from persisted state.
func (p *Poller) SetCursor(c updatelog.Cursor) { p.cursor.Store(&c) }

// RunOnce drains the stream from the current cursor. It is safe to call
// from a fixed-interval ticker: overlapping invocations are skipped rather
// than stacked, and any error leaves the cursor where it was so the same
// page is retried on the next tick.
func (p *Poller) RunOnce(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return nil
	}
	defer p.running.Store(false)

	for {
		cursor := *p.cursor.Load()
		entries, err := p.log.Fetch(ctx, cursor, p.pageSize)
		if err != nil {
			p.logger.Warn("update log fetch failed",
				zap.String("kind", string(p.log.Kind())), zap.Error(err))
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		// one reload per group per page, not per signal
		applied := make(map[int64]struct{}, len(entries))
		for _, e := range entries {
			if _, ok := applied[e.GroupID]; ok {
				continue
			}
			if err := p.applier.Reload(ctx, e.GroupID); err != nil {
				p.logger.Warn("group reload failed",
					zap.String("kind", string(p.log.Kind())),
					zap.Int64("group_id", e.GroupID),
					zap.Error(err))
				return err
			}
			applied[e.GroupID] = struct{}{}
		}

		last := entries[len(entries)-1]
		p.cursor.Store(&updatelog.Cursor{Timestamp: last.Timestamp, ID: last.ID})

		if len(entries) < p.pageSize {
			return nil
		}
	}
}
