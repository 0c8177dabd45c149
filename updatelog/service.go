// Package updatelog implements the append-only change-signal streams used
// for cross-shard propagation of guild and party state. Shards never talk to
// each other directly: a shard that mutates a group appends one row here,
// and every other shard discovers the change by cursor-paging the stream and
// re-reading the group from the ledger store.
package updatelog

import (
	"context"
	"fmt"
	"time"

	"github.com/hiyorin/shardrealm/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Kind selects which of the two symmetric streams a Service operates on.
type Kind string

const (
	KindGuild Kind = "guild"
	KindParty Kind = "party"
)

// Entry is one immutable change signal. It carries no membership payload;
// consumers re-read authoritative group state keyed by GroupID.
type Entry struct {
	ID        int64
	GroupID   int64
	Timestamp time.Time
}

// Cursor marks the last-applied log position for a consumer. Entries are
// totally ordered by (Timestamp, ID); ID breaks ties when the store's
// timestamp resolution is coarser than the append rate.
type Cursor struct {
	Timestamp time.Time
	ID        int64
}

// After reports whether e sorts strictly after c in (Timestamp, ID) order.
func (e Entry) After(c Cursor) bool {
	if e.Timestamp.After(c.Timestamp) {
		return true
	}
	return e.Timestamp.Equal(c.Timestamp) && e.ID > c.ID
}

// Service is one update-log stream (guild or party) over the ledger store.
type Service struct {
	db     *gorm.DB
	kind   Kind
	logger *zap.Logger
}

// NewGuildLog creates the guild-domain stream.
func NewGuildLog(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, kind: KindGuild, logger: logger}
}

// NewPartyLog creates the party-domain stream.
func NewPartyLog(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, kind: KindParty, logger: logger}
}

// Kind returns which stream this service operates on.
func (s *Service) Kind() Kind { return s.kind }

// Append inserts one change signal for groupID at the store's current time.
// Best effort: a failure is logged and swallowed so that the membership
// change that triggered it still commits; propagation is merely delayed
// until the next successful append for that group.
func (s *Service) Append(ctx context.Context, groupID int64) {
	var err error
	switch s.kind {
	case KindGuild:
		err = s.db.WithContext(ctx).Create(&model.GuildUpdate{GuildID: groupID}).Error
	case KindParty:
		err = s.db.WithContext(ctx).Create(&model.PartyUpdate{PartyID: groupID}).Error
	}
	if err != nil {
		s.logger.Warn("update log append failed",
			zap.String("kind", string(s.kind)),
			zap.Int64("group_id", groupID),
			zap.Error(err))
	}
}

// Fetch returns up to maxCount entries strictly after the cursor, ascending
// by (Timestamp, ID). Callers page by re-invoking with the last returned
// entry's position.
func (s *Service) Fetch(ctx context.Context, cursor Cursor, maxCount int) ([]Entry, error) {
	cond := "created_at > ? OR (created_at = ? AND id > ?)"
	args := []interface{}{cursor.Timestamp, cursor.Timestamp, cursor.ID}

	switch s.kind {
	case KindGuild:
		var rows []model.GuildUpdate
		err := s.db.WithContext(ctx).
			Where(cond, args...).
			Order("created_at ASC, id ASC").
			Limit(maxCount).
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("updatelog: fetch guild: %w", err)
		}
		entries := make([]Entry, 0, len(rows))
		for _, r := range rows {
			entries = append(entries, Entry{ID: r.ID, GroupID: r.GuildID, Timestamp: r.CreatedAt})
		}
		return entries, nil
	case KindParty:
		var rows []model.PartyUpdate
		err := s.db.WithContext(ctx).
			Where(cond, args...).
			Order("created_at ASC, id ASC").
			Limit(maxCount).
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("updatelog: fetch party: %w", err)
		}
		entries := make([]Entry, 0, len(rows))
		for _, r := range rows {
			entries = append(entries, Entry{ID: r.ID, GroupID: r.PartyID, Timestamp: r.CreatedAt})
		}
		return entries, nil
	}
	return nil, fmt.Errorf("updatelog: unknown kind %q", s.kind)
}

// DeleteAll removes every entry for groupID. Best-effort cleanup on group
// dissolution: consumers are cursor-forward and drop signals for groups that
// no longer resolve, so leftover rows are harmless.
func (s *Service) DeleteAll(ctx context.Context, groupID int64) {
	var err error
	switch s.kind {
	case KindGuild:
		err = s.db.WithContext(ctx).Where("guild_id = ?", groupID).Delete(&model.GuildUpdate{}).Error
	case KindParty:
		err = s.db.WithContext(ctx).Where("party_id = ?", groupID).Delete(&model.PartyUpdate{}).Error
	}
	if err != nil {
		s.logger.Warn("update log cleanup failed",
			zap.String("kind", string(s.kind)),
			zap.Int64("group_id", groupID),
			zap.Error(err))
	}
}
