package model

import "time"

// GuildUpdate is one append-only change signal for a guild. Rows are written
// whenever a guild's membership or ranks change and are never updated; other
// shards page through them by (CreatedAt, ID) cursor. The row carries no
// membership payload on purpose: consumers re-read authoritative guild state.
type GuildUpdate struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID   int64     `gorm:"index:idx_guild_update;not null" json:"guild_id"`
	CreatedAt time.Time `gorm:"index:idx_guild_update_time;autoCreateTime" json:"created_at"`
}

// PartyUpdate is the party-domain counterpart of GuildUpdate.
type PartyUpdate struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PartyID   int64     `gorm:"index:idx_party_update;not null" json:"party_id"`
	CreatedAt time.Time `gorm:"index:idx_party_update_time;autoCreateTime" json:"created_at"`
}
