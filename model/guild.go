package model

import "time"

// GuildRank represents a member's rank within the guild.
type GuildRank = int

const (
	GuildRankLeader  GuildRank = 1
	GuildRankOfficer GuildRank = 2
	GuildRankMember  GuildRank = 3
)

// Guild represents a player guild.
type Guild struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:32;not null" json:"name"`
	Notice    string    `gorm:"type:text" json:"notice"`
	LeaderID  int64     `gorm:"not null" json:"leader_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// GuildMember links a character to a guild with a rank.
type GuildMember struct {
	GuildID  int64     `gorm:"primaryKey;index:idx_guild_member" json:"guild_id"`
	CharID   int64     `gorm:"primaryKey;index:idx_char_guild_member" json:"char_id"`
	Rank     int       `gorm:"default:3" json:"rank"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}
