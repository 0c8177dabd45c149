package model

import "time"

// PartyRank represents a member's rank within the party.
type PartyRank = int

const (
	PartyRankLeader PartyRank = 1
	PartyRankMember PartyRank = 2
)

// Party represents an adventuring party. Parties are persisted so that
// members hosted on different shards observe the same composition.
type Party struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	LeaderID  int64     `gorm:"not null" json:"leader_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// PartyMember links a character to a party with a rank.
type PartyMember struct {
	PartyID  int64     `gorm:"primaryKey;index:idx_party_member" json:"party_id"`
	CharID   int64     `gorm:"primaryKey;index:idx_char_party_member" json:"char_id"`
	Rank     int       `gorm:"default:2" json:"rank"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}
