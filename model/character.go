package model

import "time"

// Character represents a player's in-game character. Each character is owned
// by exactly one shard at a time (ShardID of the process that loaded it).
// SceneName and SceneHandle locate the character's scene instance; handles
// disambiguate concurrent instances of the same scene.
type Character struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID   int64     `gorm:"index:idx_char_account;not null" json:"account_id"`
	Name        string    `gorm:"uniqueIndex;size:32;not null" json:"name"`
	RaceID      int       `gorm:"not null" json:"race_id"`
	ShardID     string    `gorm:"size:64" json:"shard_id"`
	SceneName   string    `gorm:"size:64" json:"scene_name"`
	SceneHandle int       `gorm:"default:1" json:"scene_handle"`
	X           float64   `gorm:"default:0" json:"x"`
	Y           float64   `gorm:"default:0" json:"y"`
	Z           float64   `gorm:"default:0" json:"z"`
	Gold        int64     `gorm:"default:0" json:"gold"`
	BindScene   string    `gorm:"size:64" json:"bind_scene"`
	BindX       float64   `gorm:"default:0" json:"bind_x"`
	BindY       float64   `gorm:"default:0" json:"bind_y"`
	BindZ       float64   `gorm:"default:0" json:"bind_z"`
	GuildID     *int64    `gorm:"index:idx_char_guild" json:"guild_id"`
	PartyID     *int64    `json:"party_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
