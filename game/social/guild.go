package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/hiyorin/shardrealm/server/model"
	"github.com/hiyorin/shardrealm/server/updatelog"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrGuildNotFound  = errors.New("guild not found")
	ErrGuildNameTaken = errors.New("guild name already taken")
	ErrAlreadyInGuild = errors.New("character already in a guild")
	ErrNotGuildMember = errors.New("character is not a guild member")
	ErrNotGuildLeader = errors.New("only the guild leader may do that")
	ErrLeaderMustPass = errors.New("leader must transfer leadership before leaving")
)

// GuildService owns guild membership. Every mutation commits to the ledger
// store first, then appends a change signal so other shards refresh, then
// refreshes this shard's roster directly (the owning shard never waits for
// its own poller).
type GuildService struct {
	db     *gorm.DB
	log    *updatelog.Service
	roster *Roster
	logger *zap.Logger
}

// NewGuildService creates a GuildService over the given ledger store.
func NewGuildService(db *gorm.DB, log *updatelog.Service, roster *Roster, logger *zap.Logger) *GuildService {
	return &GuildService{db: db, log: log, roster: roster, logger: logger}
}

// Roster exposes the shard-local roster cache for this domain.
func (s *GuildService) Roster() *Roster { return s.roster }

// Create founds a new guild with leaderID as its sole leader-ranked member.
func (s *GuildService) Create(ctx context.Context, name string, leaderID int64) (*model.Guild, error) {
	guild := &model.Guild{Name: name, LeaderID: leaderID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.GuildMember{}).Where("char_id = ?", leaderID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyInGuild
		}
		if err := tx.Model(&model.Guild{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrGuildNameTaken
		}
		if err := tx.Create(guild).Error; err != nil {
			return err
		}
		member := &model.GuildMember{GuildID: guild.ID, CharID: leaderID, Rank: model.GuildRankLeader}
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		return tx.Model(&model.Character{}).Where("id = ?", leaderID).
			Update("guild_id", guild.ID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("social: create guild: %w", err)
	}
	s.afterChange(ctx, guild.ID)
	return guild, nil
}

// Join adds charID to guildID at the default member rank.
func (s *GuildService) Join(ctx context.Context, guildID, charID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model.Guild{}, guildID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGuildNotFound
			}
			return err
		}
		var count int64
		if err := tx.Model(&model.GuildMember{}).Where("char_id = ?", charID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyInGuild
		}
		member := &model.GuildMember{GuildID: guildID, CharID: charID, Rank: model.GuildRankMember}
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		return tx.Model(&model.Character{}).Where("id = ?", charID).
			Update("guild_id", guildID).Error
	})
	if err != nil {
		return fmt.Errorf("social: join guild: %w", err)
	}
	s.afterChange(ctx, guildID)
	return nil
}

// Leave removes charID from guildID. The leader cannot leave while other
// members remain; a sole leader leaving disbands the guild.
func (s *GuildService) Leave(ctx context.Context, guildID, charID int64) error {
	disbanded := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member model.GuildMember
		err := tx.Where("guild_id = ? AND char_id = ?", guildID, charID).First(&member).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotGuildMember
			}
			return err
		}
		if member.Rank == model.GuildRankLeader {
			var count int64
			if err := tx.Model(&model.GuildMember{}).Where("guild_id = ?", guildID).Count(&count).Error; err != nil {
				return err
			}
			if count > 1 {
				return ErrLeaderMustPass
			}
			disbanded = true
			if err := tx.Delete(&model.Guild{}, guildID).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("guild_id = ? AND char_id = ?", guildID, charID).
			Delete(&model.GuildMember{}).Error; err != nil {
			return err
		}
		return tx.Model(&model.Character{}).Where("id = ?", charID).
			Update("guild_id", nil).Error
	})
	if err != nil {
		return fmt.Errorf("social: leave guild: %w", err)
	}
	if disbanded {
		s.afterDisband(ctx, guildID)
		return nil
	}
	s.afterChange(ctx, guildID)
	return nil
}

// Kick removes targetID from guildID on behalf of actorID. The actor must
// outrank the target; the leader cannot be kicked.
func (s *GuildService) Kick(ctx context.Context, guildID, actorID, targetID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, target, err := s.loadPair(tx, guildID, actorID, targetID)
		if err != nil {
			return err
		}
		if target.Rank == model.GuildRankLeader || actor.Rank >= target.Rank {
			return ErrNotGuildLeader
		}
		if err := tx.Where("guild_id = ? AND char_id = ?", guildID, targetID).
			Delete(&model.GuildMember{}).Error; err != nil {
			return err
		}
		return tx.Model(&model.Character{}).Where("id = ?", targetID).
			Update("guild_id", nil).Error
	})
	if err != nil {
		return fmt.Errorf("social: kick from guild: %w", err)
	}
	s.afterChange(ctx, guildID)
	return nil
}

// SetRank changes targetID's rank within guildID on behalf of actorID.
// Only the leader may change ranks, and the leader rank is not assignable
// this way (use TransferLeadership).
func (s *GuildService) SetRank(ctx context.Context, guildID, actorID, targetID int64, rank model.GuildRank) error {
	if rank != model.GuildRankOfficer && rank != model.GuildRankMember {
		return ErrNotGuildLeader
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, target, err := s.loadPair(tx, guildID, actorID, targetID)
		if err != nil {
			return err
		}
		if actor.Rank != model.GuildRankLeader || target.Rank == model.GuildRankLeader {
			return ErrNotGuildLeader
		}
		return tx.Model(&model.GuildMember{}).
			Where("guild_id = ? AND char_id = ?", guildID, targetID).
			Update("rank", rank).Error
	})
	if err != nil {
		return fmt.Errorf("social: set guild rank: %w", err)
	}
	s.afterChange(ctx, guildID)
	return nil
}

// TransferLeadership hands the leader rank from actorID to targetID.
func (s *GuildService) TransferLeadership(ctx context.Context, guildID, actorID, targetID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, _, err := s.loadPair(tx, guildID, actorID, targetID)
		if err != nil {
			return err
		}
		if actor.Rank != model.GuildRankLeader {
			return ErrNotGuildLeader
		}
		if err := tx.Model(&model.GuildMember{}).
			Where("guild_id = ? AND char_id = ?", guildID, actorID).
			Update("rank", model.GuildRankOfficer).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.GuildMember{}).
			Where("guild_id = ? AND char_id = ?", guildID, targetID).
			Update("rank", model.GuildRankLeader).Error; err != nil {
			return err
		}
		return tx.Model(&model.Guild{}).Where("id = ?", guildID).
			Update("leader_id", targetID).Error
	})
	if err != nil {
		return fmt.Errorf("social: transfer guild leadership: %w", err)
	}
	s.afterChange(ctx, guildID)
	return nil
}

// Disband deletes guildID and all its memberships on behalf of actorID.
func (s *GuildService) Disband(ctx context.Context, guildID, actorID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var actor model.GuildMember
		err := tx.Where("guild_id = ? AND char_id = ?", guildID, actorID).First(&actor).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotGuildMember
			}
			return err
		}
		if actor.Rank != model.GuildRankLeader {
			return ErrNotGuildLeader
		}
		if err := tx.Model(&model.Character{}).Where("guild_id = ?", guildID).
			Update("guild_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("guild_id = ?", guildID).Delete(&model.GuildMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Guild{}, guildID).Error
	})
	if err != nil {
		return fmt.Errorf("social: disband guild: %w", err)
	}
	s.afterDisband(ctx, guildID)
	return nil
}

// Members re-reads the authoritative composition of guildID from the ledger
// store. An empty result means the guild no longer exists.
func (s *GuildService) Members(ctx context.Context, guildID int64) ([]Member, error) {
	var rows []model.GuildMember
	err := s.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("rank ASC, char_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("social: load guild members: %w", err)
	}
	members := make([]Member, 0, len(rows))
	for _, r := range rows {
		members = append(members, Member{CharID: r.CharID, Rank: r.Rank})
	}
	return members, nil
}

// Reload refreshes the local roster for guildID from the ledger store.
// Groups that no longer resolve are evicted. Called by the sync poller when
// a change signal arrives, and by mutations on the owning shard.
func (s *GuildService) Reload(ctx context.Context, guildID int64) error {
	members, err := s.Members(ctx, guildID)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		s.roster.Evict(guildID)
		return nil
	}
	s.roster.Set(guildID, members)
	return nil
}

func (s *GuildService) loadPair(tx *gorm.DB, guildID, actorID, targetID int64) (actor, target model.GuildMember, err error) {
	if err = tx.Where("guild_id = ? AND char_id = ?", guildID, actorID).First(&actor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = ErrNotGuildMember
		}
		return
	}
	if err = tx.Where("guild_id = ? AND char_id = ?", guildID, targetID).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = ErrNotGuildMember
		}
	}
	return
}

func (s *GuildService) afterChange(ctx context.Context, guildID int64) {
	s.log.Append(ctx, guildID)
	if err := s.Reload(ctx, guildID); err != nil {
		s.logger.Warn("guild roster refresh failed", zap.Int64("guild_id", guildID), zap.Error(err))
	}
}

// afterDisband clears the group's accumulated signals, then appends one last
// entry so remote shards re-read the (now empty) group and evict it.
func (s *GuildService) afterDisband(ctx context.Context, guildID int64) {
	s.log.DeleteAll(ctx, guildID)
	s.log.Append(ctx, guildID)
	s.roster.Evict(guildID)
}
