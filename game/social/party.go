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
	ErrPartyNotFound  = errors.New("party not found")
	ErrAlreadyInParty = errors.New("character already in a party")
	ErrNotPartyMember = errors.New("character is not a party member")
	ErrNotPartyLeader = errors.New("only the party leader may do that")
	ErrPartyFull      = errors.New("party is full")
)

// MaxPartySize caps party membership.
const MaxPartySize = 6

// PartyService owns party membership. Mutations follow the same commit,
// signal, local-refresh sequence as GuildService.
type PartyService struct {
	db     *gorm.DB
	log    *updatelog.Service
	roster *Roster
	logger *zap.Logger
}

// NewPartyService creates a PartyService over the given ledger store.
func NewPartyService(db *gorm.DB, log *updatelog.Service, roster *Roster, logger *zap.Logger) *PartyService {
	return &PartyService{db: db, log: log, roster: roster, logger: logger}
}

// Roster exposes the shard-local roster cache for this domain.
func (s *PartyService) Roster() *Roster { return s.roster }

// Create forms a new party led by leaderID.
func (s *PartyService) Create(ctx context.Context, leaderID int64) (*model.Party, error) {
	party := &model.Party{LeaderID: leaderID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.PartyMember{}).Where("char_id = ?", leaderID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyInParty
		}
		if err := tx.Create(party).Error; err != nil {
			return err
		}
		member := &model.PartyMember{PartyID: party.ID, CharID: leaderID, Rank: model.PartyRankLeader}
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		return tx.Model(&model.Character{}).Where("id = ?", leaderID).
			Update("party_id", party.ID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("social: create party: %w", err)
	}
	s.afterChange(ctx, party.ID)
	return party, nil
}

// Join adds charID to partyID, subject to the size cap.
func (s *PartyService) Join(ctx context.Context, partyID, charID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model.Party{}, partyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPartyNotFound
			}
			return err
		}
		var count int64
		if err := tx.Model(&model.PartyMember{}).Where("char_id = ?", charID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyInParty
		}
		if err := tx.Model(&model.PartyMember{}).Where("party_id = ?", partyID).Count(&count).Error; err != nil {
			return err
		}
		if count >= MaxPartySize {
			return ErrPartyFull
		}
		member := &model.PartyMember{PartyID: partyID, CharID: charID, Rank: model.PartyRankMember}
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		return tx.Model(&model.Character{}).Where("id = ?", charID).
			Update("party_id", partyID).Error
	})
	if err != nil {
		return fmt.Errorf("social: join party: %w", err)
	}
	s.afterChange(ctx, partyID)
	return nil
}

// Leave removes charID from partyID. A departing leader passes leadership to
// the longest-standing remaining member; the last member out dissolves the
// party.
func (s *PartyService) Leave(ctx context.Context, partyID, charID int64) error {
	dissolved := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member model.PartyMember
		err := tx.Where("party_id = ? AND char_id = ?", partyID, charID).First(&member).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotPartyMember
			}
			return err
		}
		if err := tx.Where("party_id = ? AND char_id = ?", partyID, charID).
			Delete(&model.PartyMember{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Character{}).Where("id = ?", charID).
			Update("party_id", nil).Error; err != nil {
			return err
		}
		if member.Rank != model.PartyRankLeader {
			return nil
		}
		var next model.PartyMember
		err = tx.Where("party_id = ?", partyID).
			Order("joined_at ASC, char_id ASC").
			First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			dissolved = true
			return tx.Delete(&model.Party{}, partyID).Error
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&model.PartyMember{}).
			Where("party_id = ? AND char_id = ?", partyID, next.CharID).
			Update("rank", model.PartyRankLeader).Error; err != nil {
			return err
		}
		return tx.Model(&model.Party{}).Where("id = ?", partyID).
			Update("leader_id", next.CharID).Error
	})
	if err != nil {
		return fmt.Errorf("social: leave party: %w", err)
	}
	if dissolved {
		s.afterDissolve(ctx, partyID)
		return nil
	}
	s.afterChange(ctx, partyID)
	return nil
}

// Kick removes targetID from partyID on behalf of actorID.
func (s *PartyService) Kick(ctx context.Context, partyID, actorID, targetID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var actor model.PartyMember
		err := tx.Where("party_id = ? AND char_id = ?", partyID, actorID).First(&actor).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotPartyMember
			}
			return err
		}
		if actor.Rank != model.PartyRankLeader || actorID == targetID {
			return ErrNotPartyLeader
		}
		res := tx.Where("party_id = ? AND char_id = ?", partyID, targetID).
			Delete(&model.PartyMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotPartyMember
		}
		return tx.Model(&model.Character{}).Where("id = ?", targetID).
			Update("party_id", nil).Error
	})
	if err != nil {
		return fmt.Errorf("social: kick from party: %w", err)
	}
	s.afterChange(ctx, partyID)
	return nil
}

// Members re-reads the authoritative composition of partyID from the ledger
// store. An empty result means the party no longer exists.
func (s *PartyService) Members(ctx context.Context, partyID int64) ([]Member, error) {
	var rows []model.PartyMember
	err := s.db.WithContext(ctx).
		Where("party_id = ?", partyID).
		Order("rank ASC, char_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("social: load party members: %w", err)
	}
	members := make([]Member, 0, len(rows))
	for _, r := range rows {
		members = append(members, Member{CharID: r.CharID, Rank: r.Rank})
	}
	return members, nil
}

// Reload refreshes the local roster for partyID from the ledger store,
// evicting parties that no longer resolve.
func (s *PartyService) Reload(ctx context.Context, partyID int64) error {
	members, err := s.Members(ctx, partyID)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		s.roster.Evict(partyID)
		return nil
	}
	s.roster.Set(partyID, members)
	return nil
}

func (s *PartyService) afterChange(ctx context.Context, partyID int64) {
	s.log.Append(ctx, partyID)
	if err := s.Reload(ctx, partyID); err != nil {
		s.logger.Warn("party roster refresh failed", zap.Int64("party_id", partyID), zap.Error(err))
	}
}

func (s *PartyService) afterDissolve(ctx context.Context, partyID int64) {
	s.log.DeleteAll(ctx, partyID)
	s.log.Append(ctx, partyID)
	s.roster.Evict(partyID)
}
