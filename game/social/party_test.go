package social

import (
	"context"
	"testing"

	"github.com/hiyorin/shardrealm/server/model"
	"github.com/hiyorin/shardrealm/server/testutil"
	"github.com/hiyorin/shardrealm/server/updatelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newPartyService(t *testing.T) (*PartyService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	return NewPartyService(db, updatelog.NewPartyLog(db, logger), NewRoster(), logger), db
}

func TestPartyCreateJoinKick(t *testing.T) {
	svc, db := newPartyService(t)
	ctx := context.Background()
	seedCharacter(t, db, 1, "ayla")
	seedCharacter(t, db, 2, "brom")

	party, err := svc.Create(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Join(ctx, party.ID, 2))

	members, err := svc.Members(ctx, party.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	// member cannot kick
	err = svc.Kick(ctx, party.ID, 2, 1)
	assert.ErrorIs(t, err, ErrNotPartyLeader)

	require.NoError(t, svc.Kick(ctx, party.ID, 1, 2))
	members, err = svc.Members(ctx, party.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	var ch model.Character
	require.NoError(t, db.First(&ch, 2).Error)
	assert.Nil(t, ch.PartyID)
}

func TestPartySizeCap(t *testing.T) {
	svc, db := newPartyService(t)
	ctx := context.Background()
	for i := int64(1); i <= MaxPartySize+1; i++ {
		seedCharacter(t, db, i, string(rune('a'+i)))
	}

	party, err := svc.Create(ctx, 1)
	require.NoError(t, err)
	for i := int64(2); i <= MaxPartySize; i++ {
		require.NoError(t, svc.Join(ctx, party.ID, i))
	}
	err = svc.Join(ctx, party.ID, MaxPartySize+1)
	assert.ErrorIs(t, err, ErrPartyFull)
}

func TestPartyLeaderLeavePassesLeadership(t *testing.T) {
	svc, db := newPartyService(t)
	ctx := context.Background()
	seedCharacter(t, db, 1, "ayla")
	seedCharacter(t, db, 2, "brom")
	seedCharacter(t, db, 3, "cira")

	party, err := svc.Create(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Join(ctx, party.ID, 2))
	require.NoError(t, svc.Join(ctx, party.ID, 3))

	require.NoError(t, svc.Leave(ctx, party.ID, 1))

	var p model.Party
	require.NoError(t, db.First(&p, party.ID).Error)
	assert.Equal(t, int64(2), p.LeaderID)

	members, err := svc.Members(ctx, party.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, model.PartyRankLeader, members[0].Rank)
}

func TestPartyLastMemberLeaveDissolves(t *testing.T) {
	svc, db := newPartyService(t)
	ctx := context.Background()
	seedCharacter(t, db, 1, "ayla")

	party, err := svc.Create(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Leave(ctx, party.ID, 1))

	err = db.First(&model.Party{}, party.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, ok := svc.Roster().Get(party.ID)
	assert.False(t, ok)

	// one trailing dissolve signal
	entries, err := updatelog.NewPartyLog(db, zap.NewNop()).Fetch(ctx, updatelog.Cursor{}, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPartyJoinTwice(t *testing.T) {
	svc, db := newPartyService(t)
	ctx := context.Background()
	seedCharacter(t, db, 1, "ayla")
	seedCharacter(t, db, 2, "brom")

	p1, err := svc.Create(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Join(ctx, p1.ID, 2))
	err = svc.Join(ctx, p1.ID, 2)
	assert.ErrorIs(t, err, ErrAlreadyInParty)
}
