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

func newGuildService(t *testing.T) (*GuildService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	return NewGuildService(db, updatelog.NewGuildLog(db, logger), NewRoster(), logger), db
}

func seedCharacter(t *testing.T, db *gorm.DB, id int64, name string) {
	t.Helper()
	require.NoError(t, db.Create(&model.Character{ID: id, AccountID: id, Name: name, SceneName: "town"}).Error)
}

func TestGuildCreateJoinLeave(t *testing.T) {
	svc, db := newGuildService(t)
	ctx := context.Background()
	seedCharacter(t, db, 1, "ayla")
	seedCharacter(t, db, 2, "brom")

	guild, err := svc.Create(ctx, "Dawnward", 1)
	require.NoError(t, err)
	require.NoError(t, svc.Join(ctx, guild.ID, 2))

	members, err := svc.Members(ctx, guild.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, model.GuildRankLeader, members[0].Rank)

	// mutation on the owning shard refreshes its roster without a poller
	cached, ok := svc.Roster().Get(guild.ID)
	require.True(t, ok)
	assert.Len(t, cached, 2)

	// each mutation left a change signal behind
	entries, err := updatelog.NewGuildLog(db, zap.NewNop()).Fetch(ctx, updatelog.Cursor{}, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, guild.ID, e.GroupID)
	}

	require.NoError(t, svc.Leave(ctx, guild.ID, 2))
	members, err = svc.Members(ctx, guild.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	var ch model.Character
	require.NoError(t, db.First(&ch, 2).Error)
	assert.Nil(t, ch.GuildID)
}

func TestGuildCreate_AlreadyInGuild(t *testing.T) {
	svc, db := newGuildService(t)
	ctx := context.Background()
	seedCharacter(t, db, 1, "ayla")

	_, err := svc.Create(ctx, "Dawnward", 1)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "Second", 1)
	assert.ErrorIs(t, err, ErrAlreadyInGuild)
}

func TestGuildCreate_NameTaken(t *testing.T) {
	svc, db := newGuildService(t)
	ctx := context.Background()
	seedCharacter(t, db, 1, "ayla")
	seedCharacter(t, db, 2, "brom")

	_, err := svc.Create(ctx, "Dawnward", 1)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "Dawnward", 2)
	assert.ErrorIs(t, err, ErrGuildNameTaken)
}

func TestGuildLeaderCannotLeaveWithMembers(t *testing.T) {
	svc, db := newGuildService(t)
	ctx := context.Background()
	seedCharacter(t, db, 1, "ayla")
	seedCharacter(t, db, 2, "brom")

	guild, err := svc.Create(ctx, "Dawnward", 1)
	require.NoError(t, err)
	require.NoError(t, svc.Join(ctx, guild.ID, 2))

	err = svc.Leave(ctx, guild.ID, 1)
	assert.ErrorIs(t, err, ErrLeaderMustPass)

	require.NoError(t, svc.TransferLeadership(ctx, guild.ID, 1, 2))
	require.NoError(t, svc.Leave(ctx, guild.ID, 1))
}

func TestGuildSoleLeaderLeaveDisbands(t *testing.T) {
	svc, db := newGuildService(t)
	ctx := context.Background()
	seedCharacter(t, db, 1, "ayla")

	guild, err := svc.Create(ctx, "Dawnward", 1)
	require.NoError(t, err)
	require.NoError(t, svc.Leave(ctx, guild.ID, 1))

	err = db.First(&model.Guild{}, guild.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, ok := svc.Roster().Get(guild.ID)
	assert.False(t, ok)
}

func TestGuildKickRequiresHigherRank(t *testing.T) {
	svc, db := newGuildService(t)
	ctx := context.Background()
	seedCharacter(t, db, 1, "ayla")
	seedCharacter(t, db, 2, "brom")
	seedCharacter(t, db, 3, "cira")

	guild, err := svc.Create(ctx, "Dawnward", 1)
	require.NoError(t, err)
	require.NoError(t, svc.Join(ctx, guild.ID, 2))
	require.NoError(t, svc.Join(ctx, guild.ID, 3))

	// same rank cannot kick
	err = svc.Kick(ctx, guild.ID, 2, 3)
	assert.ErrorIs(t, err, ErrNotGuildLeader)
	// nobody kicks the leader
	err = svc.Kick(ctx, guild.ID, 2, 1)
	assert.ErrorIs(t, err, ErrNotGuildLeader)

	require.NoError(t, svc.SetRank(ctx, guild.ID, 1, 2, model.GuildRankOfficer))
	require.NoError(t, svc.Kick(ctx, guild.ID, 2, 3))

	members, err := svc.Members(ctx, guild.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestGuildDisbandClearsSignalsAndRoster(t *testing.T) {
	svc, db := newGuildService(t)
	ctx := context.Background()
	seedCharacter(t, db, 1, "ayla")
	seedCharacter(t, db, 2, "brom")

	guild, err := svc.Create(ctx, "Dawnward", 1)
	require.NoError(t, err)
	require.NoError(t, svc.Join(ctx, guild.ID, 2))
	require.NoError(t, svc.Disband(ctx, guild.ID, 1))

	// exactly one trailing signal survives so remote shards re-read and evict
	entries, err := updatelog.NewGuildLog(db, zap.NewNop()).Fetch(ctx, updatelog.Cursor{}, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, ok := svc.Roster().Get(guild.ID)
	assert.False(t, ok)

	var ch model.Character
	require.NoError(t, db.First(&ch, 2).Error)
	assert.Nil(t, ch.GuildID)
}
