package updatelog

import (
	"context"
	"testing"
	"time"

	"github.com/hiyorin/shardrealm/server/model"
	"github.com/hiyorin/shardrealm/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAppendFetch_RoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewGuildLog(db, zap.NewNop())
	ctx := context.Background()

	svc.Append(ctx, 11)
	svc.Append(ctx, 22)
	svc.Append(ctx, 11)

	entries, err := svc.Fetch(ctx, Cursor{}, 100)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []int64{11, 22, 11}, []int64{entries[0].GroupID, entries[1].GroupID, entries[2].GroupID})
}

func TestFetch_PagingIsExactlyOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewPartyLog(db, zap.NewNop())
	ctx := context.Background()

	const total = 10
	for i := 0; i < total; i++ {
		svc.Append(ctx, int64(i+1))
	}

	// Page through with a small page size; each entry must appear exactly
	// once, in strictly ascending (Timestamp, ID) order.
	var (
		cursor Cursor
		got    []Entry
	)
	for {
		page, err := svc.Fetch(ctx, cursor, 3)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, e := range page {
			assert.True(t, e.After(cursor), "entry %d must sort after the cursor", e.ID)
			cursor = Cursor{Timestamp: e.Timestamp, ID: e.ID}
		}
		got = append(got, page...)
	}

	require.Len(t, got, total)
	seen := make(map[int64]bool, total)
	for _, e := range got {
		assert.False(t, seen[e.ID], "entry %d delivered twice", e.ID)
		seen[e.ID] = true
	}
}

func TestFetch_IDBreaksTimestampTies(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewGuildLog(db, zap.NewNop())
	ctx := context.Background()

	// Force identical timestamps to exercise the ID tie-break.
	now := time.Now().Truncate(time.Second)
	for g := int64(1); g <= 4; g++ {
		require.NoError(t, db.Create(&model.GuildUpdate{GuildID: g, CreatedAt: now}).Error)
	}

	var cursor Cursor
	var order []int64
	for {
		page, err := svc.Fetch(ctx, cursor, 1)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		e := page[0]
		order = append(order, e.ID)
		cursor = Cursor{Timestamp: e.Timestamp, ID: e.ID}
	}

	require.Len(t, order, 4)
	for i := 1; i < len(order); i++ {
		assert.Greater(t, order[i], order[i-1], "same-timestamp entries must come back in ID order")
	}
}

func TestFetch_CursorExcludesApplied(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewGuildLog(db, zap.NewNop())
	ctx := context.Background()

	svc.Append(ctx, 5)
	first, err := svc.Fetch(ctx, Cursor{}, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	cursor := Cursor{Timestamp: first[0].Timestamp, ID: first[0].ID}
	again, err := svc.Fetch(ctx, cursor, 10)
	require.NoError(t, err)
	assert.Empty(t, again, "an applied entry must not be delivered again")
}

func TestDeleteAll_RemovesOnlyThatGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewGuildLog(db, zap.NewNop())
	ctx := context.Background()

	svc.Append(ctx, 1)
	svc.Append(ctx, 2)
	svc.Append(ctx, 1)

	svc.DeleteAll(ctx, 1)

	entries, err := svc.Fetch(ctx, Cursor{}, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].GroupID)
}

func TestAppend_FailureDoesNotPanic(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewGuildLog(db, zap.NewNop())

	// Drop the table so the insert fails; Append must swallow the error.
	require.NoError(t, db.Migrator().DropTable(&model.GuildUpdate{}))
	assert.NotPanics(t, func() { svc.Append(context.Background(), 9) })
}
