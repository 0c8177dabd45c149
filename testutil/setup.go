package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/hiyorin/shardrealm/server/cache"
	"github.com/hiyorin/shardrealm/server/cache/local"
	dbsqlite "github.com/hiyorin/shardrealm/server/db/sqlite"
	"github.com/hiyorin/shardrealm/server/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates a private in-memory SQLite ledger and runs
// AutoMigrate. Each call gets its own named memory database, so parallel
// tests do not share state.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := dbsqlite.Open(dsn)
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SetupTestCache creates an in-process cache (no Redis required).
func SetupTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := local.New(local.Config{})
	require.NoError(t, err, "SetupTestCache: New")
	return c
}
