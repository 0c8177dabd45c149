package db

import (
	"fmt"

	"github.com/hiyorin/shardrealm/server/config"
	dbmysql "github.com/hiyorin/shardrealm/server/db/mysql"
	dbsqlite "github.com/hiyorin/shardrealm/server/db/sqlite"
	"gorm.io/gorm"
)

const (
	// ModeSQLite keeps the ledger in a local SQLite file. Single-shard
	// deployments and tests only: cross-shard propagation requires every
	// shard to see the same store.
	ModeSQLite = "sqlite"
	// ModeMySQL is the shared ledger store for multi-shard deployments.
	ModeMySQL = "mysql"
)

// Open returns a *gorm.DB for the configured ledger store mode.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, cfg.MySQLMaxOpen, cfg.MySQLMaxIdle, cfg.MySQLMaxLife)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
