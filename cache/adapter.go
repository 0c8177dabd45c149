package cache

import (
	"context"
	"time"

	"github.com/hiyorin/shardrealm/server/cache/local"
	cacheredis "github.com/hiyorin/shardrealm/server/cache/redis"
)

// Cache holds per-shard ephemeral state: session tokens and short-lived
// locks. It is not the ledger store and nothing in it is authoritative.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Config holds configuration for both Redis and the in-process cache.
type Config struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
}

// New returns a Cache backed by Redis if RedisAddr is set, otherwise an
// in-process cache (single-shard deployments and tests).
func New(cfg Config) (Cache, error) {
	if cfg.RedisAddr != "" {
		return cacheredis.New(cacheredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return local.New(local.Config{GCInterval: cfg.LocalGCInterval})
}
