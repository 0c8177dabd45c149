package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Game     GameConfig     `mapstructure:"game"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	// ShardID names this shard process. It must be unique per running shard;
	// it tags owned characters and audit rows.
	ShardID  string `mapstructure:"shard_id"`
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
	// CallTimeout bounds every ledger store call made on behalf of a client
	// transaction. A timed-out call aborts the transaction with no effects.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
}

type GameConfig struct {
	DataPath          string        `mapstructure:"data_path"` // template catalog JSON files
	StartScene        string        `mapstructure:"start_scene"`
	StartX            float64       `mapstructure:"start_x"`
	StartY            float64       `mapstructure:"start_y"`
	StartZ            float64       `mapstructure:"start_z"`
	StartGold         int64         `mapstructure:"start_gold"`
	SyncInterval      time.Duration `mapstructure:"sync_interval"`
	SyncPageSize      int           `mapstructure:"sync_page_size"`
	InteractRange     float64       `mapstructure:"interact_range"`
	BagSlots          int           `mapstructure:"bag_slots"`
	MaxKnownAbilities int           `mapstructure:"max_known_abilities"`
	PoolEnabled       bool          `mapstructure:"pool_enabled"`
	PoolPrewarm       int           `mapstructure:"pool_prewarm"`
	SaveIntervalS     int           `mapstructure:"save_interval_s"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists the WebSocket origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.shard_id", "shard-1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/shard.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("database.call_timeout", "5s")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("game.data_path", "./data/templates")
	v.SetDefault("game.start_scene", "haven")
	v.SetDefault("game.start_gold", 100)
	v.SetDefault("game.sync_interval", "5s")
	v.SetDefault("game.sync_page_size", 64)
	v.SetDefault("game.interact_range", 3.5)
	v.SetDefault("game.bag_slots", 32)
	v.SetDefault("game.max_known_abilities", 25)
	v.SetDefault("game.pool_enabled", true)
	v.SetDefault("game.pool_prewarm", 0)
	v.SetDefault("game.save_interval_s", 300)
	v.SetDefault("security.jwt_ttl_h", "72h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
