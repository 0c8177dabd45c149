package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/hiyorin/shardrealm/server/api/rest"
	apiws "github.com/hiyorin/shardrealm/server/api/ws"
	"github.com/hiyorin/shardrealm/server/audit"
	"github.com/hiyorin/shardrealm/server/cache"
	"github.com/hiyorin/shardrealm/server/config"
	dbadapter "github.com/hiyorin/shardrealm/server/db"
	"github.com/hiyorin/shardrealm/server/game/entity"
	"github.com/hiyorin/shardrealm/server/game/interact"
	"github.com/hiyorin/shardrealm/server/game/player"
	"github.com/hiyorin/shardrealm/server/game/pool"
	"github.com/hiyorin/shardrealm/server/game/scene"
	"github.com/hiyorin/shardrealm/server/game/social"
	gamesync "github.com/hiyorin/shardrealm/server/game/sync"
	mw "github.com/hiyorin/shardrealm/server/middleware"
	"github.com/hiyorin/shardrealm/server/model"
	"github.com/hiyorin/shardrealm/server/plugin/hook"
	"github.com/hiyorin/shardrealm/server/resource"
	"github.com/hiyorin/shardrealm/server/scheduler"
	"github.com/hiyorin/shardrealm/server/updatelog"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Ledger store ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(nil)

	// ---- Cache ----
	c, err := cache.New(cache.Config{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Template catalog ----
	catalog := resource.NewCatalog(cfg.Game.DataPath)
	if err := catalog.Load(); err != nil {
		logger.Warn("catalog load warning", zap.Error(err))
	} else {
		logger.Info("template catalog loaded")
	}

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Hook center ----
	hooks := hook.NewHookCenter()

	// ---- Cross-shard membership sync ----
	guildLog := updatelog.NewGuildLog(db, logger)
	partyLog := updatelog.NewPartyLog(db, logger)
	guildSvc := social.NewGuildService(db, guildLog, social.NewRoster(), logger)
	partySvc := social.NewPartyService(db, partyLog, social.NewRoster(), logger)

	guildPoller := gamesync.NewPoller(guildLog, guildSvc, cfg.Game.SyncPageSize, logger)
	partyPoller := gamesync.NewPoller(partyLog, partySvc, cfg.Game.SyncPageSize, logger)
	sched.AddTicker("guild_sync", cfg.Game.SyncInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Game.SyncInterval)
		defer cancel()
		if err := guildPoller.RunOnce(ctx); err != nil {
			logger.Warn("guild sync failed", zap.Error(err))
		}
	})
	sched.AddTicker("party_sync", cfg.Game.SyncInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Game.SyncInterval)
		defer cancel()
		if err := partyPoller.RunOnce(ctx); err != nil {
			logger.Warn("party sync failed", zap.Error(err))
		}
	})

	// ---- World state ----
	sm := player.NewSessionManager(logger)
	defer sm.CloseAllSessions()
	entities := entity.NewManager(logger)
	scenes := scene.NewRegistry(logger)

	worldPool := pool.New(cfg.Game.PoolEnabled, logger)
	worldItemKey := pool.Key{CollectionID: 1, PrefabID: 1}
	worldPool.RegisterPrefab(worldItemKey, func() pool.Poolable {
		return &scene.Object{Kind: scene.KindWorldItem, Pool: worldItemKey}
	})
	if cfg.Game.PoolPrewarm > 0 {
		if err := worldPool.Prewarm(worldItemKey, cfg.Game.PoolPrewarm); err != nil {
			logger.Warn("pool prewarm failed", zap.Error(err))
		}
	}

	spawnStations(catalog, scenes, logger)

	// ---- Transaction pipeline ----
	pipe := interact.New(db, catalog, scenes, sm, worldPool, hooks, auditSvc, logger, interact.Config{
		ShardID:       cfg.Server.ShardID,
		InteractRange: cfg.Game.InteractRange,
		MaxAbilities:  cfg.Game.MaxKnownAbilities,
		CallTimeout:   cfg.Database.CallTimeout,
	})

	// ---- Periodic persistence of live entities ----
	sched.AddTicker("auto_save", time.Duration(cfg.Game.SaveIntervalS)*time.Second, func() {
		saveLiveEntities(db, entities, logger)
	})

	// ---- WS Router ----
	wsRouter := apiws.NewRouter(logger)
	worldH := apiws.NewWorldHandlers(db, sm, entities, cfg.Game, cfg.Server.ShardID, logger)
	worldH.RegisterHandlers(wsRouter)
	interactH := apiws.NewInteractHandlers(pipe, entities, logger)
	interactH.RegisterHandlers(wsRouter)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok", "shard": cfg.Server.ShardID})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	charH := apirest.NewCharacterHandler(db, cfg.Game)
	invH := apirest.NewInventoryHandler(db)
	guildH := apirest.NewGuildHandler(db, guildSvc)
	partyH := apirest.NewPartyHandler(db, partySvc)
	adminH := apirest.NewAdminHandler(db, sm, entities, scenes, sched, logger)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		charsG := api.Group("/characters")
		charsG.Use(mw.Auth(cfg.Security, c))
		charsG.GET("", charH.List)
		charsG.POST("", charH.Create)
		charsG.DELETE("/:id", charH.Delete)
		charsG.GET("/:id/inventory", invH.List)
		charsG.GET("/:id/abilities", invH.Abilities)

		guildsG := api.Group("/guilds")
		guildsG.Use(mw.Auth(cfg.Security, c))
		guildsG.POST("", guildH.Create)
		guildsG.GET("/:id", guildH.Detail)
		guildsG.POST("/:id/join", guildH.Join)
		guildsG.POST("/:id/leave", guildH.Leave)
		guildsG.DELETE("/:id/members/:cid", guildH.KickMember)
		guildsG.PUT("/:id/members/:cid/rank", guildH.SetRank)
		guildsG.POST("/:id/transfer/:cid", guildH.TransferLeadership)
		guildsG.DELETE("/:id", guildH.Disband)
		guildsG.PUT("/:id/notice", guildH.UpdateNotice)

		partiesG := api.Group("/parties")
		partiesG.Use(mw.Auth(cfg.Security, c))
		partiesG.POST("", partyH.Create)
		partiesG.GET("/:id", partyH.Detail)
		partiesG.POST("/:id/join", partyH.Join)
		partiesG.POST("/:id/leave", partyH.Leave)
		partiesG.DELETE("/:id/members/:cid", partyH.KickMember)

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/players", adminH.ListPlayers)
		adminG.POST("/kick/:id", adminH.KickPlayer)
		adminG.POST("/accounts/:id/ban", adminH.BanAccount)
		adminG.GET("/audit", adminH.AuditTrail)
	}

	// ---- WebSocket ----
	wsH := apiws.NewHandler(db, c, cfg.Security, sm, entities, wsRouter, logger)
	r.GET("/ws", wsH.ServeWS)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Shard listening",
		zap.String("shard_id", cfg.Server.ShardID),
		zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// spawnStations populates the scene registry from the catalog's station
// placements.
func spawnStations(catalog *resource.Catalog, scenes *scene.Registry, logger *zap.Logger) {
	kinds := map[string]scene.Kind{
		"merchant":        scene.KindMerchant,
		"ability_crafter": scene.KindAbilityCrafter,
		"bindstone":       scene.KindBindstone,
	}
	spawned := 0
	for _, st := range catalog.Stations() {
		kind, ok := kinds[st.Kind]
		if !ok {
			logger.Warn("unknown station kind, skipping", zap.String("kind", st.Kind))
			continue
		}
		scenes.Spawn(&scene.Object{
			Kind:        kind,
			TemplateID:  st.TemplateID,
			SceneName:   st.SceneName,
			SceneHandle: st.SceneHandle,
			X:           st.X,
			Y:           st.Y,
			Z:           st.Z,
		})
		spawned++
	}
	if spawned > 0 {
		logger.Info("stations spawned", zap.Int("count", spawned))
	}
}

// saveLiveEntities flushes the position and gold of every in-world entity to
// the ledger store.
func saveLiveEntities(db *gorm.DB, entities *entity.Manager, logger *zap.Logger) {
	for _, ent := range entities.All() {
		x, y, z := ent.Position()
		updates := map[string]any{
			"scene_name":   ent.SceneName,
			"scene_handle": ent.SceneHandle,
			"x":            x,
			"y":            y,
			"z":            z,
		}
		if w, ok := ent.Wallet(); ok {
			updates["gold"] = w.Balance()
		}
		if err := db.Model(&model.Character{}).Where("id = ?", ent.ID).
			Updates(updates).Error; err != nil {
			logger.Warn("auto save failed",
				zap.Int64("char_id", ent.ID), zap.Error(err))
		}
	}
}
