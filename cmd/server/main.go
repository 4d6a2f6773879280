package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inventory-service/internal/backup"
	"inventory-service/internal/cache"
	"inventory-service/internal/config"
	"inventory-service/internal/database"
	"inventory-service/internal/events"
	"inventory-service/internal/handlers"
	"inventory-service/internal/logger"
	"inventory-service/internal/middleware"
	"inventory-service/internal/repository"
	"inventory-service/internal/routes"
	"inventory-service/internal/scheduler"
	"inventory-service/internal/services"
	"inventory-service/internal/supabase"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const itemCacheSize = 1000

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Logging.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)
	gin.SetMode(cfg.Server.GinMode)

	ctx := context.Background()

	// Store
	var (
		postgresDB *database.PostgresDB
		dbPool     *sql.DB
		ledgerRepo repository.LedgerRepository
		userRepo   repository.UserRepository
	)
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		postgresDB, err = database.NewPostgresDB(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime, baseLogger.Named("database"))
		if err != nil {
			baseLogger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer postgresDB.Close()

		if err := postgresDB.Migrate(ctx); err != nil {
			baseLogger.Fatal("failed to migrate schema", zap.Error(err))
		}

		dbPool = postgresDB.DB
		if ledgerRepo, err = repository.NewPostgresLedgerRepository(dbPool, baseLogger.Named("repo.ledger")); err != nil {
			baseLogger.Fatal("failed to init ledger repository", zap.Error(err))
		}
		if userRepo, err = repository.NewPostgresUserRepository(dbPool); err != nil {
			baseLogger.Fatal("failed to init user repository", zap.Error(err))
		}
	default:
		baseLogger.Warn("using in-memory store, data is lost on restart")
		ledgerRepo = repository.NewMemoryLedgerRepository()
		userRepo = repository.NewMemoryUserRepository()
	}

	// Redis opcional: caché L2 y bus de eventos entre instancias
	var (
		redisDB     *database.RedisDB
		redisClient *redis.Client
		bus         events.Bus
	)
	if cfg.RedisEnabled() {
		redisDB, err = database.NewRedisDB(cfg.Redis, baseLogger.Named("redis"))
		if err != nil {
			baseLogger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisDB.Close()
		redisClient = redisDB.Client
		bus = events.NewRedisBus(redisClient, baseLogger.Named("events"))
	} else {
		baseLogger.Info("redis disabled, using local event bus")
		bus = events.NewLocalBus(baseLogger.Named("events"))
	}

	itemCache := cache.NewItemCache(redisClient, itemCacheSize, cfg.Redis.CacheTTL, baseLogger.Named("cache"))

	ledgerService := services.NewLedgerService(ledgerRepo, itemCache, bus, services.LedgerOptions{
		NearExpiryDays:      cfg.Ledger.NearExpiryDays,
		DefaultMinimumStock: cfg.Ledger.DefaultMinimumStock,
	}, baseLogger.Named("svc.ledger"))

	authService := services.NewAuthService(userRepo, cfg.JWT.Secret,
		time.Duration(cfg.JWT.ExpiryHours)*time.Hour, baseLogger.Named("svc.auth"))
	if err := authService.EnsureUser(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		baseLogger.Fatal("failed to seed admin user", zap.Error(err))
	}

	monitoringService := services.NewMonitoringService(baseLogger.Named("svc.monitoring"), cfg, redisClient, dbPool, itemCache, ledgerService)

	backupManager, err := backup.NewManager(cfg.Backup.Dir, ledgerService, baseLogger.Named("backup"))
	if err != nil {
		baseLogger.Fatal("failed to init backup manager", zap.Error(err))
	}

	syncClient := supabase.NewClient(cfg.Sync, ledgerService, baseLogger.Named("sync"))
	if !cfg.SyncEnabled() {
		baseLogger.Info("supabase sync disabled")
	}

	if cfg.Scheduler.AlertCron != "" {
		sched := scheduler.NewScheduler(cfg.Scheduler.AlertCron, ledgerService, bus, baseLogger.Named("scheduler"))
		if err := sched.Start(); err != nil {
			baseLogger.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	// HTTP
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService, baseLogger.Named("handlers.monitoring"))

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(baseLogger.Named("http")),
		monitoringHandler.RecordRequestMiddleware(),
	)

	routes.SetupRoutes(engine, routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService, baseLogger.Named("handlers.auth")),
		Ledger:     handlers.NewLedgerHandler(ledgerService, baseLogger.Named("handlers.ledger")),
		Stock:      handlers.NewStockHandler(ledgerService, baseLogger.Named("handlers.stock")),
		Export:     handlers.NewExportHandler(ledgerService, baseLogger.Named("handlers.export")),
		Backup:     handlers.NewBackupHandler(backupManager, baseLogger.Named("handlers.backup")),
		Sync:       handlers.NewSyncHandler(syncClient, baseLogger.Named("handlers.sync")),
		Stream:     handlers.NewStreamHandler(bus, baseLogger.Named("handlers.stream")),
		Monitoring: monitoringHandler,
		Health:     middleware.NewHealthChecker(postgresDB, redisDB, baseLogger.Named("health")),
	}, middleware.AuthMiddleware(authService, baseLogger.Named("auth")))

	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     engine,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		middleware.ServerInfo(middleware.BannerInfo{
			Port:        cfg.Server.Port,
			StoreDriver: cfg.Store.Driver,
			Redis:       cfg.RedisEnabled(),
			Sync:        cfg.SyncEnabled(),
			AlertCron:   cfg.Scheduler.AlertCron,
		}, baseLogger)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-sigCtx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
