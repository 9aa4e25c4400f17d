package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgelog/internal/app"
	"github.com/edgelog/internal/cache"
	"github.com/edgelog/internal/config"
	"github.com/edgelog/internal/metrics"
	"github.com/edgelog/internal/middleware"
	"github.com/edgelog/internal/models"
	"github.com/edgelog/internal/realtime"
	"github.com/edgelog/internal/trace"
	"github.com/edgelog/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Build info (injected at build time via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := middleware.InitLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	if err := trace.Init(cfg.Tracing.Enabled, cfg.Tracing.ServiceName, Version); err != nil {
		appLogger.Fatal("failed to initialize tracing", zap.Error(err))
	}

	gin.SetMode(cfg.Server.Mode)

	db, err := initDatabase(cfg)
	if err != nil {
		appLogger.Fatal("failed to initialize database", zap.Error(err))
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		appLogger.Fatal("failed to migrate database", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Without Redis the analytics cache and realtime fan-out stay in process
	rdb := initRedis(cfg)
	var store cache.Store
	if rdb != nil {
		store = cache.NewRedisStore(rdb)
	} else {
		appLogger.Warn("redis unavailable, using in-memory cache")
		store = cache.NewMemoryStore()
	}
	hub := realtime.NewHub(rdb, appLogger, m)

	application, err := app.New(app.Deps{
		Config:   cfg,
		DB:       db,
		Store:    store,
		Hub:      hub,
		Registry: registry,
		Metrics:  m,
		Logger:   appLogger,
		Build:    app.BuildInfo{Version: Version, Commit: Commit, BuildTime: BuildTime},
	})
	if err != nil {
		appLogger.Fatal("failed to build application", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	expiryWorker := worker.NewSubscriptionExpiryWorker(application.Subscription,
		time.Duration(cfg.Plans.ExpiryCheck)*time.Second, appLogger)
	go expiryWorker.Start()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("starting server", zap.String("addr", addr), zap.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")
	expiryWorker.Stop()
	cancel()

	// Graceful shutdown with 10 second timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("server forced to shutdown", zap.Error(err))
	}
	if err := trace.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("trace shutdown failed", zap.Error(err))
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			appLogger.Warn("error closing redis connection", zap.Error(err))
		}
	}

	appLogger.Info("server exited properly")
}

func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.Server.Mode == "release" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// initRedis returns nil when no Redis host is configured or it does not answer
func initRedis(cfg *config.Config) *redis.Client {
	if cfg.Redis.Host == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		middleware.Logger().Warn("redis ping failed", zap.Error(err))
		_ = rdb.Close()
		return nil
	}
	return rdb
}
