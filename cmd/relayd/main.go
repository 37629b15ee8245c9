package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ranjeet550/kodeshare-relay/internal/app/registry"
	"github.com/Ranjeet550/kodeshare-relay/internal/app/server"
	"github.com/Ranjeet550/kodeshare-relay/internal/config"
	"github.com/Ranjeet550/kodeshare-relay/internal/core/services"
	"github.com/Ranjeet550/kodeshare-relay/internal/platform/logger"
	"github.com/Ranjeet550/kodeshare-relay/internal/platform/telemetry"
	"github.com/Ranjeet550/kodeshare-relay/internal/plugins/postgres"
	redisPlugin "github.com/Ranjeet550/kodeshare-relay/internal/plugins/redis"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting relay")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "DSN", cfg.Postgres.DSN, "err", err)
		return
	}
	log.Info("postgres connected")
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL, "err", err)
		return
	}
	log.Info("redis connected")

	// Adapters
	docStore := postgres.NewDocumentRepo(pdb)
	txManager := postgres.NewTxManager(pdb)
	presence := redisPlugin.NewRedisPresenceMirror(rdb)

	// Core
	reg := registry.NewRegistry()
	rooms := services.NewMembership(log, reg)
	relay := services.NewRelay(log, rooms, reg)
	debouncer := services.NewDebouncer(log, docStore, cfg.Relay.DebounceWindow)
	coordinator := services.NewSessionCoordinator(
		log, reg, rooms, relay, debouncer,
		docStore, presence, txManager,
		cfg.Redis.PresenceTTL,
	)

	// Server
	srv := server.NewServer(log, *cfg, coordinator, rooms)
	if err := srv.Start(); err != nil {
		log.Error("server stopped", "err", err)
	}
}
