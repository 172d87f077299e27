package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/AeonDevWorks/clarity-snapshot/internal/adapter/chromedp_render"
	"github.com/AeonDevWorks/clarity-snapshot/internal/adapter/memcache"
	pg_adapter "github.com/AeonDevWorks/clarity-snapshot/internal/adapter/postgres"
	"github.com/AeonDevWorks/clarity-snapshot/internal/adapter/rediscache"
	"github.com/AeonDevWorks/clarity-snapshot/internal/adapter/slogaudit"
	"github.com/AeonDevWorks/clarity-snapshot/internal/admission"
	"github.com/AeonDevWorks/clarity-snapshot/internal/delivery/http/handler"
	"github.com/AeonDevWorks/clarity-snapshot/internal/delivery/http/router"
	"github.com/AeonDevWorks/clarity-snapshot/internal/repository"
	"github.com/AeonDevWorks/clarity-snapshot/internal/usecase"
	"github.com/AeonDevWorks/clarity-snapshot/pkg/config"
	"github.com/AeonDevWorks/clarity-snapshot/pkg/logger"
	"github.com/AeonDevWorks/clarity-snapshot/pkg/metrics"
)

func main() {
	// --- Configuration ---
	cfg := config.Load()

	// --- Logger ---
	logLevel := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}
	logger.Init(os.Stdout, logLevel)
	slog.Info("Logger initialized", "level", logLevel.String())

	// --- Metrics ---
	metrics.Init()
	slog.Info("Metrics initialized")

	ctx := context.Background()

	// --- Snapshot cache ---
	// In-process LRU by default; Redis when configured, so that multiple
	// replicas can share one cache.
	var cache repository.SnapshotCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			slog.Error("Unable to connect to Redis", "error", err)
			os.Exit(1)
		}
		cache = rediscache.NewCache(rdb, cfg.CacheTTL)
		slog.Info("Snapshot cache backed by Redis", "addr", cfg.RedisAddr)
	} else {
		cache = memcache.New(cfg.CacheCapacity, cfg.CacheTTL)
		slog.Info("Snapshot cache in memory", "capacity", cfg.CacheCapacity, "ttl", cfg.CacheTTL.String())
	}

	// --- Fetch audit log ---
	var audit repository.FetchAuditRepository
	if cfg.DatabaseURL != "" {
		dbpool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("Unable to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbpool.Close()
		audit = pg_adapter.NewFetchAuditRepo(dbpool)
		slog.Info("Fetch audit log backed by PostgreSQL")
	} else {
		audit = slogaudit.NewAuditRepo()
	}

	// --- Render driver ---
	renderer := chromedp_render.NewChromedpRenderer(chromedp_render.Options{
		PageLoadTimeout: cfg.PageLoadTimeout,
		SelectorWait:    cfg.SelectorWait,
		SettleDelay:     cfg.SettleDelay,
	})
	defer renderer.Shutdown()

	// --- Use case ---
	gate := admission.NewGate(cfg.AllowedDomains)
	if len(cfg.AllowedDomains) == 0 {
		slog.Warn("ALLOWED_DOMAINS is empty: all domains are fetchable (development mode)")
	}
	snapshots := usecase.NewSnapshotService(gate, cache, renderer, audit)

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(snapshots, audit)
	httpRouter := router.New(apiHandler)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: httpRouter,
		// A render can legitimately run ~35s (30s navigation + settle), so
		// the write timeout has to sit above the worst-case fetch.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
			stop()
		}
	}()

	<-shutdownCtx.Done()
	slog.Info("Shutting down")

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}
