package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/solvra/batch-clearing/internal/adapter/cache"
	"github.com/solvra/batch-clearing/internal/adapter/in_memory"
	"github.com/solvra/batch-clearing/internal/adapter/pg"
	"github.com/solvra/batch-clearing/internal/api/http"
	"github.com/solvra/batch-clearing/internal/config"
	"github.com/solvra/batch-clearing/internal/core"
	"github.com/solvra/batch-clearing/internal/logger"
	"github.com/solvra/batch-clearing/internal/port"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	zlog, sync := logger.New(cfg.Production)
	defer func() { _ = sync() }()

	var repo port.Repository
	if cfg.PostgresURL != "" {
		pgRepo, err := pg.NewPgRepo(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("failed to connect to Postgres: %v", err)
		}
		defer pgRepo.Close(ctx)
		repo = pgRepo
	} else {
		zlog.Warn("no POSTGRES_URL configured, orders will not survive restarts")
		repo = in_memory.NewMemoryRepo()
	}

	redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
	defer func() { _ = redisCache.Close() }()

	engine := core.NewEngine(repo, redisCache, zlog, core.Options{
		PriceResolution: cfg.PriceResolution,
		SolveResolution: cfg.SolveResolution,
		LimitBias:       cfg.LimitBias,
	})
	if err := engine.LoadOpenOrders(ctx, nil); err != nil {
		log.Fatalf("failed to restore books: %v", err)
	}

	server := http.NewHTTPServer(engine, cfg.PoolFee)
	zlog.Info("starting HTTP server", zap.String("addr", cfg.HTTPAddr))
	if err := server.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}
