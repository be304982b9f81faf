// Command reindex rebuilds the Redis ranking index from the primary store once
// and exits.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/krishanu7/subway-trader-backend/config"
	"github.com/krishanu7/subway-trader-backend/internal/store"
	"github.com/krishanu7/subway-trader-backend/pkg/logger"
	rdbPkg "github.com/krishanu7/subway-trader-backend/pkg/redis"
	"go.uber.org/zap"
)

const runTimeout = 5 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	n, err := run(ctx, cfg)
	if err != nil {
		log.Error("reindex failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("ranking index rebuilt", zap.Int("entries", n), zap.String("store", cfg.Store))
}

func run(ctx context.Context, cfg config.Config) (int, error) {
	if !cfg.RedisEnabled() {
		return 0, errors.New("redis_addr is not configured")
	}
	if cfg.Store == config.StoreMemory {
		return 0, errors.New("the memory store has nothing to index; use file or postgres")
	}

	primary, err := store.Open(ctx, cfg.Store, cfg.StoreLocation())
	if err != nil {
		return 0, err
	}
	defer primary.Close()

	rdb, err := rdbPkg.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return 0, err
	}
	defer rdb.Close()

	return store.Reindex(ctx, primary, store.NewRedisRanking(rdb))
}
