package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/krishanu7/subway-trader-backend/config"
	"github.com/krishanu7/subway-trader-backend/internal/auth"
	"github.com/krishanu7/subway-trader-backend/internal/game"
	"github.com/krishanu7/subway-trader-backend/internal/leaderboard"
	"github.com/krishanu7/subway-trader-backend/internal/server"
	"github.com/krishanu7/subway-trader-backend/internal/store"
	"github.com/krishanu7/subway-trader-backend/internal/ws"
	"github.com/krishanu7/subway-trader-backend/pkg/logger"
	"github.com/krishanu7/subway-trader-backend/pkg/metrics"
	rdbPkg "github.com/krishanu7/subway-trader-backend/pkg/redis"
	wsPkg "github.com/krishanu7/subway-trader-backend/pkg/websocket"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 15 * time.Second
)

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

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	primary, err := store.Open(ctx, cfg.Store, cfg.StoreLocation())
	if err != nil {
		return err
	}
	defer primary.Close()
	log.Info("store ready", zap.String("store", cfg.Store))

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = devSecret()
		log.Warn("jwt_secret not set; using a random secret, tokens will not survive a restart")
	}

	hub := wsPkg.NewHub(log)
	gateway := primary
	var notifier leaderboard.Notifier = ws.NewHubNotifier(hub)

	if cfg.RedisEnabled() {
		rdb, err := rdbPkg.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()

		index := store.NewRedisRanking(rdb)
		reindex(ctx, primary, index, log)
		gateway = store.NewIndexed(primary, index, log)

		sched := cron.New()
		if _, err := sched.AddFunc(cfg.ReindexSchedule, func() { reindex(ctx, primary, index, log) }); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		notifier = ws.NewRedisNotifier(rdb)
		worker := ws.NewNotificationWorker(rdb, hub, log)
		go func() {
			if err := worker.Run(ctx); err != nil {
				log.Error("notification worker failed", zap.Error(err))
			}
		}()
		log.Info("redis ranking index enabled", zap.String("addr", cfg.RedisAddr))
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	authSvc := auth.NewService(gateway, tokens, cfg.BcryptCost, log)
	resolver := leaderboard.NewResolver(gateway, leaderboard.WithQueryTimeout(cfg.QueryTimeout))
	lbSvc := leaderboard.NewService(gateway, resolver, notifier, log)
	gameSvc := game.NewService(gateway, log)

	handler := server.NewRouter(server.Deps{
		Auth:        auth.NewAuthHandler(authSvc, log),
		Verifier:    authSvc,
		Leaderboard: leaderboard.NewHandler(lbSvc, log),
		Game:        game.NewHandler(gameSvc, log),
		Feed:        ws.NewFeedHandler(hub, cfg.AllowedOrigins, log),
		Health: func(ctx context.Context) error {
			_, err := gateway.TopOne(ctx)
			return err
		},
		StaticDir:      cfg.StaticDir,
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func reindex(ctx context.Context, primary store.Gateway, index *store.RedisRanking, log *zap.Logger) {
	n, err := store.Reindex(ctx, primary, index)
	if err != nil {
		metrics.RecordReindex("error", 0)
		log.Error("ranking reindex failed", zap.Error(err))
		return
	}
	metrics.RecordReindex("ok", n)
	log.Info("ranking index rebuilt", zap.Int("entries", n))
}

func devSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
