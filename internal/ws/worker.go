package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/krishanu7/subway-trader-backend/internal/leaderboard"
	wsPkg "github.com/krishanu7/subway-trader-backend/pkg/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NotificationWorker relays updates from Redis pub/sub to the local hub.
type NotificationWorker struct {
	RedisClient *redis.Client
	Hub         *wsPkg.Hub
	channel     string
	log         *zap.Logger
}

func NewNotificationWorker(rdb *redis.Client, hub *wsPkg.Hub, log *zap.Logger) *NotificationWorker {
	return &NotificationWorker{
		RedisClient: rdb,
		Hub:         hub,
		channel:     UpdatesChannel,
		log:         log.Named("notification_worker"),
	}
}

// Run blocks until ctx is cancelled or the subscription fails.
func (w *NotificationWorker) Run(ctx context.Context) error {
	pubsub := w.RedisClient.Subscribe(ctx, w.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", w.channel, err)
	}
	w.log.Info("notification worker started", zap.String("channel", w.channel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("notification worker stopped")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var u leaderboard.Update
			if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
				w.log.Warn("discarding malformed update", zap.Error(err))
				continue
			}
			n := w.Hub.Broadcast([]byte(msg.Payload))
			w.log.Debug("update relayed",
				zap.String("username", u.Username),
				zap.Int64("high_score", u.HighScore),
				zap.Int("clients", n),
			)
		}
	}
}
