package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/krishanu7/subway-trader-backend/internal/leaderboard"
	wsPkg "github.com/krishanu7/subway-trader-backend/pkg/websocket"
	"github.com/redis/go-redis/v9"
)

// UpdatesChannel is the Redis pub/sub channel carrying leaderboard updates.
const UpdatesChannel = "leaderboard_updates"

// HubNotifier broadcasts straight to the local hub. Used when Redis is off.
type HubNotifier struct {
	hub *wsPkg.Hub
}

func NewHubNotifier(hub *wsPkg.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) Publish(_ context.Context, u leaderboard.Update) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}
	n.hub.Broadcast(payload)
	return nil
}

// RedisNotifier publishes updates so every instance's NotificationWorker can
// relay them to its own subscribers.
type RedisNotifier struct {
	rdb     redis.Cmdable
	channel string
}

func NewRedisNotifier(rdb redis.Cmdable) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, channel: UpdatesChannel}
}

func (n *RedisNotifier) Publish(ctx context.Context, u leaderboard.Update) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}
	if err := n.rdb.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish update: %w", err)
	}
	return nil
}
