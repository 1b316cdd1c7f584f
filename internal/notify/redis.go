package notify

import (
	"context"
	"encoding/json"

	"ai-roleplay-platform/backend/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel session events are published to.
const Channel = "roleplay.events"

// RedisNotifier publishes session events to a Redis pub/sub channel so other
// parts of the system (notification delivery, analytics) can react without
// coupling to the core.
type RedisNotifier struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRedisNotifier(addr string, log *logger.Logger) *RedisNotifier {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisNotifier{client: client, log: log}
}

func (n *RedisNotifier) Emit(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		n.log.LogError(err, "failed to marshal notification event", "type", event.Type)
		return
	}
	if err := n.client.Publish(ctx, Channel, data).Err(); err != nil {
		n.log.LogError(err, "failed to publish notification event", "type", event.Type)
	}
}

// Ping checks the Redis connection, for health probes.
func (n *RedisNotifier) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

// Close releases the underlying connection.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
