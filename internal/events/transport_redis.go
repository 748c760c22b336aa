package events

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisTransport publishes onto real Redis PUBLISH channels, for the case
// where a subscriber — e.g. the out-of-scope websocket fan-out service —
// runs in a separate process (§1, §6). Grounded on
// DimaJoyti-ai-agentic-crypto-browser's use of github.com/redis/go-redis/v9.
type RedisTransport struct {
	client *redis.Client
}

// NewRedisTransport wraps an already-configured redis.Client.
func NewRedisTransport(client *redis.Client) *RedisTransport {
	return &RedisTransport{client: client}
}

// Publish implements Transport.
func (t *RedisTransport) Publish(ctx context.Context, channel Channel, payload []byte) error {
	return t.client.Publish(ctx, string(channel), payload).Err()
}
