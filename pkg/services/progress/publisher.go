// Package progress converts workflow advancement into monotonic percentage
// events published on a per-thread filtered redis topic.
package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Topic is the pub/sub channel carrying all progress events. Consumers
// filter by threadId.
const Topic = "queryProgress"

// Event is one progress update for a running interaction.
type Event struct {
	ThreadID   uuid.UUID `json:"threadId"`
	Step       string    `json:"step"`
	Message    string    `json:"message"`
	Percentage float64   `json:"percentage"`
	State      string    `json:"state,omitempty"`
}

// Publisher delivers progress events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// RedisPublisher publishes progress events on the shared redis topic.
type RedisPublisher struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPublisher creates a redis-backed progress publisher.
func NewRedisPublisher(client *redis.Client, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		logger: logger.Named("progress"),
	}
}

var _ Publisher = (*RedisPublisher)(nil)

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal progress event: %w", err)
	}
	if err := p.client.Publish(ctx, Topic, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish progress event: %w", err)
	}
	return nil
}

// NopPublisher discards events. Used when redis is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }

var _ Publisher = NopPublisher{}
