// Package mirror forwards floor events to external brokers for
// downstream consumers such as reporting jobs. Nothing read back from a
// broker is delivered to websocket clients.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"floorsync-system/internal/domain"
)

const (
	REDIS_CHANNEL_PREFIX = "floor:events:"
	REDIS_CHANNEL_ALL    = "floor:events:all"
	publishTimeout       = 3 * time.Second
)

// Envelope is the wire form of a mirrored event.
type Envelope struct {
	Topic     domain.Topic `json:"topic"`
	Event     string       `json:"event"`
	Payload   any          `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

func encode(ev domain.Event) ([]byte, error) {
	data, err := json.Marshal(Envelope{
		Topic:     ev.Topic,
		Event:     ev.Name,
		Payload:   ev.Payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

// Mirror publishes to the topic's channel and to the catch-all channel.
func (r *Redis) Mirror(ev domain.Event) error {
	data, err := encode(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := r.rdb.Publish(ctx, REDIS_CHANNEL_PREFIX+string(ev.Topic), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if err := r.rdb.Publish(ctx, REDIS_CHANNEL_ALL, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to all channel: %w", err)
	}
	return nil
}

// Close leaves the shared client open; its owner closes it.
func (r *Redis) Close() error { return nil }
