// Package events publishes domain events to a Redis stream so that other
// services (paging, chat bots) can react to high-risk observations.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Event is one message on the stream.
type Event struct {
	Type       string
	Key        string
	OccurredAt time.Time
	Payload    interface{}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) (string, error)
}

// DefaultMaxLen caps the stream length, trimmed approximately by Redis.
const DefaultMaxLen = 10000

// RedisStreamPublisher appends events with XADD.
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStreamPublisher(client *redis.Client, stream string, maxLen int64) *RedisStreamPublisher {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

// Publish writes the event as fields type, key, occurred_at and a JSON
// encoded data field. It returns the stream entry id.
func (p *RedisStreamPublisher) Publish(ctx context.Context, ev Event) (string, error) {
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		return "", fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":        ev.Type,
			"key":         ev.Key,
			"occurred_at": ev.OccurredAt.UTC().Format(time.RFC3339Nano),
			"data":        string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("publish %s event to %s: %w", ev.Type, p.stream, err)
	}
	return id, nil
}

func (p *RedisStreamPublisher) Stream() string { return p.stream }
