package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(t *testing.T) (*RedisStreamPublisher, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStreamPublisher(client, "health:alerts", 0), client, mr
}

func TestPublish_WritesStreamEntry(t *testing.T) {
	p, client, _ := newTestPublisher(t)
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	id, err := p.Publish(context.Background(), Event{
		Type:       "observation.high_risk",
		Key:        "obs-1",
		OccurredAt: at,
		Payload:    map[string]interface{}{"risk_score": 7},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := client.XRange(context.Background(), "health:alerts", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	v := msgs[0].Values
	assert.Equal(t, "observation.high_risk", v["type"])
	assert.Equal(t, "obs-1", v["key"])
	assert.Equal(t, "2024-05-01T10:30:00Z", v["occurred_at"])

	var data map[string]int
	require.NoError(t, json.Unmarshal([]byte(v["data"].(string)), &data))
	assert.Equal(t, 7, data["risk_score"])
}

func TestPublish_DefaultsOccurredAt(t *testing.T) {
	p, client, _ := newTestPublisher(t)

	_, err := p.Publish(context.Background(), Event{Type: "t", Payload: nil})
	require.NoError(t, err)

	msgs, err := client.XRange(context.Background(), "health:alerts", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.NotEmpty(t, msgs[0].Values["occurred_at"])
	assert.Equal(t, "null", msgs[0].Values["data"])
}

func TestPublish_UnencodablePayload(t *testing.T) {
	p, _, _ := newTestPublisher(t)

	_, err := p.Publish(context.Background(), Event{Type: "bad", Payload: make(chan int)})
	assert.Error(t, err)
}

func TestPublish_RedisDown(t *testing.T) {
	p, _, mr := newTestPublisher(t)
	mr.Close()

	_, err := p.Publish(context.Background(), Event{Type: "t"})
	assert.Error(t, err)
}

func TestNewRedisStreamPublisher_DefaultMaxLen(t *testing.T) {
	p := NewRedisStreamPublisher(nil, "s", -1)
	assert.Equal(t, int64(DefaultMaxLen), p.maxLen)
	assert.Equal(t, "s", p.Stream())
}
