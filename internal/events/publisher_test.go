package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisPublisherPublishesOnChannel(t *testing.T) {
	_, rdb := setupTestRedis(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, Channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	NewRedisPublisher(rdb, zap.NewNop()).Publish(ctx, AttemptEvent{
		Type:      AttemptSubmitted,
		AttemptID: "a1",
		UserID:    "u1",
		Status:    "processing",
	})

	select {
	case msg := <-sub.Channel():
		var event AttemptEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.Equal(t, AttemptSubmitted, event.Type)
		assert.Equal(t, "a1", event.AttemptID)
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

func TestRedisPublisherSurvivesRedisOutage(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	mr.Close()

	assert.NotPanics(t, func() {
		NewRedisPublisher(rdb, zap.NewNop()).Publish(context.Background(), AttemptEvent{Type: AttemptFailed})
	})
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(1)
	r.Publish(context.Background(), AttemptEvent{Type: AttemptCompleted})
	r.Publish(context.Background(), AttemptEvent{Type: AttemptFailed})

	got := r.Events()
	require.Len(t, got, 1)
	assert.Equal(t, AttemptCompleted, got[0].Type)
	assert.Empty(t, r.Events())
}
