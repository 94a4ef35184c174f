package votes

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func TestRedisStore_MarkAndCheck(t *testing.T) {
	ctx := context.Background()
	store := NewRedisStore(setupTestRedis(t), testLogger())

	voted, err := store.HasVoted(ctx, "device-1", "p1")
	assert.NoError(t, err)
	assert.False(t, voted)

	assert.NoError(t, store.MarkVoted(ctx, "device-1", "p1"))

	voted, err = store.HasVoted(ctx, "device-1", "p1")
	assert.NoError(t, err)
	assert.True(t, voted)
}

func TestRedisStore_DevicesAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewRedisStore(setupTestRedis(t), testLogger())

	assert.NoError(t, store.MarkVoted(ctx, "device-1", "p1"))

	voted, err := store.HasVoted(ctx, "device-2", "p1")
	assert.NoError(t, err)
	assert.False(t, voted, "the advisory cache is per-device")
}

func TestRedisStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewRedisStore(setupTestRedis(t), testLogger())

	assert.NoError(t, store.MarkVoted(ctx, "device-1", "p1"))
	assert.NoError(t, store.MarkVoted(ctx, "device-1", "p2"))
	assert.NoError(t, store.Clear(ctx, "device-1"))

	for _, pollID := range []string{"p1", "p2"} {
		voted, err := store.HasVoted(ctx, "device-1", pollID)
		assert.NoError(t, err)
		assert.False(t, voted)
	}
}
