package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func setupTestStore(t *testing.T) Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return NewRedisStore(client, testLogger())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManager_ExecutesOnce(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(setupTestStore(t), testLogger())

	var calls int32
	op := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "done", nil
	}

	result, err := mgr.Execute(ctx, "k1", time.Minute, op)
	assert.NoError(t, err)
	assert.False(t, result.FromCache)

	result, err = mgr.Execute(ctx, "k1", time.Minute, op)
	assert.NoError(t, err)
	assert.True(t, result.FromCache)
	assert.Equal(t, "done", result.Response)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestManager_ConcurrentDoubleSubmitDropsTwin(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(setupTestStore(t), testLogger())

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32

	slowOp := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return "done", nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := mgr.Execute(ctx, "k1", time.Minute, slowOp)
		assert.NoError(t, err)
	}()

	<-started
	_, err := mgr.Execute(ctx, "k1", time.Minute, slowOp)
	assert.ErrorIs(t, err, ErrRequestInProgress)

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestManager_FailureIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(setupTestStore(t), testLogger())

	boom := errors.New("boom")
	_, err := mgr.Execute(ctx, "k1", time.Minute, func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	// a failed attempt leaves the key free for a retry
	result, err := mgr.Execute(ctx, "k1", time.Minute, func(ctx context.Context) (interface{}, error) {
		return "recovered", nil
	})
	assert.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, "recovered", result.Response)
}

func TestGenerateKey_Deterministic(t *testing.T) {
	a := GenerateKey("vote", "u1", "p1", "Red")
	b := GenerateKey("vote", "u1", "p1", "Red")
	c := GenerateKey("vote", "u1", "p1", "Blue")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
