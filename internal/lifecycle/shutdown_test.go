package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestShutdown_RunsHooksInReverseOrder(t *testing.T) {
	s := NewShutdown(testLogger())

	var order []string
	s.Register("redis", func(ctx context.Context) error {
		order = append(order, "redis")
		return nil
	})
	s.Register("sync client", func(ctx context.Context) error {
		order = append(order, "sync client")
		return nil
	})

	assert.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"sync client", "redis"}, order)
}

func TestShutdown_FailedHookDoesNotStopOthers(t *testing.T) {
	s := NewShutdown(testLogger())

	var ran bool
	s.Register("redis", func(ctx context.Context) error {
		ran = true
		return nil
	})
	s.Register("sync client", func(ctx context.Context) error {
		return errors.New("ticker did not stop")
	})

	err := s.Execute(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sync client")
	assert.True(t, ran)
}

func TestShutdown_IgnoresNilHooks(t *testing.T) {
	s := NewShutdown(testLogger())
	s.Register("noop", nil)

	assert.NoError(t, s.Execute(context.Background()))
}
