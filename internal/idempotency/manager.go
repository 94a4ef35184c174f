// Package idempotency collapses rapid double-submits of the same user
// action before they reach the authority. It is advisory: the authority's
// own dedup remains the guarantee, this layer only saves round-trips when
// a button is mashed.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// ErrRequestInProgress reports that an identical submission is already in
// flight; the caller should drop this one rather than queue it.
var ErrRequestInProgress = errors.New("identical request is already in progress")

// Operation performs the guarded action and returns its result.
type Operation func(ctx context.Context) (interface{}, error)

// Result carries the operation's outcome and whether it was served from a
// previously recorded completion.
type Result struct {
	Response  interface{}
	FromCache bool
}

// Manager executes operations at most once per key within the record TTL.
type Manager interface {
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error)
}

type manager struct {
	store Store
	log   *slog.Logger
}

// NewManager builds a Manager over the provided Store.
func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store: store,
		log:   log,
	}
}

const inFlightLockTTL = 30 * time.Second

func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	locked, err := m.store.Lock(ctx, key, inFlightLockTTL)
	if err != nil {
		// A broken store must not block user actions; run unguarded.
		m.log.Warn("idempotency store unavailable, running unguarded", slog.Any("error", err))
		response, opErr := fn(ctx)
		if opErr != nil {
			return nil, opErr
		}
		return &Result{Response: response}, nil
	}

	if !locked {
		record, err := m.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		if record != nil && record.Status == StatusCompleted {
			var response interface{}
			if len(record.Response) > 0 {
				if err := json.Unmarshal(record.Response, &response); err != nil {
					return nil, err
				}
			}
			return &Result{Response: response, FromCache: true}, nil
		}

		// A double-submit races its twin; drop it instead of queueing.
		return nil, ErrRequestInProgress
	}

	defer func() {
		if err := m.store.ReleaseLock(ctx, key); err != nil {
			m.log.Warn("failed to release idempotency lock", slog.String("key", key), slog.Any("error", err))
		}
	}()

	response, err := fn(ctx)
	if err != nil {
		// Failures are not recorded; the user may retry.
		return nil, err
	}

	responseBytes, err := json.Marshal(response)
	if err != nil {
		return nil, err
	}

	if err := m.store.Set(ctx, key, &Record{
		Status:   StatusCompleted,
		Response: responseBytes,
	}, ttl); err != nil {
		m.log.Warn("failed to record idempotent completion", slog.String("key", key), slog.Any("error", err))
	}

	return &Result{Response: response, FromCache: false}, nil
}
