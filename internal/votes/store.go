// Package votes guarantees at most one vote per user per poll, using a
// local advisory cache in front of the authority's durable vote record.
package votes

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store is the advisory cache of poll ids this device has voted on. It is
// a fast-reject hint only; the authority remains the final arbiter.
type Store interface {
	// HasVoted reports whether the device remembers voting on the poll.
	HasVoted(ctx context.Context, deviceToken, pollID string) (bool, error)
	// MarkVoted remembers an authoritatively confirmed vote.
	MarkVoted(ctx context.Context, deviceToken, pollID string) error
	// Clear forgets everything recorded for the device.
	Clear(ctx context.Context, deviceToken string) error
}

const votedKeyPattern = "device:%s:voted"

// RedisStore persists the advisory set in Redis so it survives restarts,
// mirroring the browser-local store the authority's web client uses.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
}

// NewRedisStore initializes a Redis-backed Store implementation.
func NewRedisStore(client *redis.Client, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStore{
		client: client,
		log:    log,
	}
}

var _ Store = (*RedisStore)(nil)

// HasVoted checks membership in the device's voted set.
func (s *RedisStore) HasVoted(ctx context.Context, deviceToken, pollID string) (bool, error) {
	voted, err := s.client.SIsMember(ctx, votedKey(deviceToken), pollID).Result()
	if err != nil {
		s.log.Error("failed to check voted set", slog.String("poll_id", pollID), slog.Any("error", err))
		return false, err
	}

	return voted, nil
}

// MarkVoted adds the poll id to the device's voted set.
func (s *RedisStore) MarkVoted(ctx context.Context, deviceToken, pollID string) error {
	if err := s.client.SAdd(ctx, votedKey(deviceToken), pollID).Err(); err != nil {
		s.log.Error("failed to record vote locally", slog.String("poll_id", pollID), slog.Any("error", err))
		return err
	}

	return nil
}

// Clear removes the device's voted set.
func (s *RedisStore) Clear(ctx context.Context, deviceToken string) error {
	if err := s.client.Del(ctx, votedKey(deviceToken)).Err(); err != nil {
		s.log.Error("failed to clear voted set", slog.Any("error", err))
		return err
	}

	return nil
}

func votedKey(deviceToken string) string {
	return fmt.Sprintf(votedKeyPattern, deviceToken)
}

// MemoryStore is an in-process fallback Store used when Redis is
// unavailable and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	voted map[string]map[string]struct{}
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{voted: make(map[string]map[string]struct{})}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) HasVoted(ctx context.Context, deviceToken, pollID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	polls, ok := s.voted[deviceToken]
	if !ok {
		return false, nil
	}

	_, voted := polls[pollID]
	return voted, nil
}

func (s *MemoryStore) MarkVoted(ctx context.Context, deviceToken, pollID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	polls, ok := s.voted[deviceToken]
	if !ok {
		polls = make(map[string]struct{})
		s.voted[deviceToken] = polls
	}

	polls[pollID] = struct{}{}
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, deviceToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.voted, deviceToken)
	return nil
}
