// Package repository persists the client's durable local state: the
// identity reference that survives restarts and the device token that
// scopes advisory caches.
package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/pollwallet/pollwallet/internal/errors"
)

const (
	identityKey    = "identity:user_id"
	deviceTokenKey = "identity:device_token"
)

// ErrNoIdentity indicates that no identity reference is stored.
var ErrNoIdentity = errors.New("no stored identity reference")

// IdentityStore defines the persistence contract for the local identity
// reference.
type IdentityStore interface {
	// Save stores the user id as the identity to restore on startup.
	Save(ctx context.Context, userID string) error
	// Load returns the stored user id or ErrNoIdentity when absent.
	Load(ctx context.Context) (string, error)
	// Clear removes the stored identity reference.
	Clear(ctx context.Context) error
	// DeviceToken returns this device's stable token, creating it on
	// first use.
	DeviceToken(ctx context.Context) (string, error)
}

type redisIdentityStore struct {
	client *redis.Client
	log    *slog.Logger
}

// NewIdentityStore creates a Redis-backed identity store.
func NewIdentityStore(client *redis.Client, log *slog.Logger) IdentityStore {
	if log == nil {
		log = slog.Default()
	}

	return &redisIdentityStore{
		client: client,
		log:    log,
	}
}

// Save stores the user id without expiry; the reference lives until an
// explicit logout.
func (s *redisIdentityStore) Save(ctx context.Context, userID string) error {
	if err := s.client.Set(ctx, identityKey, userID, 0).Err(); err != nil {
		s.log.Error("failed to save identity reference", slog.Any("error", err))
		return apperrors.NewStorageError("save identity", err)
	}

	return nil
}

// Load returns the stored user id.
func (s *redisIdentityStore) Load(ctx context.Context) (string, error) {
	userID, err := s.client.Get(ctx, identityKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoIdentity
		}

		s.log.Error("failed to load identity reference", slog.Any("error", err))
		return "", apperrors.NewStorageError("load identity", err)
	}

	return userID, nil
}

// Clear removes the stored identity reference.
func (s *redisIdentityStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, identityKey).Err(); err != nil {
		s.log.Error("failed to clear identity reference", slog.Any("error", err))
		return apperrors.NewStorageError("clear identity", err)
	}

	return nil
}

// DeviceToken returns the stable per-device token, generating and
// persisting one on first call. SetNX keeps the first writer's token if
// two starts race.
func (s *redisIdentityStore) DeviceToken(ctx context.Context) (string, error) {
	token := uuid.NewString()
	created, err := s.client.SetNX(ctx, deviceTokenKey, token, 0).Result()
	if err != nil {
		s.log.Error("failed to initialize device token", slog.Any("error", err))
		return "", apperrors.NewStorageError("initialize device token", err)
	}
	if created {
		return token, nil
	}

	existing, err := s.client.Get(ctx, deviceTokenKey).Result()
	if err != nil {
		s.log.Error("failed to load device token", slog.Any("error", err))
		return "", apperrors.NewStorageError("load device token", err)
	}

	return existing, nil
}
