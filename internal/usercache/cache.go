// Package usercache caches the last authoritative user snapshot locally.
// The cache exists so the UI has something to paint between refreshes; it
// is always treated as potentially stale and is replaced wholesale by
// every authoritative response.
package usercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/pollwallet/pollwallet/internal/domain"
)

// Cache provides Redis-backed caching for the authenticated user's
// snapshot.
type Cache struct {
	client *redis.Client
}

// NewCache constructs a user snapshot cache backed by the provided Redis
// client.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get fetches the cached snapshot if it exists.
func (c *Cache) Get(ctx context.Context, userID string) (*domain.User, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached user: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("decode cached user: %w", err)
	}

	return &user, nil
}

// Set replaces the cached snapshot for the provided TTL.
func (c *Cache) Set(ctx context.Context, user *domain.User, ttl time.Duration) error {
	if c == nil || c.client == nil || user == nil {
		return nil
	}

	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user for cache: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(user.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set cached user: %w", err)
	}

	return nil
}

// Invalidate removes the cached snapshot entry if it exists.
func (c *Cache) Invalidate(ctx context.Context, userID string) error {
	if c == nil || c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete cached user: %w", err)
	}

	return nil
}

func cacheKey(userID string) string {
	return fmt.Sprintf("user:snapshot:%s", userID)
}
