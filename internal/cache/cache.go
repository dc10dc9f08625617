package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultVibeTTL = 24 * time.Hour

// VibeCache stores generated location blurbs keyed by location name.
type VibeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewVibeCache constructs a VibeCache with a 24-hour TTL.
func NewVibeCache(client *redis.Client) *VibeCache {
	return &VibeCache{client: client, ttl: defaultVibeTTL}
}

// vibeKey returns the Redis key for the given location name.
func vibeKey(name string) string {
	return "vibe:" + strings.TrimSpace(name)
}

// Get returns the cached vibe for name.
// Returns "", false, nil on a cache miss (not an error).
func (c *VibeCache) Get(ctx context.Context, name string) (string, bool, error) {
	val, err := c.client.Get(ctx, vibeKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cache get vibe for %s: %w", name, err)
	}
	return val, true, nil
}

// Set stores a vibe with the configured TTL. Empty text is not cached.
func (c *VibeCache) Set(ctx context.Context, name, text string) error {
	if text == "" {
		return nil
	}
	if err := c.client.Set(ctx, vibeKey(name), text, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set vibe for %s: %w", name, err)
	}
	return nil
}

// Delete removes the cached vibe for name.
func (c *VibeCache) Delete(ctx context.Context, name string) error {
	if err := c.client.Del(ctx, vibeKey(name)).Err(); err != nil {
		return fmt.Errorf("cache delete vibe for %s: %w", name, err)
	}
	return nil
}
