// Package cache provides a short-TTL Redis response cache for the catalog
// and value-distribution endpoints, which dashboards poll aggressively.
// A nil *Cache is valid and disables caching.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a read-through byte cache backed by Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New connects to Redis and verifies the connection. Callers treat a nil
// return as "caching disabled".
func New(ctx context.Context, addr string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Cache{client: client, ttl: ttl, logger: logger}, nil
}

// Key builds a deterministic cache key from its parts. Parts include every
// request parameter that affects the response, hashed to keep keys short.
func Key(endpoint string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("proplens:%s:%s", endpoint, hex.EncodeToString(h.Sum(nil)[:16]))
}

// Get returns the cached payload for key, or false on a miss. Redis errors
// degrade to misses; the cache never fails a request.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && c.logger != nil {
			c.logger.Warn("cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		return nil, false
	}
	return payload, true
}

// Set stores a payload under key with the configured TTL, best effort.
func (c *Cache) Set(ctx context.Context, key string, payload []byte) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.Warn("cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}

// Close releases the Redis client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
