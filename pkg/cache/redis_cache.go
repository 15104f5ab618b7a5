// Package cache provides an optional exact-match response cache so a
// re-run over an unchanged corpus does not pay for the same completions
// twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abdhe/llm-batch-processor/pkg/provider"
)

// ResponseCache is consulted before a completion call and written after
// a successful one.
type ResponseCache interface {
	// Lookup returns the cached response and true on a hit.
	Lookup(ctx context.Context, key string) (provider.Response, bool, error)

	// Store caches a response under the given key.
	Store(ctx context.Context, key string, resp provider.Response) error
}

// Key derives the deterministic cache key for one completion request.
// Identical model + system prompt + user prompt always map to the same
// key.
func Key(model, systemPrompt, userPrompt string) string {
	h := sha256.New()
	io.WriteString(h, model)
	h.Write([]byte{0})
	io.WriteString(h, systemPrompt)
	h.Write([]byte{0})
	io.WriteString(h, userPrompt)
	return fmt.Sprintf("llm_batch:%x", h.Sum(nil)[:16])
}

// RedisCache wraps a Redis client for storing and retrieving responses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a new Redis-backed response cache.
func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

// Lookup retrieves a cached response by key.
func (r *RedisCache) Lookup(ctx context.Context, key string) (provider.Response, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return provider.Response{}, false, nil
	}
	if err != nil {
		return provider.Response{}, false, fmt.Errorf("cache: get: %w", err)
	}

	var resp provider.Response
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return provider.Response{}, false, fmt.Errorf("cache: unmarshal: %w", err)
	}
	return resp, true, nil
}

// Store caches a response with the configured TTL.
func (r *RedisCache) Store(ctx context.Context, key string, resp provider.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("cache: marshal: %w", err)
	}
	if err := r.client.Set(ctx, key, string(data), r.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
