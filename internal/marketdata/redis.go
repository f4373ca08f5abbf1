package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "marketdata:quote:"

// SharedCache stores lookup results across processes
type SharedCache interface {
	Get(ctx context.Context, ticker string) (*CacheEntry, error)
	Set(ctx context.Context, ticker string, entry *CacheEntry, ttl time.Duration) error
}

// CacheEntry is a cached lookup result. A nil Quote records a not-found answer.
type CacheEntry struct {
	Quote *Quote `json:"quote,omitempty"`
}

// RedisCache is a SharedCache backed by Redis
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisCache{client: client}, nil
}

// Get returns the cached entry for ticker, or nil when absent
func (r *RedisCache) Get(ctx context.Context, ticker string) (*CacheEntry, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+ticker).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached quote: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cached quote: %w", err)
	}
	return &entry, nil
}

// Set stores entry for ticker with the given expiry
func (r *RedisCache) Set(ctx context.Context, ticker string, entry *CacheEntry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode quote: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+ticker, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache quote: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}
