// Package cache provides an optional Redis-backed read-through cache for
// stored assessment records, keyed by record ID.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinical-scoring-server/internal/audit"
	"github.com/clinical-scoring-server/internal/domain"
)

// RecordCache wraps a Redis client with assessment-record caching. Cached
// entries carry their own expiry metadata so a stale entry is dropped even if
// the Redis TTL outlives it.
type RecordCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewRecordCache creates a record cache from the cache configuration.
func NewRecordCache(config domain.CacheConfig) (*RecordCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.PoolSize
	opts.PoolTimeout = config.PoolTimeout

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := config.DefaultTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RecordCache{
		redis:      client,
		defaultTTL: ttl,
	}, nil
}

// cachedRecord is the stored envelope around an assessment record.
type cachedRecord struct {
	Record    *audit.Record `json:"record"`
	CachedAt  time.Time     `json:"cached_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Get retrieves a cached record by ID. The second return value reports a
// cache hit. Corrupted, expired and unreconstitutable entries are dropped
// and reported as misses.
func (c *RecordCache) Get(ctx context.Context, id string) (*audit.Record, bool, error) {
	key := c.key(id)

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached record: %w", err)
	}

	var cached cachedRecord
	if err := json.Unmarshal([]byte(val), &cached); err != nil || cached.Record == nil {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if _, err := cached.Record.Reconstitute(); err != nil {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Record, true, nil
}

// Set caches an assessment record under its ID with the default TTL.
func (c *RecordCache) Set(ctx context.Context, record *audit.Record) error {
	cached := cachedRecord{
		Record:    record,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(c.defaultTTL),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal cached record: %w", err)
	}

	return c.redis.Set(ctx, c.key(record.ID), jsonData, c.defaultTTL).Err()
}

// Invalidate removes a cached record by ID.
func (c *RecordCache) Invalidate(ctx context.Context, id string) error {
	return c.redis.Del(ctx, c.key(id)).Err()
}

// Close closes the underlying Redis client.
func (c *RecordCache) Close() error {
	return c.redis.Close()
}

func (c *RecordCache) key(id string) string {
	return "assessment:" + id
}
