package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-scoring-server/internal/audit"
	"github.com/clinical-scoring-server/internal/domain"
	"github.com/clinical-scoring-server/internal/scoring"
)

// getTestCache returns a cache backed by a live Redis instance.
// Skip test if TEST_REDIS_URL is not set.
func getTestCache(t *testing.T) *RecordCache {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis tests")
	}

	cache, err := NewRecordCache(domain.CacheConfig{
		RedisURL:    redisURL,
		DefaultTTL:  time.Minute,
		PoolSize:    2,
		PoolTimeout: 4 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func testRecord(t *testing.T) *audit.Record {
	t.Helper()
	result, err := scoring.FromIndicators("respiratory", map[string]float64{
		"apneaHypopneaIndex":      12,
		"oxygenDesaturationIndex": 8,
		"oxygenSaturationNadir":   88,
		"oxygenSaturationAverage": 94,
		"sleepEfficiency":         85,
		"epworthScore":            6,
	}, -1)
	require.NoError(t, err)

	record, err := audit.NewRecord(result)
	require.NoError(t, err)
	return record
}

func TestRecordCacheRoundTrip(t *testing.T) {
	cache := getTestCache(t)
	ctx := context.Background()
	record := testRecord(t)

	require.NoError(t, cache.Set(ctx, record))

	cached, hit, err := cache.Get(ctx, record.ID)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, record.ID, cached.ID)
	assert.JSONEq(t, string(record.Result), string(cached.Result))

	restored, err := cached.Reconstitute()
	require.NoError(t, err)
	original, err := record.Reconstitute()
	require.NoError(t, err)
	assert.True(t, original.Equals(restored))
}

func TestRecordCacheMiss(t *testing.T) {
	cache := getTestCache(t)

	_, hit, err := cache.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRecordCacheInvalidate(t *testing.T) {
	cache := getTestCache(t)
	ctx := context.Background()
	record := testRecord(t)

	require.NoError(t, cache.Set(ctx, record))
	require.NoError(t, cache.Invalidate(ctx, record.ID))

	_, hit, err := cache.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRecordCacheKeyNamespace(t *testing.T) {
	c := &RecordCache{}
	assert.Equal(t, "assessment:abc123", c.key("abc123"))
}

func TestNewRecordCacheRejectsBadURL(t *testing.T) {
	_, err := NewRecordCache(domain.CacheConfig{RedisURL: "not-a-url"})
	assert.Error(t, err)
}
