package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/metrics"
	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/platform/sentinel"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/requestcontext"
)

const (
	redisStoreLabel = "redis"
	cacheKeyPrefix  = "geocode:"

	fieldPayload   = "payload"
	fieldHitCount  = "hit_count"
	fieldCreatedAt = "created_at"
	fieldLastHitAt = "last_hit_at"
)

// RedisCache stores each entry as a hash: the JSON payload plus hit_count,
// created_at and last_hit_at so hits are a single HINCRBY.
type RedisCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewRedisCache constructs a Redis-backed geocode cache. A zero ttl keeps
// entries until they are removed externally.
func NewRedisCache(client *redis.Client, ttl time.Duration, metrics *metrics.Metrics) *RedisCache {
	return &RedisCache{
		client:  client,
		ttl:     ttl,
		metrics: metrics,
	}
}

type redisPayload struct {
	SearchTerms models.SearchTerms `json:"search_terms"`
	Result      models.Place       `json:"result"`
	Source      models.Source      `json:"source"`
}

func (c *RedisCache) FindByKey(ctx context.Context, key string) (*models.CacheEntry, error) {
	start := time.Now()
	defer c.metrics.ObserveCacheLookup(redisStoreLabel, start)

	fields, err := c.client.HGetAll(ctx, cacheKeyPrefix+key).Result()
	if err != nil {
		c.metrics.IncrementCacheLookup(redisStoreLabel, "error")
		return nil, fmt.Errorf("find geocode cache: %w", err)
	}
	if len(fields) == 0 || fields[fieldPayload] == "" {
		c.metrics.IncrementCacheLookup(redisStoreLabel, "miss")
		return nil, sentinel.ErrNotFound
	}

	var payload redisPayload
	if err := json.Unmarshal([]byte(fields[fieldPayload]), &payload); err != nil {
		c.metrics.IncrementCacheLookup(redisStoreLabel, "error")
		return nil, fmt.Errorf("decode geocode cache entry: %w", err)
	}

	entry := &models.CacheEntry{
		Key:         key,
		SearchTerms: payload.SearchTerms,
		Result:      payload.Result,
		Source:      payload.Source,
	}
	if n, err := strconv.Atoi(fields[fieldHitCount]); err == nil {
		entry.HitCount = n
	}
	if ts, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64); err == nil {
		entry.CreatedAt = time.UnixMilli(ts).UTC()
	}
	if ts, err := strconv.ParseInt(fields[fieldLastHitAt], 10, 64); err == nil {
		t := time.UnixMilli(ts).UTC()
		entry.LastHitAt = &t
	}
	c.metrics.IncrementCacheLookup(redisStoreLabel, "hit")
	return entry, nil
}

func (c *RedisCache) RecordHit(ctx context.Context, key string) error {
	redisKey := cacheKeyPrefix + key
	exists, err := c.client.Exists(ctx, redisKey).Result()
	if err != nil {
		return fmt.Errorf("record geocode cache hit: %w", err)
	}
	if exists == 0 {
		return sentinel.ErrNotFound
	}

	pipe := c.client.TxPipeline()
	pipe.HIncrBy(ctx, redisKey, fieldHitCount, 1)
	pipe.HSet(ctx, redisKey, fieldLastHitAt, requestcontext.Now(ctx).UnixMilli())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record geocode cache hit: %w", err)
	}
	return nil
}

// Upsert writes the payload; hit_count and created_at are only set when the
// entry is new.
func (c *RedisCache) Upsert(ctx context.Context, entry *models.CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry is required")
	}
	data, err := json.Marshal(redisPayload{
		SearchTerms: entry.SearchTerms,
		Result:      entry.Result,
		Source:      entry.Source,
	})
	if err != nil {
		return fmt.Errorf("encode geocode cache entry: %w", err)
	}

	redisKey := cacheKeyPrefix + entry.Key
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, redisKey, fieldPayload, data)
	pipe.HSetNX(ctx, redisKey, fieldHitCount, 0)
	pipe.HSetNX(ctx, redisKey, fieldCreatedAt, requestcontext.Now(ctx).UnixMilli())
	if c.ttl > 0 {
		pipe.Expire(ctx, redisKey, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upsert geocode cache: %w", err)
	}
	return nil
}
