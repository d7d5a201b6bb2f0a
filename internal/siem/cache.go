package siem

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"siem-assistant/internal/common/database"
	"siem-assistant/internal/common/logger"
	"siem-assistant/internal/common/metrics"
)

// ResponseCache is a Redis read-through cache for backend responses. It
// caches results only, never conversation state. A missing or failing
// Redis is degraded to a miss.
type ResponseCache struct {
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewResponseCache(redisClient *database.RedisClient, ttl time.Duration, log logger.Logger) *ResponseCache {
	return &ResponseCache{
		redis:  redisClient,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "siem-cache"}),
	}
}

// Get returns the cached result for the index/query pair, or nil on miss.
func (rc *ResponseCache) Get(ctx context.Context, index string, query map[string]interface{}, size int) (*SearchResult, error) {
	key, err := cacheKey(index, query, size)
	if err != nil {
		return nil, err
	}

	payload, err := rc.redis.Get(ctx, key)
	if err == redis.Nil {
		metrics.CacheHits.WithLabelValues("miss").Inc()
		return nil, nil
	}
	if err != nil {
		metrics.CacheHits.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var result SearchResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		// Entry is unreadable; drop it rather than serve garbage.
		_ = rc.redis.Del(ctx, key)
		metrics.CacheHits.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("cache decode: %w", err)
	}

	metrics.CacheHits.WithLabelValues("hit").Inc()
	rc.logger.Debug("cache hit", map[string]interface{}{"key": key})
	return &result, nil
}

// Set stores the result under the index/query key with the configured TTL.
func (rc *ResponseCache) Set(ctx context.Context, index string, query map[string]interface{}, size int, result *SearchResult) error {
	key, err := cacheKey(index, query, size)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	if err := rc.redis.Set(ctx, key, payload, rc.ttl); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// cacheKey hashes the index, serialized body, and size into a stable key.
// encoding/json sorts map keys, so equal bodies hash equally.
func cacheKey(index string, query map[string]interface{}, size int) (string, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", index, body, size)))
	return fmt.Sprintf("siem:query:%x", sum), nil
}
