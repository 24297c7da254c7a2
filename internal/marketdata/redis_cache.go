package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/trogers1052/earnings-reaction-service/internal/models"
)

// DefaultCacheTTL is how long a fetched window stays in Redis
const DefaultCacheTTL = 24 * time.Hour

// RedisCache caches fetched windows as JSON in Redis. Only windows that end on
// or before the current exchange date are written. Redis failures degrade to a
// pass-through
type RedisCache struct {
	client     *redis.Client
	next       Fetcher
	ttl        time.Duration
	prefix     string
	settlement Settlement
	logger     zerolog.Logger
	metrics    FetchRecorder
}

// CacheOption configures a RedisCache
type CacheOption func(*RedisCache)

// WithCacheSettlement sets the clock and exchange location used to decide
// which windows are final
func WithCacheSettlement(s Settlement) CacheOption {
	return func(c *RedisCache) {
		c.settlement = s
	}
}

// NewRedisCache creates a RedisCache in front of next
func NewRedisCache(client *redis.Client, next Fetcher, ttl time.Duration, logger zerolog.Logger, metrics FetchRecorder, opts ...CacheOption) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &RedisCache{
		client:     client,
		next:       next,
		ttl:        ttl,
		prefix:     "earnings",
		settlement: DefaultSettlement(),
		logger:     logger,
		metrics:    metrics,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) key(symbol string, start, end time.Time) string {
	return fmt.Sprintf("%s:bars:%s:%s:%s", c.prefix, symbol,
		start.Format(models.DateLayout), end.Format(models.DateLayout))
}

// FetchBars implements Fetcher
func (c *RedisCache) FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	key := c.key(symbol, start, end)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var bars []models.PriceBar
		if jsonErr := json.Unmarshal(data, &bars); jsonErr == nil {
			record(c.metrics, "redis", ResultHit)
			return bars, nil
		}
		c.logger.Warn().Str("key", key).Msg("discarding undecodable cached bars")
	case errors.Is(err, redis.Nil):
		record(c.metrics, "redis", ResultMiss)
	default:
		record(c.metrics, "redis", ResultError)
		c.logger.Warn().Err(err).Str("key", key).Msg("redis get failed")
	}

	bars, err := c.next.FetchBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 || end.After(c.settlement.Today()) {
		return bars, nil
	}

	payload, err := json.Marshal(bars)
	if err != nil {
		return bars, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis set failed")
	}
	return bars, nil
}

// Invalidate drops every cached window for symbol
func (c *RedisCache) Invalidate(ctx context.Context, symbol string) error {
	pattern := fmt.Sprintf("%s:bars:%s:*", c.prefix, symbol)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cached bars for %s: %w", symbol, err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Unlink(ctx, keys...).Err()
}
