// Package pricecache provides a Redis-backed caching decorator for
// ports.PriceOracle. Spot prices are cached with a short TTL; history is
// always fetched from the wrapped oracle.
package pricecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/metrics"
	"papertrade/internal/ports"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

const keyPrefix = "papertrade:price:"

// Config holds configuration for the Redis price cache.
type Config struct {
	Client  *redis.Client
	TTL     time.Duration
	Logger  ports.Logger
	Metrics *metrics.Metrics
}

// Cache wraps a PriceOracle and serves CurrentPrice from Redis when a fresh
// entry exists. Cache failures degrade to the wrapped oracle rather than
// failing the call.
type Cache struct {
	next    ports.PriceOracle
	rdb     *redis.Client
	ttl     time.Duration
	logger  ports.Logger
	metrics *metrics.Metrics
}

// New creates a caching decorator around next.
func New(next ports.PriceOracle, cfg Config) (*Cache, error) {
	if next == nil {
		return nil, fmt.Errorf("wrapped oracle is required for price cache")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("redis client is required for price cache")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for price cache")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return &Cache{
		next:    next,
		rdb:     cfg.Client,
		ttl:     cfg.TTL,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}, nil
}

// CurrentPrice implements ports.PriceOracle.
func (c *Cache) CurrentPrice(ctx context.Context, asset string) (decimal.Decimal, error) {
	key := keyPrefix + asset

	cached, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		price, parseErr := decimal.NewFromString(cached)
		if parseErr == nil {
			if c.metrics != nil {
				c.metrics.PriceCacheHits.Inc()
			}
			return price, nil
		}
		c.logger.Warn(ctx, "discarding unparsable cached price", map[string]interface{}{"asset": asset, "value": cached})
	case errors.Is(err, redis.Nil):
		// cache miss
	default:
		c.logger.Warn(ctx, "price cache read failed", map[string]interface{}{"asset": asset, "error": err.Error()})
	}
	if c.metrics != nil {
		c.metrics.PriceCacheMiss.Inc()
	}

	price, err := c.next.CurrentPrice(ctx, asset)
	if err != nil {
		return decimal.Zero, err
	}

	if setErr := c.rdb.Set(ctx, key, price.String(), c.ttl).Err(); setErr != nil {
		c.logger.Warn(ctx, "price cache write failed", map[string]interface{}{"asset": asset, "error": setErr.Error()})
	}
	return price, nil
}

// History implements ports.PriceOracle. Historical candles are immutable but
// large, so they bypass the cache.
func (c *Cache) History(ctx context.Context, asset string, rangeDays int) ([]domain.PricePoint, error) {
	return c.next.History(ctx, asset, rangeDays)
}
