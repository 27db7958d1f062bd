package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/2Arong/BITA-Active-ETF/internal/oracle"
	"github.com/2Arong/BITA-Active-ETF/pkg/redis"
)

// ResultCache stores complete backtest results per (source, price method)
type ResultCache struct {
	cache *redis.Cache
	ttl   time.Duration
}

// NewResultCache creates a result cache. ttl <= 0 이면 만료 없음
func NewResultCache(cache *redis.Cache, ttl time.Duration) *ResultCache {
	return &ResultCache{cache: cache, ttl: ttl}
}

// Get returns a cached result, found=false on miss
func (c *ResultCache) Get(ctx context.Context, source string, method oracle.PriceMethod) (*Result, bool, error) {
	var result Result
	found, err := c.cache.Get(ctx, redis.BacktestKey(source, string(method)), &result)
	if err != nil {
		return nil, false, fmt.Errorf("get cached backtest: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return &result, true, nil
}

// Set stores a result under its own source and price method
func (c *ResultCache) Set(ctx context.Context, result *Result) error {
	key := redis.BacktestKey(result.Source, string(result.PriceMethod))
	if err := c.cache.Set(ctx, key, result, c.ttl); err != nil {
		return fmt.Errorf("cache backtest: %w", err)
	}
	return nil
}

// Invalidate drops a cached result
func (c *ResultCache) Invalidate(ctx context.Context, source string, method oracle.PriceMethod) error {
	return c.cache.Delete(ctx, redis.BacktestKey(source, string(method)))
}
