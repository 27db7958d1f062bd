package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides JSON caching with a TTL.
// Redis 가 꺼져 있으면 프로세스 내 map 으로 동작 (TTL 동일하게 적용)
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string

	mu    sync.Mutex
	local map[string]localEntry
	now   func() time.Time
}

type localEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
		local:  make(map[string]localEntry),
		now:    time.Now,
	}
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value into dest. found=false on miss or expiry.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, found, err := c.getBytes(ctx, c.fullKey(key))
	if err != nil || !found {
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

func (c *Cache) getBytes(ctx context.Context, fullKey string) ([]byte, bool, error) {
	if c.client.Enabled() {
		data, err := c.client.Redis().Get(ctx, fullKey).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("cache get failed: %w", err)
		}
		return data, true, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.local[fullKey]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(c.local, fullKey)
		return nil, false, nil
	}
	return entry.data, true, nil
}

// Set stores a value in cache with TTL (ttl <= 0 means no expiry)
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	fullKey := c.fullKey(key)
	if c.client.Enabled() {
		if ttl < 0 {
			ttl = 0
		}
		return c.client.Redis().Set(ctx, fullKey, data, ttl).Err()
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.local[fullKey] = localEntry{data: data, expiresAt: expiresAt}
	c.mu.Unlock()
	return nil
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	fullKey := c.fullKey(key)
	if c.client.Enabled() {
		return c.client.Redis().Del(ctx, fullKey).Err()
	}

	c.mu.Lock()
	delete(c.local, fullKey)
	c.mu.Unlock()
	return nil
}

// Predefined TTLs
const (
	TTLHour  = 1 * time.Hour  // 백테스트 결과
	TTLDaily = 24 * time.Hour // 일별 시세
)

// PriceSeriesKey is the cache key of a daily price series
func PriceSeriesKey(code, from, to string) string {
	return fmt.Sprintf("price:%s:%s:%s", code, from, to)
}

// BacktestKey is the cache key of a full backtest result
func BacktestKey(source, priceMethod string) string {
	return fmt.Sprintf("backtest:%s:%s", source, priceMethod)
}

// SectorKey is the cache key of a stock's sector name
func SectorKey(code string) string {
	return fmt.Sprintf("sector:%s", code)
}
