package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2Arong/BITA-Active-ETF/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "test")

	// When Redis is disabled, all requests should be allowed
	allowed, remaining, err := limiter.Allow(context.Background(), NaverRateLimit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, NaverRateLimit.Limit, remaining)
	assert.NoError(t, limiter.Wait(context.Background(), NaverRateLimit))
}

func TestCache_LocalFallback(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(Disabled(), "test")

	type payload struct {
		Code  string
		Close float64
	}

	var got payload
	found, err := cache.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, "k", payload{Code: "005930", Close: 72500}, time.Minute))

	found, err = cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Code: "005930", Close: 72500}, got)

	require.NoError(t, cache.Delete(ctx, "k"))
	found, err = cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_LocalExpiry(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(Disabled(), "test")

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(ctx, "k", 1, time.Hour))

	var v int
	found, _ := cache.Get(ctx, "k", &v)
	assert.True(t, found)

	now = now.Add(time.Hour)
	found, _ = cache.Get(ctx, "k", &v)
	assert.False(t, found, "entry must expire once the TTL has elapsed")
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"PriceSeriesKey", PriceSeriesKey("005930", "2025-01-16", "2025-02-04"), "price:005930:2025-01-16:2025-02-04"},
		{"BacktestKey", BacktestKey("외국인단독", "close"), "backtest:외국인단독:close"},
		{"SectorKey", SectorKey("005930"), "sector:005930"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}
