package oracle

import (
	"context"
	"time"

	"github.com/2Arong/BITA-Active-ETF/pkg/logger"
	"github.com/2Arong/BITA-Active-ETF/pkg/redis"
)

// CachedOracle stores fetched series in the cache for ttl.
// 빈 시계열도 캐시 (없는 종목 반복 조회 방지), 에러는 캐시하지 않음
type CachedOracle struct {
	next   Oracle
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedOracle wraps next with a cache
func NewCachedOracle(next Oracle, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *CachedOracle {
	return &CachedOracle{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithField("module", "price_cache"),
	}
}

// PriceSeries implements Oracle
func (o *CachedOracle) PriceSeries(ctx context.Context, id string, start, end time.Time) ([]Bar, error) {
	key := redis.PriceSeriesKey(id, start.Format("2006-01-02"), end.Format("2006-01-02"))

	var bars []Bar
	found, err := o.cache.Get(ctx, key, &bars)
	if err != nil {
		o.logger.WithError(err).WithField("key", key).Warn("price cache read failed")
	}
	if found {
		return bars, nil
	}

	bars, err = o.next.PriceSeries(ctx, id, start, end)
	if err != nil {
		return nil, err
	}
	if bars == nil {
		bars = []Bar{}
	}

	if err := o.cache.Set(ctx, key, bars, o.ttl); err != nil {
		o.logger.WithError(err).WithField("key", key).Warn("price cache write failed")
	}
	return bars, nil
}
