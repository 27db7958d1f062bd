package backtest

import (
	"context"
	"sort"
	"time"

	"github.com/2Arong/BITA-Active-ETF/internal/external/naver"
	"github.com/2Arong/BITA-Active-ETF/pkg/logger"
	"github.com/2Arong/BITA-Active-ETF/pkg/redis"
)

// SectorLookup maps a stock code to its 업종
type SectorLookup interface {
	Sector(ctx context.Context, code string) (string, error)
}

// SectorWeight is the summed weight of one sector in a period's holdings
type SectorWeight struct {
	Sector string   `json:"sector"`
	Weight float64  `json:"weight"`
	Names  []string `json:"names"`
}

// SectorExposure groups the holdings of detail by sector under one scheme's weights.
// 비중 내림차순, top > 0 이면 상위 top 개만. 조회 실패 종목은 "기타"
func SectorExposure(ctx context.Context, lookup SectorLookup, detail *HoldingsDetail, scheme string, top int) ([]SectorWeight, error) {
	if detail == nil {
		return []SectorWeight{}, nil
	}

	bySector := make(map[string]*SectorWeight)
	for _, h := range detail.Entries {
		w, ok := h.Weights[scheme]
		if !ok || w == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sector, err := lookup.Sector(ctx, h.Ticker)
		if err != nil || sector == "" {
			sector = naver.UnknownSector
		}

		sw, ok := bySector[sector]
		if !ok {
			sw = &SectorWeight{Sector: sector}
			bySector[sector] = sw
		}
		sw.Weight += w
		sw.Names = append(sw.Names, h.Name)
	}

	out := make([]SectorWeight, 0, len(bySector))
	for _, sw := range bySector {
		out = append(out, *sw)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Sector < out[j].Sector
	})

	if top > 0 && len(out) > top {
		out = out[:top]
	}
	return out, nil
}

// NaverSectorLookup reads 업종 from Naver with a cache in front
type NaverSectorLookup struct {
	client *naver.Client
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewNaverSectorLookup creates a cached Naver sector lookup
func NewNaverSectorLookup(client *naver.Client, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *NaverSectorLookup {
	return &NaverSectorLookup{
		client: client,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithField("module", "sector"),
	}
}

// Sector implements SectorLookup
func (l *NaverSectorLookup) Sector(ctx context.Context, code string) (string, error) {
	key := redis.SectorKey(code)

	var sector string
	found, err := l.cache.Get(ctx, key, &sector)
	if err != nil {
		l.logger.WithError(err).WithField("code", code).Warn("sector cache read failed")
	}
	if found {
		return sector, nil
	}

	sector, err = l.client.FetchSector(ctx, code)
	if err != nil {
		return "", err
	}

	if err := l.cache.Set(ctx, key, sector, l.ttl); err != nil {
		l.logger.WithError(err).WithField("code", code).Warn("sector cache write failed")
	}
	return sector, nil
}
