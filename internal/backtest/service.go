package backtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/2Arong/BITA-Active-ETF/internal/calendar"
	"github.com/2Arong/BITA-Active-ETF/internal/oracle"
	"github.com/2Arong/BITA-Active-ETF/internal/selection"
	"github.com/2Arong/BITA-Active-ETF/internal/weighting"
	"github.com/2Arong/BITA-Active-ETF/pkg/logger"
	"github.com/2Arong/BITA-Active-ETF/pkg/redis"
)

var (
	// ErrHoldingsNotFound: 해당 투자 그룹이 결과에 없음
	ErrHoldingsNotFound = errors.New("holdings not found")
	// ErrSectorsUnavailable: 업종 조회기가 설정되지 않음
	ErrSectorsUnavailable = errors.New("sector lookup not configured")
)

// LatestGroup selects the last invested period in Holdings/Sectors
const LatestGroup = "latest"

// sharedRunTimeout bounds a cache-miss run shared by concurrent Result callers
const sharedRunTimeout = 10 * time.Minute

// Defaults are applied when a caller leaves a request field empty
type Defaults struct {
	PriceMethod oracle.PriceMethod
	Schemes     []weighting.Scheme
	Benchmarks  []Benchmark
}

// Service wraps the engine with result caching for the API, scheduler and CLI.
// 같은 (source, method) 의 동시 실행은 하나로 합침
type Service struct {
	engine   *Engine
	source   selection.Source
	cache    *ResultCache
	sectors  SectorLookup
	defaults Defaults
	flight   singleflight.Group
	logger   *logger.Logger
}

// NewService creates a backtest service. sectors 는 nil 가능
func NewService(engine *Engine, source selection.Source, cache *ResultCache, sectors SectorLookup, defaults Defaults, log *logger.Logger) *Service {
	return &Service{
		engine:   engine,
		source:   source,
		cache:    cache,
		sectors:  sectors,
		defaults: defaults,
		logger:   log.WithField("module", "backtest_service"),
	}
}

// Defaults returns the service defaults
func (s *Service) Defaults() Defaults {
	return s.defaults
}

// Calendar returns the calendar the engine runs over
func (s *Service) Calendar() *calendar.Calendar {
	return s.engine.Calendar()
}

// Source returns the selection source name
func (s *Service) Source() string {
	return s.source.Name()
}

func (s *Service) request(method string) (Request, error) {
	req := Request{
		Source:      s.source,
		PriceMethod: s.defaults.PriceMethod,
		Schemes:     s.defaults.Schemes,
		Benchmarks:  s.defaults.Benchmarks,
	}
	if method != "" {
		m, err := oracle.ParsePriceMethod(method)
		if err != nil {
			return Request{}, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
		}
		req.PriceMethod = m
	}
	return req, req.Validate()
}

// Result returns the cached result of method ("" = 기본값), running the backtest on a miss
func (s *Service) Result(ctx context.Context, method string) (*Result, error) {
	req, err := s.request(method)
	if err != nil {
		return nil, err
	}

	cached, found, err := s.cache.Get(ctx, s.source.Name(), req.PriceMethod)
	if err != nil {
		s.logger.WithError(err).Warn("backtest cache read failed")
	}
	if found {
		return cached, nil
	}

	// 공유 실행은 호출자 취소와 분리, sharedRunTimeout 으로만 제한
	key := redis.BacktestKey(s.source.Name(), string(req.PriceMethod))
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedRunTimeout)
		defer cancel()
		return s.run(runCtx, req, nil)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Result), nil
	}
}

// Refresh drops the cached result and runs again, reporting progress
func (s *Service) Refresh(ctx context.Context, method string, progress ProgressFunc) (*Result, error) {
	req, err := s.request(method)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, s.source.Name(), req.PriceMethod); err != nil {
		s.logger.WithError(err).Warn("backtest cache invalidate failed")
	}
	return s.run(ctx, req, progress)
}

func (s *Service) run(ctx context.Context, req Request, progress ProgressFunc) (*Result, error) {
	result, err := s.engine.Run(ctx, req, progress)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, result); err != nil {
		s.logger.WithError(err).Warn("backtest cache write failed")
	}
	return result, nil
}

// Holdings returns the per-security detail of an investment group ("latest" = 마지막 기간)
func (s *Service) Holdings(ctx context.Context, method, group string) (*HoldingsDetail, error) {
	result, err := s.Result(ctx, method)
	if err != nil {
		return nil, err
	}

	var detail *HoldingsDetail
	if group == "" || group == LatestGroup {
		detail = result.LatestHoldings()
	} else {
		detail = result.Holdings[group]
	}
	if detail == nil {
		return nil, fmt.Errorf("%w: %q", ErrHoldingsNotFound, group)
	}
	return detail, nil
}

// Sectors returns the top sector weights of a group's holdings under scheme ("" = 첫 번째 방식)
func (s *Service) Sectors(ctx context.Context, method, group, scheme string, top int) ([]SectorWeight, error) {
	if s.sectors == nil {
		return nil, ErrSectorsUnavailable
	}

	detail, err := s.Holdings(ctx, method, group)
	if err != nil {
		return nil, err
	}

	if scheme == "" && len(s.defaults.Schemes) > 0 {
		scheme = s.defaults.Schemes[0].Name()
	}
	return SectorExposure(ctx, s.sectors, detail, scheme, top)
}

// ParseBenchmarks parses "ID:Name" items. 이름이 없으면 ID 를 이름으로 사용
func ParseBenchmarks(specs []string) ([]Benchmark, error) {
	out := make([]Benchmark, 0, len(specs))
	for _, spec := range specs {
		id, name, _ := strings.Cut(spec, ":")
		id, name = strings.TrimSpace(id), strings.TrimSpace(name)
		if id == "" {
			return nil, fmt.Errorf("%w: benchmark %q has no id", ErrInvalidConfiguration, spec)
		}
		if name == "" {
			name = id
		}
		out = append(out, Benchmark{ID: id, Name: name})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty benchmark list", ErrInvalidConfiguration)
	}
	return out, nil
}
