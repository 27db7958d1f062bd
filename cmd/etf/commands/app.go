package commands

import (
	"fmt"

	"github.com/2Arong/BITA-Active-ETF/internal/backtest"
	"github.com/2Arong/BITA-Active-ETF/internal/calendar"
	"github.com/2Arong/BITA-Active-ETF/internal/external/naver"
	"github.com/2Arong/BITA-Active-ETF/internal/oracle"
	"github.com/2Arong/BITA-Active-ETF/internal/selection"
	"github.com/2Arong/BITA-Active-ETF/internal/weighting"
	"github.com/2Arong/BITA-Active-ETF/pkg/config"
	"github.com/2Arong/BITA-Active-ETF/pkg/database"
	"github.com/2Arong/BITA-Active-ETF/pkg/httputil"
	"github.com/2Arong/BITA-Active-ETF/pkg/logger"
	"github.com/2Arong/BITA-Active-ETF/pkg/redis"
)

// app holds the wired dependencies shared by every command
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	redis    *redis.Client
	db       *database.DB // PRICE_SOURCE=postgres 또는 --source postgres 일 때만
	cache    *redis.Cache
	naver    *naver.Client
	calendar *calendar.Calendar
	oracle   oracle.Oracle
	source   selection.Source
	service  *backtest.Service
}

// newApp loads config and wires the backtest service.
// needDB 이면 설정과 무관하게 DB 연결
func newApp(needDB bool) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if signalFlag != "" {
		cfg.Backtest.Signal = signalFlag
	}
	if methodFlag != "" {
		cfg.Backtest.PriceMethod = methodFlag
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	a := &app{cfg: cfg, log: logger.New(cfg)}

	// 3. Redis (비활성이면 프로세스 메모리 캐시)
	a.redis, err = redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.cache = redis.NewCache(a.redis, "bita")

	// 4. Database (필요할 때만)
	if needDB || cfg.Backtest.PriceSource == "postgres" || sourceFlag == "postgres" {
		if cfg.Database.URL == "" {
			a.close()
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		a.db, err = database.New(cfg)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
	}

	// 5. External clients
	limiter := redis.NewRateLimiter(a.redis, "bita")
	httpClient := httputil.New(cfg, a.log).WithRateLimiter(limiter, redis.NaverRateLimit)
	a.naver = naver.NewClient(cfg, httpClient, a.log)

	// 6. Calendar, prices, selection source
	a.calendar, err = calendar.LoadOrDefault(cfg.Backtest.CalendarFile)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("load calendar: %w", err)
	}

	var prices oracle.Oracle = oracle.NewNaverOracle(a.naver)
	if cfg.Backtest.PriceSource == "postgres" {
		prices = oracle.NewPostgresOracle(a.db.Pool)
	}
	a.oracle = oracle.NewCachedOracle(prices, a.cache, cfg.Backtest.PriceCacheTTL, a.log)

	a.source, err = a.selectionSource()
	if err != nil {
		a.close()
		return nil, err
	}

	// 7. Backtest service
	defaults, err := backtestDefaults(cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	engine := backtest.NewEngine(a.calendar, a.oracle, backtest.Config{
		RiskFreeAnnual:    cfg.Backtest.RiskFreeAnnual,
		PeriodsPerYear:    cfg.Backtest.PeriodsPerYear,
		Workers:           cfg.Backtest.Workers,
		RequestsPerSecond: cfg.Backtest.RequestsPerSec,
	}, a.log)

	a.service = backtest.NewService(
		engine,
		a.source,
		backtest.NewResultCache(a.cache, cfg.Backtest.CacheTTL),
		backtest.NewNaverSectorLookup(a.naver, a.cache, redis.TTLDaily*7, a.log),
		defaults,
		a.log,
	)

	return a, nil
}

func (a *app) selectionSource() (selection.Source, error) {
	switch sourceFlag {
	case "", "csv":
		return selection.NewCSVSource(a.cfg.Backtest.SourceDir(), a.cfg.Backtest.Signal), nil
	case "postgres":
		return selection.NewPostgresSource(a.db.Pool, a.cfg.Backtest.Signal), nil
	default:
		return nil, fmt.Errorf("unknown --source %q (csv|postgres)", sourceFlag)
	}
}

// backtestDefaults parses the configured method, schemes and benchmarks
func backtestDefaults(cfg *config.Config) (backtest.Defaults, error) {
	method, err := oracle.ParsePriceMethod(cfg.Backtest.PriceMethod)
	if err != nil {
		return backtest.Defaults{}, fmt.Errorf("%w: %w", backtest.ErrInvalidConfiguration, err)
	}

	schemes, err := weighting.Parse(cfg.Backtest.Schemes)
	if err != nil {
		return backtest.Defaults{}, fmt.Errorf("%w: %w", backtest.ErrInvalidConfiguration, err)
	}

	benchmarks, err := backtest.ParseBenchmarks(cfg.Backtest.Benchmarks)
	if err != nil {
		return backtest.Defaults{}, err
	}

	return backtest.Defaults{PriceMethod: method, Schemes: schemes, Benchmarks: benchmarks}, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
