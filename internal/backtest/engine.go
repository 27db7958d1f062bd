package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/2Arong/BITA-Active-ETF/internal/calendar"
	"github.com/2Arong/BITA-Active-ETF/internal/metrics"
	"github.com/2Arong/BITA-Active-ETF/internal/oracle"
	"github.com/2Arong/BITA-Active-ETF/internal/selection"
	"github.com/2Arong/BITA-Active-ETF/internal/weighting"
	"github.com/2Arong/BITA-Active-ETF/pkg/logger"
)

// ErrInvalidConfiguration: 데이터 조회 전에 실패해야 하는 설정 오류
var ErrInvalidConfiguration = errors.New("invalid backtest configuration")

// Config holds the run-independent settings of an engine
type Config struct {
	RiskFreeAnnual    float64 // 연 무위험 수익률 (기본 3%)
	PeriodsPerYear    int     // 0 이면 실제 기간 수로 연율화
	Workers           int     // 기간 내 종목 조회 동시성
	RequestsPerSecond float64 // 가격 API 호출 제한
}

// Request is one backtest invocation
type Request struct {
	Source      selection.Source
	PriceMethod oracle.PriceMethod
	Schemes     []weighting.Scheme
	Benchmarks  []Benchmark // 첫 번째가 기준 벤치마크
}

// Validate checks the request before anything is fetched
func (r Request) Validate() error {
	if r.Source == nil {
		return fmt.Errorf("%w: nil selection source", ErrInvalidConfiguration)
	}
	if !r.PriceMethod.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration,
			fmt.Errorf("%w: %q", oracle.ErrInvalidPriceMethod, r.PriceMethod))
	}
	if len(r.Schemes) == 0 {
		return fmt.Errorf("%w: empty weighting scheme set", ErrInvalidConfiguration)
	}
	if len(r.Benchmarks) == 0 {
		return fmt.Errorf("%w: empty benchmark list", ErrInvalidConfiguration)
	}

	seen := make(map[string]bool)
	for _, s := range r.Schemes {
		if s == nil {
			return fmt.Errorf("%w: nil weighting scheme", ErrInvalidConfiguration)
		}
		if seen[s.Name()] {
			return fmt.Errorf("%w: duplicate scheme %q", ErrInvalidConfiguration, s.Name())
		}
		seen[s.Name()] = true
	}
	for _, b := range r.Benchmarks {
		if b.ID == "" {
			return fmt.Errorf("%w: benchmark without id", ErrInvalidConfiguration)
		}
		if seen[b.ID] {
			return fmt.Errorf("%w: duplicate series key %q", ErrInvalidConfiguration, b.ID)
		}
		seen[b.ID] = true
	}
	return nil
}

// ProgressFunc is called after every processed period
type ProgressFunc func(done, total int, message string)

// Engine runs backtests over a fixed calendar
// ⭐ SSOT: 백테스팅 실행은 여기서만
type Engine struct {
	calendar *calendar.Calendar
	fetcher  *Fetcher
	cfg      Config
	logger   *logger.Logger
}

// NewEngine creates a new backtest engine
func NewEngine(cal *calendar.Calendar, o oracle.Oracle, cfg Config, log *logger.Logger) *Engine {
	log = log.WithField("module", "backtest")
	return &Engine{
		calendar: cal,
		fetcher:  NewFetcher(o, cfg.Workers, cfg.RequestsPerSecond, log),
		cfg:      cfg,
		logger:   log,
	}
}

// Calendar returns the engine's calendar
func (e *Engine) Calendar() *calendar.Calendar {
	return e.calendar
}

type step struct {
	selection string
	invest    calendar.Group
	index     int
}

// Run executes the backtest.
// 종목/기간 단위 데이터 문제는 Warning 으로 남기고 계속, 설정 오류만 실패
func (e *Engine) Run(ctx context.Context, req Request, progress ProgressFunc) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = func(int, int, string) {}
	}

	startedAt := time.Now()
	result := &Result{
		Source:             req.Source.Name(),
		PriceMethod:        req.PriceMethod,
		Benchmarks:         req.Benchmarks,
		Periods:            make([]PeriodResult, 0),
		Cumulative:         make(map[string][]float64),
		Summaries:          make(map[string]metrics.Summary),
		BenchmarkSummaries: make(map[string]metrics.Summary),
		Holdings:           make(map[string]*HoldingsDetail),
		Warnings:           make([]oracle.Warning, 0),
		StartedAt:          startedAt,
	}
	for _, s := range req.Schemes {
		result.Schemes = append(result.Schemes, SchemeInfo{Name: s.Name(), Label: s.Label()})
	}

	groups, err := req.Source.Groups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list selection groups: %w", err)
	}

	steps := e.plan(groups, result)

	e.logger.WithFields(map[string]interface{}{
		"source":       result.Source,
		"price_method": req.PriceMethod,
		"periods":      len(steps),
		"schemes":      len(req.Schemes),
		"benchmarks":   len(req.Benchmarks),
	}).Info("Starting backtest")

	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest cancelled at %s: %w", st.selection, err)
		}

		msg := e.runPeriod(ctx, req, st, result)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest cancelled at %s: %w", st.selection, err)
		}
		progress(i+1, len(steps), msg)
	}

	e.finish(req, result)
	result.Duration = time.Since(startedAt)

	e.logger.WithFields(map[string]interface{}{
		"periods":  len(result.Periods),
		"warnings": len(result.Warnings),
		"duration": result.Duration.String(),
	}).Info("Backtest completed")

	return result, nil
}

// plan keeps groups known to the calendar that have an investment period, in calendar order
func (e *Engine) plan(groups []string, result *Result) []step {
	steps := make([]step, 0, len(groups))
	for _, g := range groups {
		idx := e.calendar.Index(g)
		if idx < 0 {
			result.Warnings = append(result.Warnings, oracle.Warning{
				Code: oracle.WarnUnknownGroup, Group: g, Message: "group not in calendar",
			})
			continue
		}

		invest, ok := e.calendar.InvestPeriodFor(g)
		if !ok {
			e.logger.WithField("group", g).Debug("terminal group has no investment period")
			continue
		}
		steps = append(steps, step{selection: g, invest: invest, index: idx})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].index < steps[j].index })
	return steps
}

// runPeriod processes one selection group and returns the progress message
func (e *Engine) runPeriod(ctx context.Context, req Request, st step, result *Result) string {
	warn := func(w oracle.Warning) {
		if w.Group == "" {
			w.Group = st.invest.ID
		}
		result.Warnings = append(result.Warnings, w)
	}

	list, err := req.Source.Load(ctx, st.selection)
	if err != nil {
		warn(oracle.Warning{Code: oracle.WarnLoadFailed, Group: st.selection, Message: err.Error()})
		e.logger.WithError(err).WithField("group", st.selection).Warn("selection list load failed, period skipped")
		return fmt.Sprintf("%s: load failed", st.selection)
	}

	period := PeriodResult{
		SelectionGroup:   st.selection,
		InvestGroup:      st.invest.ID,
		Start:            st.invest.Start,
		End:              st.invest.End,
		Holdings:         list.Len(),
		SchemeReturns:    make(map[string]float64, len(req.Schemes)),
		BenchmarkReturns: make(map[string]float64, len(req.Benchmarks)),
	}
	detail := &HoldingsDetail{
		SelectionGroup: st.selection,
		InvestGroup:    st.invest.ID,
		Start:          st.invest.Start,
		End:            st.invest.End,
		Entries:        make([]Holding, list.Len()),
	}

	benchIDs := make([]string, len(req.Benchmarks))
	for i, b := range req.Benchmarks {
		benchIDs[i] = b.ID
	}
	benchReturns, benchWarnings := e.fetcher.Returns(ctx, benchIDs, st.invest.Start, st.invest.End, req.PriceMethod)
	for _, w := range benchWarnings {
		warn(w)
	}
	for i, id := range benchIDs {
		period.BenchmarkReturns[id] = benchReturns[i]
	}

	if list.Len() == 0 {
		period.Cash = true
		for _, s := range req.Schemes {
			period.SchemeReturns[s.Name()] = 0
		}
		warn(oracle.Warning{Code: oracle.WarnEmptySelection, Message: "no candidates, period held in cash"})
		e.appendPeriod(result, period, detail)
		return fmt.Sprintf("%s → %s: cash", st.selection, st.invest.ID)
	}

	returns, secWarnings := e.fetcher.Returns(ctx, list.Tickers(), st.invest.Start, st.invest.End, req.PriceMethod)
	warnByID := make(map[string]string, len(secWarnings))
	for _, w := range secWarnings {
		warnByID[w.ID] = string(w.Code)
		warn(w)
	}

	for i, entry := range list.Entries {
		detail.Entries[i] = Holding{
			Ticker:        entry.Ticker,
			Name:          entry.Name,
			Score:         entry.Score,
			Remark:        entry.Remark,
			RemarkText:    entry.RemarkText,
			Return:        returns[i],
			Weights:       make(map[string]float64, len(req.Schemes)),
			Contributions: make(map[string]float64, len(req.Schemes)),
			Warning:       warnByID[entry.Ticker],
		}
	}

	for _, s := range req.Schemes {
		weights, err := s.Weights(list.Entries)
		if err == nil {
			var portfolio float64
			var contributions []float64
			portfolio, contributions, err = Aggregate(returns, weights)
			if err == nil {
				period.SchemeReturns[s.Name()] = portfolio
				for i := range detail.Entries {
					detail.Entries[i].Weights[s.Name()] = weights[i]
					detail.Entries[i].Contributions[s.Name()] = contributions[i]
				}
				continue
			}
		}

		period.SchemeReturns[s.Name()] = 0
		warn(oracle.Warning{Code: oracle.WarnWeightingFailed, ID: s.Name(), Message: err.Error()})
	}

	e.appendPeriod(result, period, detail)
	return fmt.Sprintf("%s → %s: %d종목", st.selection, st.invest.ID, list.Len())
}

func (e *Engine) appendPeriod(result *Result, period PeriodResult, detail *HoldingsDetail) {
	result.Periods = append(result.Periods, period)
	result.Holdings[period.InvestGroup] = detail
}

// finish derives cumulative columns and summaries
func (e *Engine) finish(req Request, result *Result) {
	for _, key := range result.Keys() {
		result.Cumulative[key] = metrics.Cumulative(result.Series(key))
	}

	opts := metrics.Options{
		RiskFreeAnnual: e.cfg.RiskFreeAnnual,
		PeriodsPerYear: e.cfg.PeriodsPerYear,
	}

	primary := result.PrimaryBenchmark()
	b := result.Series(primary.ID)

	for _, s := range req.Schemes {
		result.Summaries[s.Name()] = metrics.Summarize(s.Label(), primary.Name, result.Series(s.Name()), b, opts)
	}
	for _, bm := range req.Benchmarks[1:] {
		result.BenchmarkSummaries[bm.ID] = metrics.Summarize(bm.Name, primary.Name, result.Series(bm.ID), b, opts)
	}
}
