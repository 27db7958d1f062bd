package backtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2Arong/BITA-Active-ETF/internal/calendar"
	"github.com/2Arong/BITA-Active-ETF/internal/oracle"
	"github.com/2Arong/BITA-Active-ETF/internal/selection"
	"github.com/2Arong/BITA-Active-ETF/internal/weighting"
	"github.com/2Arong/BITA-Active-ETF/pkg/logger"
	"github.com/2Arong/BITA-Active-ETF/pkg/redis"
)

// stubOracle returns a two-bar series realising returns[id][start]
type stubOracle struct {
	mu      sync.Mutex
	returns map[string]map[string]float64
	calls   int
}

func newStubOracle() *stubOracle {
	return &stubOracle{returns: make(map[string]map[string]float64)}
}

func (s *stubOracle) set(id string, start time.Time, r float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.returns[id] == nil {
		s.returns[id] = make(map[string]float64)
	}
	s.returns[id][start.Format(calendar.DateLayout)] = r
}

func (s *stubOracle) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubOracle) PriceSeries(ctx context.Context, id string, start, end time.Time) ([]oracle.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	r, ok := s.returns[id][start.Format(calendar.DateLayout)]
	if !ok {
		return nil, nil
	}
	return []oracle.Bar{
		{Date: start, Open: 100, High: 100, Low: 100, Close: 100},
		{Date: end, Open: 100, High: 100, Low: 100, Close: 100 * (1 + r)},
	}, nil
}

var testBenchmarks = []Benchmark{{ID: "KS11", Name: "KOSPI"}, {ID: "KS200", Name: "KOSPI 200"}}

func testSchemes() []weighting.Scheme {
	return []weighting.Scheme{weighting.EqualDuplicateBonus{}, weighting.ScoreProportional{}}
}

func newTestEngine(o oracle.Oracle) *Engine {
	return NewEngine(calendar.Default(), o, Config{RiskFreeAnnual: 0.03, Workers: 2}, logger.NewNop())
}

func investStart(t *testing.T, selectionGroup string) time.Time {
	t.Helper()
	g, ok := calendar.Default().InvestPeriodFor(selectionGroup)
	require.True(t, ok)
	return g.Start
}

func pairList(group string) *selection.List {
	return &selection.List{Group: group, Entries: []selection.Entry{
		selection.NewEntry("000660", "SK하이닉스", 10, "단기상위"),
		selection.NewEntry("5930", "삼성전자", -5, "중복선정 (단기+장기)"),
	}}
}

func request(src selection.Source) Request {
	return Request{
		Source:      src,
		PriceMethod: oracle.MethodClose,
		Schemes:     testSchemes(),
		Benchmarks:  testBenchmarks,
	}
}

func TestEngine_EndToEnd(t *testing.T) {
	o := newStubOracle()
	start := investStart(t, "g1")
	o.set("000660", start, 0.10)
	o.set("005930", start, -0.05)
	o.set("KS11", start, 0.02)
	o.set("KS200", start, 0.01)

	result, err := newTestEngine(o).Run(context.Background(), request(selection.NewMemorySource("test", pairList("g1"))), nil)
	require.NoError(t, err)
	require.Len(t, result.Periods, 1)
	assert.Empty(t, result.Warnings)

	p := result.Periods[0]
	assert.Equal(t, "g1", p.SelectionGroup)
	assert.Equal(t, "g2", p.InvestGroup)
	assert.Equal(t, 2, p.Holdings)
	assert.False(t, p.Cash)

	// 동일가중: 1/3, 2/3 / 점수가중: 1, 0
	assert.InDelta(t, 0.10/3-0.05*2/3, p.SchemeReturns["equal"], 1e-9)
	assert.InDelta(t, 0.10, p.SchemeReturns["score"], 1e-9)
	assert.InDelta(t, 0.02, p.BenchmarkReturns["KS11"], 1e-9)

	detail := result.Holdings["g2"]
	require.NotNil(t, detail)
	require.Len(t, detail.Entries, 2)
	assert.InDelta(t, 1.0/3, detail.Entries[0].Weights["equal"], 1e-12)
	assert.InDelta(t, 2.0/3, detail.Entries[1].Weights["equal"], 1e-12)
	assert.InDelta(t, 1.0, detail.Entries[0].Weights["score"], 1e-12)
	assert.InDelta(t, 0.0, detail.Entries[1].Weights["score"], 1e-12)
	assert.Equal(t, selection.RemarkDuplicate, detail.Entries[1].Remark)
	assert.InDelta(t, 0.10/3, detail.Entries[0].Contributions["equal"], 1e-12)

	assert.Equal(t, detail, result.LatestHoldings())
	assert.Contains(t, result.Summaries, "equal")
	assert.Equal(t, "KOSPI", result.Summaries["equal"].Benchmark)
	assert.Contains(t, result.BenchmarkSummaries, "KS200")
	assert.NotContains(t, result.BenchmarkSummaries, "KS11")
}

func TestEngine_MissingData(t *testing.T) {
	o := newStubOracle()
	start := investStart(t, "g1")
	o.set("000660", start, 0.10)
	o.set("KS11", start, 0.02)
	o.set("KS200", start, 0.01)

	result, err := newTestEngine(o).Run(context.Background(), request(selection.NewMemorySource("test", pairList("g1"))), nil)
	require.NoError(t, err)
	require.Len(t, result.Periods, 1)

	// 데이터 없는 종목은 수익률 0, 비중은 유지
	assert.InDelta(t, 0.10/3, result.Periods[0].SchemeReturns["equal"], 1e-9)

	require.Len(t, result.Warnings, 1)
	w := result.Warnings[0]
	assert.Equal(t, oracle.WarnNoData, w.Code)
	assert.Equal(t, "005930", w.ID)
	assert.Equal(t, "g2", w.Group)
	assert.Equal(t, string(oracle.WarnNoData), result.Holdings["g2"].Entries[1].Warning)
}

func TestEngine_TerminalAndUnknownGroups(t *testing.T) {
	o := newStubOracle()
	src := selection.NewMemorySource("test", pairList("g24"), pairList("g25"), pairList("g99"))

	result, err := newTestEngine(o).Run(context.Background(), request(src), nil)
	require.NoError(t, err)

	require.Len(t, result.Periods, 1, "g25 has no investment period")
	assert.Equal(t, "g24", result.Periods[0].SelectionGroup)
	assert.Equal(t, "g25", result.Periods[0].InvestGroup)

	var unknown []string
	for _, w := range result.Warnings {
		if w.Code == oracle.WarnUnknownGroup {
			unknown = append(unknown, w.Group)
		}
	}
	assert.Equal(t, []string{"g99"}, unknown)
}

func TestEngine_CashPeriod(t *testing.T) {
	o := newStubOracle()
	start := investStart(t, "g3")
	o.set("KS11", start, 0.04)
	o.set("KS200", start, 0.03)

	src := selection.NewMemorySource("test", &selection.List{Group: "g3"})
	result, err := newTestEngine(o).Run(context.Background(), request(src), nil)
	require.NoError(t, err)
	require.Len(t, result.Periods, 1)

	p := result.Periods[0]
	assert.True(t, p.Cash)
	assert.Equal(t, 0.0, p.SchemeReturns["equal"])
	assert.Equal(t, 0.0, p.SchemeReturns["score"])
	assert.InDelta(t, 0.04, p.BenchmarkReturns["KS11"], 1e-9)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, oracle.WarnEmptySelection, result.Warnings[0].Code)
}

func TestEngine_Cumulative(t *testing.T) {
	o := newStubOracle()
	src := selection.NewMemorySource("test")
	for i, r := range []float64{0.05, -0.02, 0.03} {
		g := fmt.Sprintf("g%d", i+1)
		src.Put(&selection.List{Group: g, Entries: []selection.Entry{
			selection.NewEntry("005930", "삼성전자", 1, "장기상위"),
		}})
		start := investStart(t, g)
		o.set("005930", start, r)
		o.set("KS11", start, 0)
		o.set("KS200", start, 0)
	}

	result, err := newTestEngine(o).Run(context.Background(), request(src), nil)
	require.NoError(t, err)
	require.Len(t, result.Periods, 3)

	want := []float64{0.05, 0.029, 0.05987}
	got := result.Cumulative["equal"]
	require.Len(t, got, 3)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 5e-6)
	}
	assert.Equal(t, []float64{0, 0, 0}, result.Cumulative["KS11"])

	alpha := result.Alpha("equal")
	assert.InDelta(t, got[2], alpha[2], 1e-12)

	windows := result.WindowReturns(Window{Key: "1m", Periods: 2})
	assert.InDelta(t, 0.98*1.03-1, windows["equal"], 1e-12)
}

func TestEngine_InvalidConfiguration(t *testing.T) {
	src := selection.NewMemorySource("test", pairList("g1"))

	tests := []struct {
		name   string
		mutate func(r *Request)
	}{
		{"price method", func(r *Request) { r.PriceMethod = "twap" }},
		{"no schemes", func(r *Request) { r.Schemes = nil }},
		{"no benchmarks", func(r *Request) { r.Benchmarks = nil }},
		{"nil source", func(r *Request) { r.Source = nil }},
		{"duplicate scheme", func(r *Request) {
			r.Schemes = []weighting.Scheme{weighting.ScoreProportional{}, weighting.ScoreProportional{}}
		}},
		{"duplicate benchmark", func(r *Request) {
			r.Benchmarks = []Benchmark{{ID: "KS11"}, {ID: "KS11"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newStubOracle()
			req := request(src)
			tt.mutate(&req)

			_, err := newTestEngine(o).Run(context.Background(), req, nil)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.Zero(t, o.callCount(), "no fetch before validation")
		})
	}
}

type failingSource struct {
	*selection.MemorySource
	fail string
}

func (s *failingSource) Load(ctx context.Context, group string) (*selection.List, error) {
	if group == s.fail {
		return nil, errors.New("broken file")
	}
	return s.MemorySource.Load(ctx, group)
}

func TestEngine_LoadFailure(t *testing.T) {
	src := &failingSource{
		MemorySource: selection.NewMemorySource("test", pairList("g1"), pairList("g2")),
		fail:         "g1",
	}

	result, err := newTestEngine(newStubOracle()).Run(context.Background(), request(src), nil)
	require.NoError(t, err)

	require.Len(t, result.Periods, 1)
	assert.Equal(t, "g2", result.Periods[0].SelectionGroup)

	var codes []oracle.WarningCode
	for _, w := range result.Warnings {
		if w.Code == oracle.WarnLoadFailed {
			assert.Equal(t, "g1", w.Group)
		}
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, oracle.WarnLoadFailed)
}

func TestEngine_Progress(t *testing.T) {
	src := selection.NewMemorySource("test", pairList("g1"), pairList("g2"), pairList("g3"))

	var done []int
	_, err := newTestEngine(newStubOracle()).Run(context.Background(), request(src), func(d, total int, msg string) {
		assert.Equal(t, 3, total)
		assert.NotEmpty(t, msg)
		done = append(done, d)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, done)
}

func TestEngine_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(newStubOracle()).Run(ctx, request(selection.NewMemorySource("test", pairList("g1"))), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregate(t *testing.T) {
	portfolio, contributions, err := Aggregate([]float64{0.1, -0.05}, weighting.Vector{0.25, 0.75})
	require.NoError(t, err)
	assert.InDelta(t, 0.025-0.0375, portfolio, 1e-12)
	assert.InDelta(t, 0.025, contributions[0], 1e-12)

	_, _, err = Aggregate([]float64{0.1}, weighting.Vector{0.5, 0.5})
	assert.Error(t, err)
}

func TestFetcher_Dedup(t *testing.T) {
	o := newStubOracle()
	start := investStart(t, "g1")
	o.set("005930", start, 0.1)

	f := NewFetcher(o, 4, 0, logger.NewNop())
	returns, warnings := f.Returns(context.Background(), []string{"005930", "000660", "005930"}, start, start.AddDate(0, 0, 14), oracle.MethodClose)

	assert.Equal(t, 2, o.callCount())
	require.Len(t, returns, 3)
	assert.InDelta(t, 0.1, returns[0], 1e-9)
	assert.Equal(t, 0.0, returns[1])
	assert.InDelta(t, 0.1, returns[2], 1e-9)
	require.Len(t, warnings, 1)
	assert.Equal(t, "000660", warnings[0].ID)
}

func TestParseBenchmarks(t *testing.T) {
	got, err := ParseBenchmarks([]string{"KS11:KOSPI", " 441800 : KoAct 배당성장", "KS200"})
	require.NoError(t, err)
	assert.Equal(t, []Benchmark{
		{ID: "KS11", Name: "KOSPI"},
		{ID: "441800", Name: "KoAct 배당성장"},
		{ID: "KS200", Name: "KS200"},
	}, got)

	_, err = ParseBenchmarks([]string{":KOSPI"})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	_, err = ParseBenchmarks(nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

type stubSectors map[string]string

func (s stubSectors) Sector(ctx context.Context, code string) (string, error) {
	if sector, ok := s[code]; ok {
		return sector, nil
	}
	return "", errors.New("not found")
}

func newTestService(o oracle.Oracle, src selection.Source) *Service {
	return NewService(
		newTestEngine(o),
		src,
		NewResultCache(redis.NewCache(redis.Disabled(), "test"), time.Hour),
		stubSectors{"000660": "반도체"},
		Defaults{PriceMethod: oracle.MethodClose, Schemes: testSchemes(), Benchmarks: testBenchmarks},
		logger.NewNop(),
	)
}

func TestService_ResultIsCached(t *testing.T) {
	o := newStubOracle()
	o.set("000660", investStart(t, "g1"), 0.1)
	svc := newTestService(o, selection.NewMemorySource("test", pairList("g1")))
	ctx := context.Background()

	first, err := svc.Result(ctx, "")
	require.NoError(t, err)
	calls := o.callCount()

	second, err := svc.Result(ctx, "close")
	require.NoError(t, err)
	assert.Equal(t, calls, o.callCount(), "served from cache")
	assert.InDelta(t, first.Periods[0].SchemeReturns["score"], second.Periods[0].SchemeReturns["score"], 1e-12)
	assert.Equal(t, selection.RemarkDuplicate, second.Holdings["g2"].Entries[1].Remark)

	_, err = svc.Refresh(ctx, "", nil)
	require.NoError(t, err)
	assert.Greater(t, o.callCount(), calls)

	_, err = svc.Result(ctx, "twap")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

// gatedOracle holds every fetch until release is closed
type gatedOracle struct {
	next    oracle.Oracle
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (g *gatedOracle) PriceSeries(ctx context.Context, id string, start, end time.Time) ([]oracle.Bar, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.next.PriceSeries(ctx, id, start, end)
}

func TestService_SharedRunIgnoresCallerCancel(t *testing.T) {
	o := newStubOracle()
	o.set("000660", investStart(t, "g1"), 0.1)
	gated := &gatedOracle{next: o, started: make(chan struct{}), release: make(chan struct{})}
	svc := newTestService(gated, selection.NewMemorySource("test", pairList("g1")))

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := svc.Result(ctxA, "")
		errA <- err
	}()
	<-gated.started

	type outcome struct {
		result *Result
		err    error
	}
	outB := make(chan outcome, 1)
	go func() {
		r, err := svc.Result(context.Background(), "")
		outB <- outcome{r, err}
	}()
	time.Sleep(20 * time.Millisecond)

	// 첫 호출자만 취소
	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(gated.release)
	b := <-outB
	require.NoError(t, b.err)
	require.Len(t, b.result.Periods, 1)
	assert.InDelta(t, 0.1/3, b.result.Periods[0].SchemeReturns["equal"], 1e-12)
	for _, w := range b.result.Warnings {
		assert.NotEqual(t, oracle.WarnFetchFailed, w.Code, w.String())
	}
}

func TestService_HoldingsAndSectors(t *testing.T) {
	o := newStubOracle()
	svc := newTestService(o, selection.NewMemorySource("test", pairList("g1"), pairList("g2")))
	ctx := context.Background()

	latest, err := svc.Holdings(ctx, "", LatestGroup)
	require.NoError(t, err)
	assert.Equal(t, "g3", latest.InvestGroup)

	detail, err := svc.Holdings(ctx, "", "g2")
	require.NoError(t, err)
	assert.Equal(t, "g1", detail.SelectionGroup)

	_, err = svc.Holdings(ctx, "", "g1")
	assert.ErrorIs(t, err, ErrHoldingsNotFound)

	sectors, err := svc.Sectors(ctx, "", "g2", "equal", 5)
	require.NoError(t, err)
	require.Len(t, sectors, 2)
	assert.Equal(t, "기타", sectors[0].Sector)
	assert.InDelta(t, 2.0/3, sectors[0].Weight, 1e-12)
	assert.Equal(t, []string{"삼성전자"}, sectors[0].Names)
	assert.Equal(t, "반도체", sectors[1].Sector)

	// 점수가중에서 비중 0 인 종목은 제외
	sectors, err = svc.Sectors(ctx, "", "g2", "score", 1)
	require.NoError(t, err)
	require.Len(t, sectors, 1)
	assert.Equal(t, "반도체", sectors[0].Sector)
	assert.InDelta(t, 1.0, sectors[0].Weight, 1e-12)
}
