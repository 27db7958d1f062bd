package backtest

import (
	"time"

	"github.com/2Arong/BITA-Active-ETF/internal/metrics"
	"github.com/2Arong/BITA-Active-ETF/internal/oracle"
	"github.com/2Arong/BITA-Active-ETF/internal/selection"
)

// Benchmark is a market index or ETF compared against
type Benchmark struct {
	ID   string `json:"id"`   // KS11, KS200, 441800
	Name string `json:"name"` // KOSPI
}

// SchemeInfo describes a weighting scheme used in a run
type SchemeInfo struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// PeriodResult is one (selection group → investment group) row
type PeriodResult struct {
	SelectionGroup   string             `json:"selection_group"`
	InvestGroup      string             `json:"invest_group"`
	Start            time.Time          `json:"start"`
	End              time.Time          `json:"end"`
	Holdings         int                `json:"holdings"`
	Cash             bool               `json:"cash,omitempty"` // 선정 종목 없음 → 현금 보유
	SchemeReturns    map[string]float64 `json:"scheme_returns"`
	BenchmarkReturns map[string]float64 `json:"benchmark_returns"`
}

// Holding is one security of an investment period
type Holding struct {
	Ticker        string             `json:"ticker"`
	Name          string             `json:"name"`
	Score         float64            `json:"score"`
	Remark        selection.Remark   `json:"remark"`
	RemarkText    string             `json:"remark_text"`
	Return        float64            `json:"return"`
	Weights       map[string]float64 `json:"weights"`
	Contributions map[string]float64 `json:"contributions"`
	Warning       string             `json:"warning,omitempty"`
}

// HoldingsDetail is the per-security breakdown of an investment period
type HoldingsDetail struct {
	SelectionGroup string    `json:"selection_group"`
	InvestGroup    string    `json:"invest_group"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Entries        []Holding `json:"entries"`
}

// Result is everything a run produced. 호출자는 읽기 전용으로 사용
type Result struct {
	Source             string                     `json:"source"`
	PriceMethod        oracle.PriceMethod         `json:"price_method"`
	Schemes            []SchemeInfo               `json:"schemes"`
	Benchmarks         []Benchmark                `json:"benchmarks"`
	Periods            []PeriodResult             `json:"periods"`
	Cumulative         map[string][]float64       `json:"cumulative"`
	Summaries          map[string]metrics.Summary `json:"summaries"`
	BenchmarkSummaries map[string]metrics.Summary `json:"benchmark_summaries"`
	Holdings           map[string]*HoldingsDetail `json:"holdings"` // key: 투자 그룹 id
	Warnings           []oracle.Warning           `json:"warnings"`
	StartedAt          time.Time                  `json:"started_at"`
	Duration           time.Duration              `json:"duration"`
}

// PrimaryBenchmark returns the benchmark summaries are measured against
func (r *Result) PrimaryBenchmark() Benchmark {
	if len(r.Benchmarks) == 0 {
		return Benchmark{}
	}
	return r.Benchmarks[0]
}

// Series returns the per-period returns of a scheme name or benchmark id
func (r *Result) Series(key string) []float64 {
	out := make([]float64, 0, len(r.Periods))
	for _, p := range r.Periods {
		if v, ok := p.SchemeReturns[key]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, p.BenchmarkReturns[key])
	}
	return out
}

// Keys returns scheme names followed by benchmark ids
func (r *Result) Keys() []string {
	keys := make([]string, 0, len(r.Schemes)+len(r.Benchmarks))
	for _, s := range r.Schemes {
		keys = append(keys, s.Name)
	}
	for _, b := range r.Benchmarks {
		keys = append(keys, b.ID)
	}
	return keys
}

// Alpha returns cumulative(scheme) - cumulative(primary benchmark) per period
func (r *Result) Alpha(scheme string) []float64 {
	s := metrics.Cumulative(r.Series(scheme))
	b := metrics.Cumulative(r.Series(r.PrimaryBenchmark().ID))

	out := make([]float64, len(s))
	for i := range s {
		out[i] = s[i] - b[i]
	}
	return out
}

// Window is a trailing horizon of the dashboard tabs
type Window struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Periods int    `json:"periods"` // 0 = 전체
}

// DefaultWindows: 1년(전체), 6개월(13기간), 3개월(6기간), 1개월(2기간)
var DefaultWindows = []Window{
	{Key: "1y", Label: "1년", Periods: 0},
	{Key: "6m", Label: "6개월", Periods: 13},
	{Key: "3m", Label: "3개월", Periods: 6},
	{Key: "1m", Label: "1개월", Periods: 2},
}

// WindowReturns returns the trailing compounded return of every series over w
func (r *Result) WindowReturns(w Window) map[string]float64 {
	out := make(map[string]float64, len(r.Schemes)+len(r.Benchmarks))
	for _, key := range r.Keys() {
		out[key] = metrics.WindowReturn(r.Series(key), w.Periods)
	}
	return out
}

// LatestHoldings returns the detail of the last invested period
func (r *Result) LatestHoldings() *HoldingsDetail {
	if len(r.Periods) == 0 {
		return nil
	}
	return r.Holdings[r.Periods[len(r.Periods)-1].InvestGroup]
}
