package metrics

// Summary is the performance of one return series against a benchmark
type Summary struct {
	Name             string  `json:"name"`
	Benchmark        string  `json:"benchmark"`
	Periods          int     `json:"periods"`
	TotalReturn      float64 `json:"total_return"`
	BenchmarkReturn  float64 `json:"benchmark_return"`
	ExcessReturn     float64 `json:"excess_return"`
	Sharpe           float64 `json:"sharpe"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	InformationRatio float64 `json:"information_ratio"`
	WinRate          float64 `json:"win_rate"`
	Wins             int     `json:"wins"`
	MeanReturn       float64 `json:"mean_return"`
	StdDevReturn     float64 `json:"std_return"`
}

// Options carries the annualisation inputs of Summarize
type Options struct {
	RiskFreeAnnual float64
	// PeriodsPerYear <= 0: 실제 기간 수로 연율화 (trailing)
	PeriodsPerYear int
}

// Summarize computes every metric of r against benchmark b
func Summarize(name, benchmark string, r, b []float64, opts Options) Summary {
	p := opts.PeriodsPerYear
	if p <= 0 {
		p = len(r)
	}

	ar, ab := align(r, b)
	total := TotalReturn(r)
	bench := TotalReturn(ab)

	return Summary{
		Name:             name,
		Benchmark:        benchmark,
		Periods:          len(r),
		TotalReturn:      total,
		BenchmarkReturn:  bench,
		ExcessReturn:     total - bench,
		Sharpe:           Sharpe(r, opts.RiskFreeAnnual, p),
		MaxDrawdown:      MaxDrawdown(r),
		InformationRatio: InformationRatio(ar, ab, p),
		WinRate:          WinRate(ar, ab),
		Wins:             Wins(ar, ab),
		MeanReturn:       Mean(r),
		StdDevReturn:     StdDev(r),
	}
}
