package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// 표준편차가 이 값보다 작으면 변동 없는 시계열로 보고 비율 지표는 0
const minStdDev = 1e-12

// Mean returns the arithmetic mean (0 for an empty series)
func Mean(r []float64) float64 {
	if len(r) == 0 {
		return 0
	}
	return stat.Mean(r, nil)
}

// StdDev returns the sample standard deviation (n-1). 2개 미만이면 0
func StdDev(r []float64) float64 {
	if len(r) < 2 {
		return 0
	}
	sd := stat.StdDev(r, nil)
	if math.IsNaN(sd) {
		return 0
	}
	return sd
}

// Sharpe returns the annualised Sharpe ratio of per-period returns.
// rf_period = (1+rfAnnual)^(1/p) - 1, p 는 연율화 기간 수
func Sharpe(r []float64, rfAnnual float64, p int) float64 {
	if len(r) < 2 || p <= 0 {
		return 0
	}

	rfPeriod := math.Pow(1+rfAnnual, 1/float64(p)) - 1
	excess := make([]float64, len(r))
	for i, x := range r {
		excess[i] = x - rfPeriod
	}
	return annualisedRatio(excess, p)
}

// InformationRatio returns mean(r-b)/std(r-b)*sqrt(p).
// 길이가 다르면 앞쪽 공통 구간만 사용
func InformationRatio(r, b []float64, p int) float64 {
	r, b = align(r, b)
	if len(r) < 2 || p <= 0 {
		return 0
	}

	excess := make([]float64, len(r))
	for i := range r {
		excess[i] = r[i] - b[i]
	}
	return annualisedRatio(excess, p)
}

func annualisedRatio(excess []float64, p int) float64 {
	sd := StdDev(excess)
	if sd < minStdDev {
		return 0
	}
	return finite(Mean(excess) / sd * math.Sqrt(float64(p)))
}

// MaxDrawdown returns the worst peak-to-trough decline of cumprod(1+r).
// 0 이하의 값, 0 은 낙폭 없음
func MaxDrawdown(r []float64) float64 {
	wealth := 1.0
	peak := 1.0
	mdd := 0.0

	for _, x := range r {
		wealth *= 1 + x
		if wealth > peak {
			peak = wealth
		}
		if peak > 0 {
			if dd := (wealth - peak) / peak; dd < mdd {
				mdd = dd
			}
		}
	}
	return finite(mdd)
}

// WinRate returns the fraction of periods with r > b (동률은 패배)
func WinRate(r, b []float64) float64 {
	r, b = align(r, b)
	if len(r) == 0 {
		return 0
	}
	return float64(Wins(r, b)) / float64(len(r))
}

// Wins counts periods with r > b
func Wins(r, b []float64) int {
	r, b = align(r, b)
	wins := 0
	for i := range r {
		if r[i] > b[i] {
			wins++
		}
	}
	return wins
}

// Cumulative returns cumprod(1+r) - 1 for every period
func Cumulative(r []float64) []float64 {
	out := make([]float64, len(r))
	wealth := 1.0
	for i, x := range r {
		wealth *= 1 + x
		out[i] = wealth - 1
	}
	return out
}

// TotalReturn returns the compounded return of the whole series
func TotalReturn(r []float64) float64 {
	wealth := 1.0
	for _, x := range r {
		wealth *= 1 + x
	}
	return wealth - 1
}

// WindowReturn compounds the trailing n periods.
// n <= 0 또는 n >= len(r) 이면 전체 구간
func WindowReturn(r []float64, n int) float64 {
	if n <= 0 || n >= len(r) {
		return TotalReturn(r)
	}
	return TotalReturn(r[len(r)-n:])
}

func align(r, b []float64) ([]float64, []float64) {
	n := len(r)
	if len(b) < n {
		n = len(b)
	}
	return r[:n], b[:n]
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
