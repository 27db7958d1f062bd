package backtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/2Arong/BITA-Active-ETF/internal/oracle"
	"github.com/2Arong/BITA-Active-ETF/internal/weighting"
	"github.com/2Arong/BITA-Active-ETF/pkg/logger"
)

// Fetcher computes per-security period returns with a bounded worker pool.
// 같은 코드는 기간당 한 번만 조회하고, 가격 API 호출은 limiter 로 제한
type Fetcher struct {
	oracle  oracle.Oracle
	workers int
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewFetcher creates a fetcher. rps <= 0 은 제한 없음
func NewFetcher(o oracle.Oracle, workers int, rps float64, log *logger.Logger) *Fetcher {
	if workers <= 0 {
		workers = 1
	}

	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	return &Fetcher{
		oracle:  o,
		workers: workers,
		limiter: rate.NewLimiter(limit, workers),
		logger:  log.WithField("module", "fetcher"),
	}
}

type fetchJob struct {
	id string
}

type fetchResult struct {
	id      string
	ret     float64
	warning *oracle.Warning
}

// Returns fetches the period return of every id over [start, end].
// 결과는 ids 와 같은 순서, 실패한 종목은 0 과 Warning
func (f *Fetcher) Returns(ctx context.Context, ids []string, start, end time.Time, method oracle.PriceMethod) ([]float64, []oracle.Warning) {
	distinct := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			distinct = append(distinct, id)
		}
	}

	jobCh := make(chan fetchJob, len(distinct))
	resultCh := make(chan fetchResult, len(distinct))

	workers := f.workers
	if workers > len(distinct) {
		workers = len(distinct)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			f.worker(ctx, workerID, jobCh, resultCh, start, end, method)
		}(i)
	}

	for _, id := range distinct {
		jobCh <- fetchJob{id: id}
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	byID := make(map[string]fetchResult, len(distinct))
	for res := range resultCh {
		byID[res.id] = res
	}

	returns := make([]float64, len(ids))
	var warnings []oracle.Warning
	for i, id := range ids {
		returns[i] = byID[id].ret
	}
	for _, id := range distinct {
		if w := byID[id].warning; w != nil {
			warnings = append(warnings, *w)
		}
	}

	return returns, warnings
}

func (f *Fetcher) worker(ctx context.Context, workerID int, jobCh <-chan fetchJob, resultCh chan<- fetchResult, start, end time.Time, method oracle.PriceMethod) {
	for job := range jobCh {
		if err := f.limiter.Wait(ctx); err != nil {
			resultCh <- fetchResult{
				id:      job.id,
				warning: &oracle.Warning{Code: oracle.WarnFetchFailed, ID: job.id, Message: err.Error()},
			}
			continue
		}

		ret, warn := oracle.PeriodReturn(ctx, f.oracle, job.id, start, end, method)
		if warn != nil {
			f.logger.WithFields(map[string]interface{}{
				"worker": workerID,
				"id":     job.id,
				"code":   warn.Code,
			}).Debug(warn.Message)
		}

		resultCh <- fetchResult{id: job.id, ret: ret, warning: warn}
	}
}

// Aggregate returns Σ weight×return and each position's contribution
func Aggregate(returns []float64, weights weighting.Vector) (float64, []float64, error) {
	if len(returns) != len(weights) {
		return 0, nil, fmt.Errorf("weights/returns length mismatch: %d vs %d", len(weights), len(returns))
	}

	contributions := make([]float64, len(returns))
	var portfolio float64
	for i := range returns {
		contributions[i] = weights[i] * returns[i]
		portfolio += contributions[i]
	}
	return portfolio, contributions, nil
}
