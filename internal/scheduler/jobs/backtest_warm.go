package jobs

import (
	"context"
	"fmt"

	"github.com/2Arong/BITA-Active-ETF/internal/backtest"
	"github.com/2Arong/BITA-Active-ETF/internal/oracle"
	"github.com/2Arong/BITA-Active-ETF/pkg/logger"
)

// Refresher reruns a backtest and replaces its cached result
type Refresher interface {
	Refresh(ctx context.Context, method string, progress backtest.ProgressFunc) (*backtest.Result, error)
}

// BacktestWarmJob recomputes cached backtest results after the market closes
// ⭐ SSOT: 백테스트 캐시 갱신 스케줄은 이 Job에서만
type BacktestWarmJob struct {
	service Refresher
	methods []oracle.PriceMethod
	logger  *logger.Logger
}

// NewBacktestWarmJob creates a warm job. methods 가 비어 있으면 open/close/vwap 전부
func NewBacktestWarmJob(service Refresher, methods []oracle.PriceMethod, log *logger.Logger) *BacktestWarmJob {
	if len(methods) == 0 {
		methods = oracle.PriceMethods()
	}
	return &BacktestWarmJob{
		service: service,
		methods: methods,
		logger:  log,
	}
}

// Name returns the job name
func (j *BacktestWarmJob) Name() string {
	return "backtest_warm"
}

// Schedule returns the cron schedule (weekdays 4:30 PM, after the price sync)
func (j *BacktestWarmJob) Schedule() string {
	return "0 30 16 * * 1-5"
}

// Run refreshes every price method; 하나라도 실패하면 에러
func (j *BacktestWarmJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled backtest refresh")

	var failed []string
	for _, m := range j.methods {
		result, err := j.service.Refresh(ctx, string(m), nil)
		if err != nil {
			j.logger.WithError(err).WithField("method", m).Error("Backtest refresh failed")
			failed = append(failed, string(m))
			continue
		}

		j.logger.WithFields(map[string]interface{}{
			"method":   m,
			"periods":  len(result.Periods),
			"warnings": len(result.Warnings),
		}).Info("Backtest refreshed")
	}

	if len(failed) > 0 {
		return fmt.Errorf("refresh failed for %v", failed)
	}
	return nil
}
