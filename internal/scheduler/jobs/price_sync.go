package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/2Arong/BITA-Active-ETF/internal/collector"
	"github.com/2Arong/BITA-Active-ETF/internal/selection"
	"github.com/2Arong/BITA-Active-ETF/pkg/logger"
)

// PriceSyncJob copies recent daily bars of every selected security into the price store
type PriceSyncJob struct {
	collector  *collector.Collector
	source     selection.Source
	benchmarks []string
	lookback   int // 일
	workers    int
	now        func() time.Time
	logger     *logger.Logger
}

// NewPriceSyncJob creates a new price sync job
func NewPriceSyncJob(col *collector.Collector, src selection.Source, benchmarks []string, workers int, log *logger.Logger) *PriceSyncJob {
	return &PriceSyncJob{
		collector:  col,
		source:     src,
		benchmarks: benchmarks,
		lookback:   5,
		workers:    workers,
		now:        time.Now,
		logger:     log,
	}
}

// Name returns the job name
func (j *PriceSyncJob) Name() string {
	return "price_sync"
}

// Schedule returns the cron schedule (weekdays 4 PM KST)
func (j *PriceSyncJob) Schedule() string {
	return "0 0 16 * * 1-5"
}

// Run syncs the last few days; 실패한 종목이 있으면 에러로 재시도
func (j *PriceSyncJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled price sync")

	ids, err := collector.Universe(ctx, j.source, j.benchmarks)
	if err != nil {
		return fmt.Errorf("build universe: %w", err)
	}

	to := j.now()
	from := to.AddDate(0, 0, -j.lookback)

	results := j.collector.SyncPrices(ctx, ids, from, to, collector.Config{Workers: j.workers})

	var failed int
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("price sync failed for %d of %d securities", failed, len(results))
	}

	j.logger.WithField("count", len(results)).Info("Scheduled price sync completed successfully")
	return nil
}
