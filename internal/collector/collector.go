package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/2Arong/BITA-Active-ETF/internal/calendar"
	"github.com/2Arong/BITA-Active-ETF/internal/oracle"
	"github.com/2Arong/BITA-Active-ETF/internal/selection"
	"github.com/2Arong/BITA-Active-ETF/pkg/logger"
)

// BarWriter stores daily bars of one security
type BarWriter interface {
	SaveBars(ctx context.Context, id string, bars []oracle.Bar) error
}

// Collector copies daily bars of every selected security and benchmark into a store.
// ⭐ SSOT: 가격 동기화 오케스트레이션은 이 패키지에서만
type Collector struct {
	source oracle.Oracle
	sink   BarWriter
	logger *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers int // Number of concurrent workers
}

// NewCollector creates a new Collector instance
func NewCollector(source oracle.Oracle, sink BarWriter, log *logger.Logger) *Collector {
	return &Collector{
		source: source,
		sink:   sink,
		logger: log.WithField("module", "collector"),
	}
}

// SyncResult represents the result of one security
type SyncResult struct {
	ID      string
	Saved   int
	Dropped int // 검증 실패로 버린 봉
	Error   error
}

// Universe returns every ticker of src plus the benchmark ids, deduplicated and sorted
func Universe(ctx context.Context, src selection.Source, benchmarks []string) ([]string, error) {
	groups, err := src.Groups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list selection groups: %w", err)
	}

	seen := make(map[string]bool)
	for _, g := range groups {
		list, err := src.Load(ctx, g)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", g, err)
		}
		for _, t := range list.Tickers() {
			seen[t] = true
		}
	}
	for _, b := range benchmarks {
		seen[b] = true
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Window returns the span covered by the calendar
func Window(cal *calendar.Calendar) (time.Time, time.Time) {
	groups := cal.Groups()
	return groups[0].Start, groups[len(groups)-1].End
}

// SyncPrices fetches [from, to] bars of ids and saves the valid ones
func (c *Collector) SyncPrices(ctx context.Context, ids []string, from, to time.Time, cfg Config) []SyncResult {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	c.logger.WithFields(map[string]interface{}{
		"count":   len(ids),
		"from":    from.Format(calendar.DateLayout),
		"to":      to.Format(calendar.DateLayout),
		"workers": workers,
	}).Info("Starting price sync")

	// Create worker pool
	results := make([]SyncResult, 0, len(ids))
	resultCh := make(chan SyncResult, len(ids))
	idCh := make(chan string, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.priceWorker(ctx, workerID, idCh, resultCh, from, to)
		}(i)
	}

	for _, id := range ids {
		idCh <- id
	}
	close(idCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	successCount := 0
	failCount := 0
	for result := range resultCh {
		results = append(results, result)
		if result.Error != nil {
			failCount++
		} else {
			successCount++
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })

	c.logger.WithFields(map[string]interface{}{
		"success": successCount,
		"failed":  failCount,
		"total":   len(results),
	}).Info("Price sync completed")

	return results
}

// priceWorker processes price fetching for securities
func (c *Collector) priceWorker(ctx context.Context, workerID int, idCh <-chan string, resultCh chan<- SyncResult, from, to time.Time) {
	for id := range idCh {
		select {
		case <-ctx.Done():
			resultCh <- SyncResult{ID: id, Error: ctx.Err()}
			continue
		default:
		}

		bars, err := c.source.PriceSeries(ctx, id, from, to)
		if err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"id":     id,
			}).Error("Failed to fetch prices")
			resultCh <- SyncResult{ID: id, Error: err}
			continue
		}

		valid, dropped := ValidBars(bars)
		if err := c.sink.SaveBars(ctx, id, valid); err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"id":     id,
			}).Error("Failed to save prices")
			resultCh <- SyncResult{ID: id, Dropped: dropped, Error: err}
			continue
		}

		c.logger.WithFields(map[string]interface{}{
			"worker":  workerID,
			"id":      id,
			"count":   len(valid),
			"dropped": dropped,
		}).Debug("Synced prices")

		resultCh <- SyncResult{ID: id, Saved: len(valid), Dropped: dropped}
	}
}

// ValidBars drops bars that cannot be priced: 종가 <= 0, 고가 < 저가, 날짜 중복
func ValidBars(bars []oracle.Bar) ([]oracle.Bar, int) {
	valid := make([]oracle.Bar, 0, len(bars))
	seen := make(map[time.Time]bool, len(bars))
	for _, b := range bars {
		if b.Close <= 0 || b.High < b.Low || seen[b.Date] {
			continue
		}
		seen[b.Date] = true
		valid = append(valid, b)
	}
	return valid, len(bars) - len(valid)
}
