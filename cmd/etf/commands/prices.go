package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/2Arong/BITA-Active-ETF/internal/calendar"
	"github.com/2Arong/BITA-Active-ETF/internal/collector"
	"github.com/2Arong/BITA-Active-ETF/internal/oracle"
)

// pricesCmd represents the prices command
var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "가격 데이터 관리",
	Long: `선정 종목과 벤치마크의 일봉을 Naver 에서 받아 DB 에 저장합니다.
저장 후 PRICE_SOURCE=postgres 로 백테스트를 오프라인 실행할 수 있습니다.

Example:
  go run ./cmd/etf prices sync
  go run ./cmd/etf prices sync --from 2025-12-01 --workers 8`,
}

var (
	pricesSyncCmd = &cobra.Command{
		Use:   "sync",
		Short: "일봉 동기화",
		RunE:  runPricesSync,
	}

	pricesFrom    string
	pricesTo      string
	pricesWorkers int
)

func init() {
	rootCmd.AddCommand(pricesCmd)
	pricesCmd.AddCommand(pricesSyncCmd)

	pricesSyncCmd.Flags().StringVar(&pricesFrom, "from", "", "시작 날짜 (YYYY-MM-DD, 기본: 캘린더 시작)")
	pricesSyncCmd.Flags().StringVar(&pricesTo, "to", "", "종료 날짜 (YYYY-MM-DD, 기본: 캘린더 끝)")
	pricesSyncCmd.Flags().IntVar(&pricesWorkers, "workers", 4, "동시 작업 수")
}

func runPricesSync(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	from, to := collector.Window(a.calendar)
	if pricesFrom != "" {
		if from, err = time.Parse(calendar.DateLayout, pricesFrom); err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
	}
	if pricesTo != "" {
		if to, err = time.Parse(calendar.DateLayout, pricesTo); err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
	}

	defaults := a.service.Defaults()
	benchmarks := make([]string, len(defaults.Benchmarks))
	for i, b := range defaults.Benchmarks {
		benchmarks[i] = b.ID
	}

	ids, err := collector.Universe(cmd.Context(), a.source, benchmarks)
	if err != nil {
		return err
	}

	PrintHeader("Price Sync", [][2]string{
		{"Period", from.Format(calendar.DateLayout) + " ~ " + to.Format(calendar.DateLayout)},
		{"Symbols", fmt.Sprintf("%d", len(ids))},
	})

	// 원천은 항상 Naver, 저장은 DB
	col := collector.NewCollector(oracle.NewNaverOracle(a.naver), oracle.NewPostgresOracle(a.db.Pool), a.log)
	start := time.Now()
	results := col.SyncPrices(cmd.Context(), ids, from, to, collector.Config{Workers: pricesWorkers})

	var saved, dropped, failed int
	for _, r := range results {
		saved += r.Saved
		dropped += r.Dropped
		if r.Error != nil {
			failed++
			PrintError(fmt.Sprintf("%s: %v", r.ID, r.Error))
		}
	}

	fmt.Println()
	PrintSuccess(fmt.Sprintf("%d bars saved, %d dropped, %d/%d failed in %.1fs",
		saved, dropped, failed, len(results), time.Since(start).Seconds()))
	if failed > 0 {
		return fmt.Errorf("%d securities failed", failed)
	}
	return nil
}
