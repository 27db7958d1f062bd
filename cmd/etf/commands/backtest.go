package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/2Arong/BITA-Active-ETF/internal/backtest"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "2주 리밸런싱 백테스트",
	Long: `선정 그룹 g(N) 의 종목을 다음 그룹 g(N+1) 기간 동안 보유했을 때의
수익률을 가중 방식별로 계산하고 벤치마크와 비교합니다.

Subcommands:
  run       - 백테스트 실행 (캐시 무시)
  holdings  - 투자 기간별 종목 상세
  sectors   - 업종별 비중 TOP N

Example:
  go run ./cmd/etf backtest run
  go run ./cmd/etf backtest run --method open --json
  go run ./cmd/etf backtest holdings g24
  go run ./cmd/etf backtest sectors latest --scheme score`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "백테스트 실행",
		RunE:  runBacktest,
	}

	backtestHoldingsCmd = &cobra.Command{
		Use:   "holdings [invest_group]",
		Short: "투자 기간 종목 상세 (기본: 마지막 기간)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHoldings,
	}

	backtestSectorsCmd = &cobra.Command{
		Use:   "sectors [invest_group]",
		Short: "업종별 비중 TOP N (기본: 마지막 기간)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSectors,
	}

	// Flags
	backtestJSON    bool
	backtestPeriods bool
	backtestScheme  string
	backtestTop     int
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)
	backtestCmd.AddCommand(backtestHoldingsCmd)
	backtestCmd.AddCommand(backtestSectorsCmd)

	backtestCmd.PersistentFlags().BoolVar(&backtestJSON, "json", false, "JSON 으로 출력")
	backtestRunCmd.Flags().BoolVar(&backtestPeriods, "periods", true, "기간별 수익률 표 출력")
	backtestSectorsCmd.Flags().StringVar(&backtestScheme, "scheme", "", "가중 방식 (기본: 첫 번째 방식)")
	backtestSectorsCmd.Flags().IntVar(&backtestTop, "top", 5, "상위 업종 수 (0 = 전체)")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	defaults := a.service.Defaults()
	if !backtestJSON {
		PrintHeader("BITA Active ETF Backtest", [][2]string{
			{"Signal", a.source.Name()},
			{"Method", string(defaults.PriceMethod)},
			{"Benchmark", defaults.Benchmarks[0].Name},
			{"Calendar", fmt.Sprintf("%d groups", a.calendar.Len())},
		})
	}

	progress := func(done, total int, message string) {
		if !backtestJSON {
			PrintProgress("Backtest", message, done, total)
		}
	}

	result, err := a.service.Refresh(cmd.Context(), "", progress)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	if backtestJSON {
		return PrintJSON(result)
	}

	printBacktestResult(result, backtestPeriods)
	return nil
}

func printBacktestResult(result *backtest.Result, periods bool) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("📊 Summary (vs %s, %d periods, %.1fs)\n", result.PrimaryBenchmark().Name, len(result.Periods), result.Duration.Seconds())
	PrintSeparator()

	columns := []string{"Portfolio", "Return", "Bench", "Excess", "Sharpe", "MDD", "IR", "Win"}
	widths := []int{22, 9, 9, 9, 7, 9, 7, 7}
	PrintTableHeader(columns, widths)
	for _, s := range result.Schemes {
		sum := result.Summaries[s.Name]
		PrintTableRow([]string{
			sum.Name,
			formatPercent(sum.TotalReturn),
			formatPercent(sum.BenchmarkReturn),
			formatPercent(sum.ExcessReturn),
			formatRatio(sum.Sharpe),
			formatPercent(sum.MaxDrawdown),
			formatRatio(sum.InformationRatio),
			fmt.Sprintf("%d/%d", sum.Wins, sum.Periods),
		}, widths)
	}
	for _, b := range result.Benchmarks[1:] {
		sum := result.BenchmarkSummaries[b.ID]
		PrintTableRow([]string{
			sum.Name,
			formatPercent(sum.TotalReturn),
			formatPercent(sum.BenchmarkReturn),
			formatPercent(sum.ExcessReturn),
			formatRatio(sum.Sharpe),
			formatPercent(sum.MaxDrawdown),
			formatRatio(sum.InformationRatio),
			fmt.Sprintf("%d/%d", sum.Wins, sum.Periods),
		}, widths)
	}

	fmt.Println()
	fmt.Println("🗓  Windows")
	for _, w := range backtest.DefaultWindows {
		returns := result.WindowReturns(w)
		line := fmt.Sprintf("   %-6s", w.Label)
		for _, key := range result.Keys() {
			line += fmt.Sprintf("  %s %s", key, formatPercent(returns[key]))
		}
		fmt.Println(line)
	}

	if periods {
		fmt.Println()
		fmt.Println("📈 Periods")
		keys := result.Keys()
		columns := append([]string{"Invest", "Range", "N"}, keys...)
		widths := []int{6, 13, 3}
		for range keys {
			widths = append(widths, 9)
		}
		PrintTableHeader(columns, widths)
		for _, p := range result.Periods {
			row := []string{
				p.InvestGroup,
				p.Start.Format("01.02") + "~" + p.End.Format("01.02"),
				strconv.Itoa(p.Holdings),
			}
			for _, key := range keys {
				if v, ok := p.SchemeReturns[key]; ok {
					row = append(row, formatPercent(v))
				} else {
					row = append(row, formatPercent(p.BenchmarkReturns[key]))
				}
			}
			PrintTableRow(row, widths)
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Println()
		PrintWarning(fmt.Sprintf("%d data warnings (수익률 0 처리)", len(result.Warnings)))
		limit := len(result.Warnings)
		if !verbose && limit > 10 {
			limit = 10
		}
		for _, w := range result.Warnings[:limit] {
			fmt.Printf("   • %s\n", w.String())
		}
		if limit < len(result.Warnings) {
			fmt.Printf("   … %d more (-v 로 전체 출력)\n", len(result.Warnings)-limit)
		}
	}

	fmt.Println()
	PrintSuccess("Backtest completed")
}

func groupArg(args []string) string {
	if len(args) == 0 {
		return backtest.LatestGroup
	}
	return args[0]
}

func runHoldings(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	detail, err := a.service.Holdings(cmd.Context(), "", groupArg(args))
	if err != nil {
		return err
	}

	if backtestJSON {
		return PrintJSON(detail)
	}

	schemes := a.service.Defaults().Schemes
	fmt.Printf("\n📋 %s (%s) ← %s 선정, %d종목\n\n",
		detail.InvestGroup, a.calendar.Label(detail.InvestGroup), detail.SelectionGroup, len(detail.Entries))

	columns := []string{"Ticker", "Name", "Remark", "Score", "Return"}
	widths := []int{7, 18, 20, 8, 9}
	for _, s := range schemes {
		columns = append(columns, s.Name())
		widths = append(widths, 7)
	}
	PrintTableHeader(columns, widths)

	for _, h := range detail.Entries {
		ret := formatPercent(h.Return)
		if h.Warning != "" {
			ret = h.Warning
		}
		row := []string{h.Ticker, h.Name, h.Remark.Label(), fmt.Sprintf("%.3f", h.Score), ret}
		for _, s := range schemes {
			row = append(row, fmt.Sprintf("%.1f%%", h.Weights[s.Name()]*100))
		}
		PrintTableRow(row, widths)
	}
	return nil
}

func runSectors(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	sectors, err := a.service.Sectors(cmd.Context(), "", groupArg(args), backtestScheme, backtestTop)
	if err != nil {
		return err
	}

	if backtestJSON {
		return PrintJSON(sectors)
	}

	fmt.Println()
	for i, s := range sectors {
		fmt.Printf("   %d. %-12s %5.1f%%  %v\n", i+1, s.Sector, s.Weight*100, s.Names)
	}
	return nil
}
