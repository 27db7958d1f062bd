package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	signalFlag string
	sourceFlag string
	methodFlag string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "etf",
	Short: "BITA Active ETF - 2주 리밸런싱 백테스트",
	Long: `BITA Active ETF Unified CLI

수급 시그널로 선정된 종목을 2주마다 리밸런싱했을 때의 성과를
KOSPI 등 벤치마크와 비교합니다.

Usage:
  go run ./cmd/etf [command]

Examples:
  go run ./cmd/etf backtest run
  go run ./cmd/etf backtest run --method vwap --signal 기관포함
  go run ./cmd/etf calendar list
  go run ./cmd/etf api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&signalFlag, "signal", "", "시그널 (외국인단독|기관포함, 기본: BACKTEST_SIGNAL)")
	rootCmd.PersistentFlags().StringVar(&sourceFlag, "source", "csv", "선정 결과 저장소 (csv|postgres)")
	rootCmd.PersistentFlags().StringVar(&methodFlag, "method", "", "가격 방식 (open|close|vwap, 기본: BACKTEST_PRICE_METHOD)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
