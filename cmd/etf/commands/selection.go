package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2Arong/BITA-Active-ETF/internal/selection"
)

// selectionCmd represents the selection command
var selectionCmd = &cobra.Command{
	Use:   "selection",
	Short: "종목 선정 결과 관리",
	Long: `그룹별 종목 선정 결과(CSV)를 조회하거나 DB 로 적재합니다.

Example:
  go run ./cmd/etf selection show g3
  go run ./cmd/etf selection import --signal 기관포함`,
}

var (
	selectionShowCmd = &cobra.Command{
		Use:   "show [group]",
		Short: "그룹 선정 목록 조회",
		Args:  cobra.ExactArgs(1),
		RunE:  runSelectionShow,
	}

	selectionImportCmd = &cobra.Command{
		Use:   "import",
		Short: "CSV 선정 결과를 DB 로 적재",
		RunE:  runSelectionImport,
	}
)

func init() {
	rootCmd.AddCommand(selectionCmd)
	selectionCmd.AddCommand(selectionShowCmd)
	selectionCmd.AddCommand(selectionImportCmd)
}

func runSelectionShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	list, err := a.source.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("\n📋 %s / %s (%s), %d종목\n\n", a.source.Name(), list.Group, a.calendar.Label(list.Group), list.Len())

	columns := []string{"#", "Ticker", "Name", "Score", "Remark"}
	widths := []int{3, 7, 18, 8, 20}
	PrintTableHeader(columns, widths)
	for i, e := range list.Entries {
		PrintTableRow([]string{
			fmt.Sprintf("%d", i+1),
			e.Ticker,
			e.Name,
			fmt.Sprintf("%.3f", e.Score),
			e.Remark.Label(),
		}, widths)
	}
	return nil
}

func runSelectionImport(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	src := selection.NewCSVSource(a.cfg.Backtest.SourceDir(), a.cfg.Backtest.Signal)
	dst := selection.NewPostgresSource(a.db.Pool, a.cfg.Backtest.Signal)

	if err := dst.EnsureSchema(cmd.Context()); err != nil {
		return err
	}

	n, err := dst.Import(cmd.Context(), src)
	if err != nil {
		return fmt.Errorf("import selection lists: %w", err)
	}

	PrintSuccess(fmt.Sprintf("Imported %d groups from %s", n, src.Dir()))
	return nil
}
