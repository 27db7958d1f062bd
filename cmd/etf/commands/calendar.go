package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/2Arong/BITA-Active-ETF/internal/calendar"
)

// calendarCmd represents the calendar command
var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "리밸런싱 캘린더 조회",
	Long: `2주 리밸런싱 그룹(g1~g25)을 조회합니다.
BACKTEST_CALENDAR_FILE 이 있으면 YAML 캘린더를 사용합니다.

Example:
  go run ./cmd/etf calendar list
  go run ./cmd/etf calendar group-of 2025-03-10`,
}

var (
	calendarListCmd = &cobra.Command{
		Use:   "list",
		Short: "그룹 목록",
		RunE:  runCalendarList,
	}

	calendarGroupOfCmd = &cobra.Command{
		Use:   "group-of [YYYY-MM-DD]",
		Short: "날짜가 속한 그룹 (기본: 오늘)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCalendarGroupOf,
	}

	calendarFile string
)

func init() {
	rootCmd.AddCommand(calendarCmd)
	calendarCmd.AddCommand(calendarListCmd)
	calendarCmd.AddCommand(calendarGroupOfCmd)

	calendarCmd.PersistentFlags().StringVar(&calendarFile, "file", "", "YAML 캘린더 파일 (기본: 내장 2025 캘린더)")
}

func loadCalendar() (*calendar.Calendar, error) {
	cal, err := calendar.LoadOrDefault(calendarFile)
	if err != nil {
		return nil, fmt.Errorf("load calendar: %w", err)
	}
	return cal, nil
}

func runCalendarList(cmd *cobra.Command, args []string) error {
	cal, err := loadCalendar()
	if err != nil {
		return err
	}

	columns := []string{"Group", "Start", "End", "Label", "Invest"}
	widths := []int{6, 10, 10, 11, 6}
	PrintTableHeader(columns, widths)

	for _, g := range cal.Groups() {
		invest := "-"
		if next, ok := cal.InvestPeriodFor(g.ID); ok {
			invest = next.ID
		}
		PrintTableRow([]string{
			g.ID,
			g.Start.Format(calendar.DateLayout),
			g.End.Format(calendar.DateLayout),
			g.Label(),
			invest,
		}, widths)
	}
	return nil
}

func runCalendarGroupOf(cmd *cobra.Command, args []string) error {
	cal, err := loadCalendar()
	if err != nil {
		return err
	}

	date := time.Now()
	if len(args) == 1 {
		date, err = time.Parse(calendar.DateLayout, args[0])
		if err != nil {
			return fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", args[0], err)
		}
	}

	g := cal.GroupContaining(date)
	PrintKeyValue("Date", date.Format(calendar.DateLayout), 6)
	PrintKeyValue("Group", fmt.Sprintf("%s (%s)", g.ID, g.Label()), 6)
	if !g.Contains(date) {
		PrintWarning("날짜가 어느 그룹 범위에도 없습니다 (마지막 그룹으로 대체)")
	}
	return nil
}
