package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2Arong/BITA-Active-ETF/internal/collector"
	"github.com/2Arong/BITA-Active-ETF/internal/oracle"
	"github.com/2Arong/BITA-Active-ETF/internal/scheduler"
	"github.com/2Arong/BITA-Active-ETF/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `장 마감 후 가격 동기화와 백테스트 캐시 갱신을 스케줄합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (완료까지 대기)

Example:
  go run ./cmd/etf scheduler start
  go run ./cmd/etf scheduler list
  go run ./cmd/etf scheduler run backtest_warm`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- price_sync: 평일 오후 4시 (최근 5일 일봉, PRICE_SOURCE=postgres 일 때만)
- backtest_warm: 평일 오후 4시 30분 (open/close/vwap 결과 캐시 갱신)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	sched.Start()

	PrintSuccess("Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		next, _ := sched.NextRun(jobName)
		fmt.Printf("  - %s (next: %s)\n", jobName, next.Format("2006-01-02 15:04:05"))
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	stats := sched.GetJobStats()
	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %-14s %s\n", jobName, stats[jobName].Schedule)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	fmt.Printf("Running job: %s\n", jobName)
	result, err := sched.RunJobSync(cmd.Context(), jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !result.Success {
		PrintError(fmt.Sprintf("%s failed after %.1fs: %s", jobName, result.Duration.Seconds(), result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}

	PrintSuccess(fmt.Sprintf("%s completed in %.1fs", jobName, result.Duration.Seconds()))
	return nil
}

func initScheduler() (*app, *scheduler.Scheduler, error) {
	a, err := newApp(false)
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(a.log)

	// price_sync 는 저장소가 DB 일 때만 의미 있음
	if a.db != nil {
		defaults := a.service.Defaults()
		benchmarks := make([]string, len(defaults.Benchmarks))
		for i, b := range defaults.Benchmarks {
			benchmarks[i] = b.ID
		}

		col := collector.NewCollector(oracle.NewNaverOracle(a.naver), oracle.NewPostgresOracle(a.db.Pool), a.log)
		if err := sched.AddJob(jobs.NewPriceSyncJob(col, a.source, benchmarks, a.cfg.Backtest.Workers, a.log)); err != nil {
			a.close()
			return nil, nil, err
		}
	}

	if err := sched.AddJob(jobs.NewBacktestWarmJob(a.service, nil, a.log)); err != nil {
		a.close()
		return nil, nil, err
	}

	return a, sched, nil
}
