package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/2Arong/BITA-Active-ETF/internal/api"
	"github.com/2Arong/BITA-Active-ETF/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `대시보드용 REST API 서버를 시작합니다.

Endpoints:
  GET  /health                          - Health check
  GET  /api/calendar                    - 리밸런싱 캘린더
  GET  /api/backtest?method=            - 전체 백테스트 결과
  GET  /api/backtest/windows            - 1년/6개월/3개월/1개월 수익률
  GET  /api/backtest/holdings/{group}   - 투자 기간 종목 상세
  GET  /api/backtest/sectors/{group}    - 업종별 비중 TOP N
  POST /api/backtest/refresh            - 캐시 무시 재실행
  GET  /ws/backtest                     - 재실행 진행률 스트림 (WebSocket)

Example:
  go run ./cmd/etf api
  go run ./cmd/etf api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port":   a.cfg.Port,
		"env":    a.cfg.Env,
		"source": a.source.Name(),
	}).Info("Initializing API server")

	backtestHandler := handlers.NewBacktestHandler(a.service, a.log)
	streamHandler := handlers.NewStreamHandler(a.service, a.log)
	router := api.NewRouter(backtestHandler, streamHandler, a.log)
	server := api.New(a.cfg, a.log, router)

	// Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
