package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/krxscan/internal/api"
	"github.com/wonny/krxscan/internal/api/handlers"
	"github.com/wonny/krxscan/internal/scheduler"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 시작",
	Long: `스캔 트리거용 REST API 서버를 시작합니다.

Endpoints:
  GET  /health               - Health check
  GET  /api/presets          - 프리셋 목록
  POST /api/scans/{preset}   - 스캔 비동기 실행 (202 + run id)
  GET  /api/scans/last       - 마지막 실행 요약

Example:
  go run ./cmd/screener serve
  go run ./cmd/screener serve --port 8080 --with-scheduler`,
	RunE: runServe,
}

var (
	servePort          string
	serveWithScheduler bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (기본: PORT)")
	serveCmd.Flags().BoolVar(&serveWithScheduler, "with-scheduler", false, "스케줄러를 함께 실행")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, _, strategy, _, err := loadBase()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, appOptions{presets: strategy.PresetNames()})
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != "" {
		a.cfg.Port = servePort
	}

	var sched *scheduler.Scheduler
	if serveWithScheduler {
		if sched, err = registerJobs(a); err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	scanHandler := handlers.NewScanHandler(ctx, a.runner, a.strategy, a.configHash, a.log)
	server := api.New(a.cfg, a.log, api.NewRouter(scanHandler, a.log))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	PrintHeader("API Server", fmt.Sprintf("Listen    : http://localhost:%s", a.cfg.Port))
	if sched != nil {
		printJobs(sched)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	a.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	scanHandler.Wait()

	a.log.Info("Server stopped")
	return nil
}
