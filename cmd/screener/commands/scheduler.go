package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/krxscan/internal/scheduler"
	"github.com/wonny/krxscan/internal/scheduler/jobs"
	"github.com/wonny/krxscan/internal/strategyconfig"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `프리셋 스캔을 cron 스케줄로 실행합니다.

schedule 값이 있는 프리셋만 등록됩니다 (기본: 평일 15:40 KST).

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업과 다음 실행 시각
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/screener scheduler start
  go run ./cmd/screener scheduler list
  go run ./cmd/screener scheduler run scan_disparity`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 스케줄이 있는 모든 프리셋을 등록합니다.

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

var (
	schedulerRetries    int
	schedulerRetryDelay time.Duration
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerStartCmd.Flags().IntVar(&schedulerRetries, "retries", 0, "실패 시 재시도 횟수 (리포트가 중복 전송될 수 있음)")
	schedulerStartCmd.Flags().DurationVar(&schedulerRetryDelay, "retry-delay", time.Minute, "재시도 간격")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, sched, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	sched.Start()

	PrintHeader("Scheduler")
	fmt.Println("\n✅ Scheduler started successfully")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	_, _, strategy, _, err := loadBase()
	if err != nil {
		return err
	}

	fmt.Println("Registered jobs:")
	for _, p := range jobs.Scheduled(strategy) {
		fmt.Printf("  - %s (%s)\n", jobs.JobName(p.Name), p.Schedule)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	a, sched, err := initScheduler(context.Background())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	res, err := sched.RunJobSync(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	if !res.Success {
		return fmt.Errorf("job %s failed: %s", jobName, res.Error)
	}

	fmt.Printf("✅ Job completed in %s\n", res.Duration.Round(time.Millisecond))
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	fmt.Println("\nRegistered jobs:")
	for _, name := range sched.GetAllJobs() {
		if next, ok := sched.NextRun(name); ok {
			fmt.Printf("  - %s (next: %s)\n", name, next.Format("2006-01-02 15:04 MST"))
			continue
		}
		fmt.Printf("  - %s\n", name)
	}
}

// initScheduler wires the app and registers one job per scheduled preset
func initScheduler(ctx context.Context) (*app, *scheduler.Scheduler, error) {
	_, _, strategy, _, err := loadBase()
	if err != nil {
		return nil, nil, err
	}

	a, err := newApp(ctx, appOptions{presets: scheduledNames(strategy)})
	if err != nil {
		return nil, nil, err
	}

	sched, err := registerJobs(a)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, sched, nil
}

func registerJobs(a *app) (*scheduler.Scheduler, error) {
	var opts []scheduler.Option
	if schedulerRetries > 0 {
		opts = append(opts, scheduler.WithRetry(schedulerRetries, schedulerRetryDelay))
	}
	sched := scheduler.New(a.log, a.cfg.Location(), opts...)

	for _, p := range jobs.Scheduled(a.strategy) {
		if err := sched.AddJob(jobs.NewScanJob(a.runner, p, a.log)); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

func scheduledNames(strategy *strategyconfig.Config) []string {
	var names []string
	for _, p := range jobs.Scheduled(strategy) {
		names = append(names, p.Name)
	}
	return names
}
