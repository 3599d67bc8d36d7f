package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "프리셋 스캔 1회 실행",
	Long: `유니버스를 구성하고 프리셋 조건으로 종목을 걸러 리포트를 보냅니다.

실행 순서:
- 시가총액 상위 종목 목록 수집 (KOSPI/KOSDAQ)
- 종목별 일봉 조회 → 지표 계산 → 기술적 조건
- 통과 종목만 재무(영업이익)/수급 조회
- 결과 리포트를 웹훅으로 전송 (--dry-run: 표준출력)

Example:
  go run ./cmd/screener scan --preset disparity
  go run ./cmd/screener scan --preset oversold --dry-run`,
	RunE: runScan,
}

var (
	scanPreset string
	scanDryRun bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanPreset, "preset", "p", "disparity", "실행할 프리셋 이름")
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "웹훅 대신 표준출력으로 리포트 출력")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{dryRun: scanDryRun, presets: []string{scanPreset}})
	if err != nil {
		return err
	}
	defer a.Close()

	preset, err := a.preset(scanPreset)
	if err != nil {
		return err
	}

	PrintHeader("Scan: "+preset.Name,
		fmt.Sprintf("Title     : %s", preset.Title),
		fmt.Sprintf("Universe  : %s (KOSPI %d, KOSDAQ %d)", a.cfg.Universe.Source, a.cfg.Universe.KOSPILimit, a.cfg.Universe.KOSDAQLimit),
		fmt.Sprintf("Dry run   : %v", a.cfg.Scan.DryRun),
	)

	res, err := a.runner.Run(ctx, preset)
	if res != nil {
		PrintSummary(res.Summary)
	}
	if err != nil {
		a.log.WithError(err).Error("Scan failed")
		return fmt.Errorf("scan %s: %w", preset.Name, err)
	}

	fmt.Printf("\n✅ Scan completed: %d qualified\n", len(res.Selection.Qualified))
	return nil
}
