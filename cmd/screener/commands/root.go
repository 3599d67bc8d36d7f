package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "KRX 종목 스크리너",
	Long: `KRX Screener CLI

유가증권/코스닥 종목을 기술적 지표와 재무/수급 조건으로 걸러
디스코드 웹훅으로 결과를 보냅니다.

Usage:
  go run ./cmd/screener [command]

Examples:
  go run ./cmd/screener scan --preset disparity
  go run ./cmd/screener scan --preset accumulation --dry-run
  go run ./cmd/screener presets
  go run ./cmd/screener scheduler start
  go run ./cmd/screener serve`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "프리셋 YAML 파일 (기본: STRATEGY_FILE 또는 내장 프리셋)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug 로그 출력")
}
