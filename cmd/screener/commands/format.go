package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/krxscan/internal/contracts"
	"github.com/wonny/krxscan/internal/report"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	ruleHeavy = "═══════════════════════════════════════════════════════════"
	ruleLight = "───────────────────────────────────────────────────────────"
)

// PrintHeader prints a formatted command header
func PrintHeader(title string, lines ...string) {
	fmt.Println()
	fmt.Println(ruleHeavy)
	fmt.Printf("  %s\n", title)
	if len(lines) > 0 {
		fmt.Println(ruleLight)
		for _, l := range lines {
			fmt.Printf("  %s\n", l)
		}
	}
	fmt.Println(ruleHeavy)
}

// PrintSummary prints the run counters
func PrintSummary(s report.Summary) {
	fmt.Println()
	fmt.Println(ruleLight)
	fmt.Printf("  Run ID    : %s\n", s.RunID)
	fmt.Printf("  Preset    : %s\n", s.Preset)
	fmt.Printf("  Universe  : %d\n", s.Universe)
	fmt.Printf("  Qualified : %d\n", s.Count(contracts.OutcomeQualified))
	fmt.Printf("  Rejected  : %d\n", s.Count(contracts.OutcomeRejected))
	fmt.Printf("  No data   : %d\n", s.Count(contracts.OutcomeInsufficientData))
	fmt.Printf("  Errors    : %d%s\n", s.Count(contracts.OutcomeFetchError), fetchErrorDetail(s.FetchErrors))
	fmt.Printf("  Duration  : %s\n", s.Duration.Round(time.Millisecond))
	if len(s.ConfigHash) >= 8 {
		fmt.Printf("  Config    : %s\n", s.ConfigHash[:8])
	}
	if top := s.TopRejections(3); len(top) > 0 {
		fmt.Printf("  Top rules : %s\n", strings.Join(top, ", "))
	}
	fmt.Println(ruleLight)
}

func fetchErrorDetail(m map[contracts.FetchErrorKind]int) string {
	if len(m) == 0 {
		return ""
	}
	parts := make([]string, 0, len(m))
	for k, v := range m {
		parts = append(parts, fmt.Sprintf("%s=%d", k, v))
	}
	sort.Strings(parts)
	return " (" + strings.Join(parts, ", ") + ")"
}

// FormatThreshold renders an optional threshold
func FormatThreshold(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}
