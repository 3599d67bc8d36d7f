package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// presetsCmd represents the presets command
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "프리셋 목록과 임계값 출력",
	RunE:  listPresets,
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}

func listPresets(cmd *cobra.Command, args []string) error {
	_, _, strategy, hash, err := loadBase()
	if err != nil {
		return err
	}

	PrintHeader("Presets", fmt.Sprintf("Config    : %s", hash[:8]))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTITLE\tSCHEDULE\tDISPARITY≤\tRSI≤\tMEDIAN VALUE≥\tPROFIT\tFLOW\tSORT")
	for _, p := range strategy.Presets {
		schedule := p.Schedule
		if schedule == "" {
			schedule = "-"
		}
		flow := "-"
		if p.Flow.Enabled {
			flow = fmt.Sprintf("%dd/%s", p.Flow.Days, p.Flow.Policy)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%v\t%s\t%s\n",
			p.Name,
			p.Title,
			schedule,
			FormatThreshold(p.Rules.DisparityMax),
			FormatThreshold(p.Rules.RSIMax),
			FormatThreshold(p.Rules.MedianTradingValueMin),
			p.Fundamentals.Required,
			flow,
			p.SortBy,
		)
	}
	return w.Flush()
}
