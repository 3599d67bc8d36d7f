package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/krxscan/internal/pipeline"
	"github.com/wonny/krxscan/internal/strategyconfig"
	"github.com/wonny/krxscan/pkg/logger"
)

// ScanRunner executes one preset; *pipeline.Runner satisfies it
type ScanRunner interface {
	Run(ctx context.Context, preset strategyconfig.Preset) (*pipeline.Result, error)
}

// ScanJob runs one preset on its cron schedule
// ⭐ SSOT: 프리셋 스캔 스케줄은 이 Job에서만
type ScanJob struct {
	runner ScanRunner
	preset strategyconfig.Preset
	logger *logger.Logger
}

// NewScanJob creates a scheduled scan for preset
func NewScanJob(runner ScanRunner, preset strategyconfig.Preset, log *logger.Logger) *ScanJob {
	return &ScanJob{
		runner: runner,
		preset: preset,
		logger: log,
	}
}

// Name returns the job name
func (j *ScanJob) Name() string {
	return JobName(j.preset.Name)
}

// Schedule returns the preset's cron expression
func (j *ScanJob) Schedule() string {
	return j.preset.Schedule
}

// Run executes the scan
func (j *ScanJob) Run(ctx context.Context) error {
	res, err := j.runner.Run(ctx, j.preset)
	if err != nil {
		return fmt.Errorf("scan %s: %w", j.preset.Name, err)
	}

	j.logger.WithFields(map[string]interface{}{
		"preset":    j.preset.Name,
		"run_id":    res.Summary.RunID,
		"qualified": len(res.Selection.Qualified),
	}).Info("Scheduled scan finished")
	return nil
}

// JobName is the scheduler name for a preset
func JobName(preset string) string {
	return "scan_" + preset
}

// Scheduled returns the presets that carry a schedule
func Scheduled(cfg *strategyconfig.Config) []strategyconfig.Preset {
	var out []strategyconfig.Preset
	for _, p := range cfg.Presets {
		if p.Schedule != "" {
			out = append(out, p)
		}
	}
	return out
}
