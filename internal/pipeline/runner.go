package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/krxscan/internal/contracts"
	"github.com/wonny/krxscan/internal/indicators"
	"github.com/wonny/krxscan/internal/report"
	"github.com/wonny/krxscan/internal/screening"
	"github.com/wonny/krxscan/internal/strategyconfig"
	"github.com/wonny/krxscan/pkg/logger"
)

// UniverseProvider supplies the instruments for one run
type UniverseProvider interface {
	Build(ctx context.Context, date time.Time) (*contracts.Universe, error)
}

type runIDKey struct{}

// WithRunID makes Run use id instead of generating one
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFrom returns the run id attached by WithRunID, "" if none
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// preloader is implemented by sources that warm a lookup table before a run
type preloader interface {
	Preload(ctx context.Context) error
}

// Deps are the collaborators of a run
type Deps struct {
	Universe     UniverseProvider
	Prices       contracts.PriceSource
	Fundamentals contracts.FundamentalsSource // nil = 재무 조건 프리셋 실행 불가
	Flow         contracts.FlowSource         // nil = 수급 생략
	Trends       contracts.MarketTrendSource  // nil = 시장 수급 라인 생략
	Notifier     contracts.Notifier
	Reporter     *report.Reporter
}

// Options controls run execution
type Options struct {
	Workers             int
	CallTimeout         time.Duration
	DefaultLookbackDays int
	ConfigHash          string
}

// Result is the outcome of one run
type Result struct {
	Summary   report.Summary
	Selection screening.Selection
	Outcomes  []contracts.Outcome
	Text      string
}

// Runner executes presets end to end
// ⭐ SSOT: 유니버스 → 지표 → 필터 → 리포트 → 알림 흐름은 여기서만
type Runner struct {
	deps   Deps
	engine *indicators.Engine
	opts   Options
	logger *logger.Logger
	now    func() time.Time

	mu   sync.RWMutex
	last *Result
}

// NewRunner validates the dependencies and creates a runner
func NewRunner(deps Deps, engine *indicators.Engine, opts Options, log *logger.Logger) (*Runner, error) {
	switch {
	case deps.Universe == nil:
		return nil, errors.New("pipeline: universe provider is required")
	case deps.Prices == nil:
		return nil, errors.New("pipeline: price source is required")
	case deps.Notifier == nil:
		return nil, errors.New("pipeline: notifier is required")
	case deps.Reporter == nil:
		return nil, errors.New("pipeline: reporter is required")
	case engine == nil:
		return nil, errors.New("pipeline: indicator engine is required")
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.DefaultLookbackDays <= 0 {
		opts.DefaultLookbackDays = 60
	}

	return &Runner{
		deps:   deps,
		engine: engine,
		opts:   opts,
		logger: log,
		now:    time.Now,
	}, nil
}

// Last returns the most recent completed run, nil before the first one
func (r *Runner) Last() *Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Run screens the universe with preset and sends exactly one report.
// Any failure before the report is rendered sends an error report instead
// and returns the error.
func (r *Runner) Run(ctx context.Context, preset strategyconfig.Preset) (*Result, error) {
	startedAt := r.now()
	runID := RunIDFrom(ctx)
	if runID == "" {
		runID = uuid.NewString()
	}
	log := r.logger.WithRunID(runID).WithField("preset", preset.Name)

	result := &Result{
		Summary: report.Summary{
			RunID:      runID,
			Preset:     preset.Name,
			StartedAt:  startedAt,
			ConfigHash: r.opts.ConfigHash,
		},
	}
	defer r.remember(result)

	filter, err := screening.NewFilter(preset, screening.Sources{
		Fundamentals: r.deps.Fundamentals,
		Flow:         r.deps.Flow,
	}, r.opts.CallTimeout, log)
	if err != nil {
		log.WithError(err).Error("Preset cannot run")
		return result, r.fail(ctx, result, preset, startedAt, err, log)
	}

	log.Info("Scan started")

	universe, err := r.deps.Universe.Build(ctx, startedAt)
	if err != nil {
		log.WithError(err).Error("Universe unavailable")
		return result, r.fail(ctx, result, preset, startedAt, err, log)
	}

	if preset.Fundamentals.Required {
		r.preload(ctx, log)
	}

	from, to := r.window(preset, startedAt)
	outcomes := r.evaluateAll(ctx, universe.Instruments, filter, from, to, log)
	selection := screening.Select(outcomes, preset)

	summary := report.Summarize(outcomes)
	summary.RunID = runID
	summary.Preset = preset.Name
	summary.StartedAt = startedAt
	summary.ConfigHash = r.opts.ConfigHash
	summary.Duration = time.Since(startedAt)

	result.Summary = summary
	result.Selection = selection
	result.Outcomes = outcomes

	text, err := r.deps.Reporter.Render(report.Run{
		Preset:    preset,
		At:        startedAt,
		Selection: selection,
		Trends:    r.marketTrends(ctx, universe, log),
		Summary:   &summary,
	})
	if err != nil {
		log.WithError(err).Error("Report rendering failed")
		return result, r.fail(ctx, result, preset, startedAt, err, log)
	}
	result.Text = text

	log.WithFields(map[string]interface{}{
		"universe":     summary.Universe,
		"qualified":    summary.Count(contracts.OutcomeQualified),
		"rejected":     summary.Count(contracts.OutcomeRejected),
		"insufficient": summary.Count(contracts.OutcomeInsufficientData),
		"fetch_errors": summary.Count(contracts.OutcomeFetchError),
		"dual_buying":  len(selection.DualBuying),
		"duration":     summary.Duration.String(),
		"config_hash":  summary.ConfigHash,
	}).Info("Scan completed")

	if err := r.deps.Notifier.Send(ctx, text); err != nil {
		log.WithError(err).Error("Failed to deliver report")
		return result, fmt.Errorf("run %s: %w", runID, err)
	}
	return result, nil
}

func (r *Runner) remember(res *Result) {
	r.mu.Lock()
	r.last = res
	r.mu.Unlock()
}

// window returns the price lookup range for preset
func (r *Runner) window(preset strategyconfig.Preset, at time.Time) (time.Time, time.Time) {
	days := preset.LookbackDays
	if days <= 0 {
		days = r.opts.DefaultLookbackDays
	}
	if preset.NeedsMonthlyTrend() && days < r.engine.MonthlyLookbackDays() {
		days = r.engine.MonthlyLookbackDays()
	}
	return at.AddDate(0, 0, -days), at
}

func (r *Runner) preload(ctx context.Context, log *logger.Logger) {
	p, ok := r.deps.Fundamentals.(preloader)
	if !ok {
		return
	}
	if err := p.Preload(ctx); err != nil {
		// 종목별 조회에서 다시 시도됨
		log.WithError(err).Warn("Fundamentals preload failed")
	}
}

// marketTrends is informational; failures are dropped
func (r *Runner) marketTrends(ctx context.Context, universe *contracts.Universe, log *logger.Logger) []contracts.MarketTrend {
	if r.deps.Trends == nil {
		return nil
	}

	present := make(map[contracts.Market]bool)
	for _, inst := range universe.Instruments {
		present[inst.Market] = true
	}

	var trends []contracts.MarketTrend
	for _, m := range contracts.Markets() {
		if !present[m] {
			continue
		}
		callCtx, cancel := r.callContext(ctx)
		trend, err := r.deps.Trends.FetchMarketTrend(callCtx, m)
		cancel()
		if err != nil || trend == nil {
			log.WithError(err).WithField("market", m).Debug("Market trend unavailable")
			continue
		}
		trends = append(trends, *trend)
	}
	return trends
}

func (r *Runner) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.opts.CallTimeout)
}

// fail sends the error report for a run that could not finish
func (r *Runner) fail(ctx context.Context, result *Result, preset strategyconfig.Preset, at time.Time, cause error, log *logger.Logger) error {
	result.Summary.Error = cause.Error()
	result.Summary.Duration = time.Since(at)
	result.Text = r.deps.Reporter.RenderError(preset, at, cause)
	if err := r.deps.Notifier.Send(ctx, result.Text); err != nil {
		log.WithError(err).Error("Failed to deliver error report")
	}
	return fmt.Errorf("run %s: %w", result.Summary.RunID, cause)
}
