package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wonny/krxscan/internal/contracts"
	"github.com/wonny/krxscan/internal/indicators"
	"github.com/wonny/krxscan/internal/screening"
	"github.com/wonny/krxscan/pkg/logger"
)

type task struct {
	idx  int
	inst contracts.Instrument
}

type taskResult struct {
	idx     int
	outcome contracts.Outcome
}

// evaluateAll runs the per-instrument chain on a bounded worker pool.
// Outcomes are returned in universe order regardless of completion order.
func (r *Runner) evaluateAll(ctx context.Context, instruments []contracts.Instrument, filter *screening.Filter, from, to time.Time, log *logger.Logger) []contracts.Outcome {
	outcomes := make([]contracts.Outcome, len(instruments))
	if len(instruments) == 0 {
		return outcomes
	}

	workers := r.opts.Workers
	if workers > len(instruments) {
		workers = len(instruments)
	}

	taskCh := make(chan task, len(instruments))
	resultCh := make(chan taskResult, len(instruments))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskCh {
				resultCh <- taskResult{idx: t.idx, outcome: r.evaluate(ctx, t.inst, filter, from, to, log)}
			}
		}()
	}

	for i, inst := range instruments {
		taskCh <- task{idx: i, inst: inst}
	}
	close(taskCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for res := range resultCh {
		outcomes[res.idx] = res.outcome
	}
	return outcomes
}

// evaluate fetches, computes and filters one instrument. It never panics
// the run: every failure becomes an Outcome.
func (r *Runner) evaluate(ctx context.Context, inst contracts.Instrument, filter *screening.Filter, from, to time.Time, log *logger.Logger) (out contracts.Outcome) {
	start := time.Now()
	ilog := log.WithStock(inst.Code)

	defer func() {
		if p := recover(); p != nil {
			out = contracts.FetchError(inst, errors.New("panic while evaluating instrument"))
			ilog.WithField("panic", p).Error("Recovered from panic")
		}
		out.Duration = time.Since(start)
		r.logOutcome(ilog, out)
	}()

	if err := ctx.Err(); err != nil {
		return contracts.FetchError(inst, err)
	}

	callCtx, cancel := r.callContext(ctx)
	series, err := r.deps.Prices.FetchDailyBars(callCtx, inst.Code, from, to)
	cancel()
	if err != nil {
		if errors.Is(err, contracts.ErrNoData) {
			return contracts.InsufficientData(inst, err)
		}
		return contracts.FetchError(inst, err)
	}
	if err := series.Validate(); err != nil {
		return contracts.FetchError(inst, err)
	}

	signals, err := r.engine.Compute(series)
	if err != nil {
		if errors.Is(err, indicators.ErrInsufficientData) {
			return contracts.InsufficientData(inst, err)
		}
		return contracts.FetchError(inst, err)
	}

	return filter.Evaluate(ctx, inst, signals)
}

func (r *Runner) logOutcome(log *logger.Logger, out contracts.Outcome) {
	l := log.WithFields(map[string]interface{}{
		"outcome":  out.Kind,
		"duration": out.Duration.String(),
	})
	switch out.Kind {
	case contracts.OutcomeFetchError:
		l.WithField("kind", out.FetchKind).WithError(out.Err).Warn("Instrument fetch failed")
	case contracts.OutcomeRejected:
		l.WithField("reason", out.Reason).Debug("Instrument rejected")
	case contracts.OutcomeInsufficientData:
		l.Debug("Instrument skipped")
	default:
		l.Debug("Instrument qualified")
	}
}
