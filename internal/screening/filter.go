package screening

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/krxscan/internal/contracts"
	"github.com/wonny/krxscan/internal/strategyconfig"
	"github.com/wonny/krxscan/pkg/logger"
)

// Rejection reasons produced after the technical chain
const (
	ReasonFundamentalsUnavailable = "fundamentals_unavailable"
	ReasonFundamentalsNegative    = "fundamentals_negative"
)

// Filter implements the Qualification Filter for one preset
// ⭐ SSOT: 종목 선별 조건은 여기서만 판정
type Filter struct {
	preset       strategyconfig.Preset
	chain        []Predicate
	fundamentals contracts.FundamentalsSource
	flow         contracts.FlowSource
	policy       contracts.FlowPolicy
	callTimeout  time.Duration
	logger       *logger.Logger
}

// Sources bundles the costly collaborators consulted after the technical chain
type Sources struct {
	Fundamentals contracts.FundamentalsSource
	Flow         contracts.FlowSource
}

// NewFilter builds a filter for preset. A preset that gates on profit
// needs a fundamentals source; flow is optional.
func NewFilter(preset strategyconfig.Preset, src Sources, callTimeout time.Duration, log *logger.Logger) (*Filter, error) {
	if preset.Fundamentals.Required && src.Fundamentals == nil {
		return nil, fmt.Errorf("preset %s requires a fundamentals source", preset.Name)
	}

	policy := contracts.FlowPolicy(preset.Flow.Policy)
	if !policy.Valid() {
		policy = contracts.FlowPolicyBoth
	}

	return &Filter{
		preset:       preset,
		chain:        BuildChain(preset.Rules),
		fundamentals: src.Fundamentals,
		flow:         src.Flow,
		policy:       policy,
		callTimeout:  callTimeout,
		logger:       log,
	}, nil
}

// Preset returns the preset this filter applies
func (f *Filter) Preset() strategyconfig.Preset {
	return f.preset
}

// CheckTechnical runs the predicate chain, returning the failing rule or ""
func (f *Filter) CheckTechnical(s *contracts.SignalSet) string {
	return firstFailure(f.chain, s)
}

// Evaluate applies the full chain to one instrument. External lookups run
// only after every technical rule passes.
func (f *Filter) Evaluate(ctx context.Context, inst contracts.Instrument, signals *contracts.SignalSet) contracts.Outcome {
	if reason := f.CheckTechnical(signals); reason != "" {
		return contracts.Rejected(inst, reason)
	}

	result := &contracts.ScreeningResult{
		Instrument: inst,
		Signals:    *signals,
	}

	if f.preset.Fundamentals.Required {
		fact, err := f.fetchFundamentals(ctx, inst)
		if err != nil {
			out := contracts.Rejected(inst, ReasonFundamentalsUnavailable)
			out.FetchKind = contracts.ClassifyFetchError(err)
			out.Err = err
			return out
		}
		switch fact.Sign() {
		case contracts.ProfitPositive:
			result.Fundamentals = fact
		case contracts.ProfitNegative:
			return contracts.Rejected(inst, ReasonFundamentalsNegative)
		default:
			return contracts.Rejected(inst, ReasonFundamentalsUnavailable)
		}
	}

	if f.preset.Flow.Enabled && f.flow != nil {
		result.Flow = f.fetchFlow(ctx, inst)
		result.DualBuying = result.Flow.IsDualBuying(f.policy)
	}

	return contracts.Qualified(result)
}

func (f *Filter) fetchFundamentals(ctx context.Context, inst contracts.Instrument) (*contracts.FundamentalsFact, error) {
	callCtx, cancel := f.withTimeout(ctx)
	defer cancel()

	fact, err := f.fundamentals.FetchFundamentals(callCtx, inst)
	if err != nil {
		f.logger.WithStock(inst.Code).WithError(err).Debug("fundamentals unavailable")
		return nil, fmt.Errorf("fundamentals %s: %w", inst.Code, err)
	}
	return fact, nil
}

// fetchFlow never fails; errors degrade to an unavailable marker
func (f *Filter) fetchFlow(ctx context.Context, inst contracts.Instrument) *contracts.FlowFact {
	callCtx, cancel := f.withTimeout(ctx)
	defer cancel()

	days := f.preset.Flow.Days
	if days <= 0 {
		days = 3
	}

	fact, err := f.flow.FetchFlow(callCtx, inst, days)
	if err != nil || fact == nil {
		f.logger.WithStock(inst.Code).WithError(err).Debug("flow unavailable")
		return contracts.Unavailable(inst.Code)
	}
	return fact
}

func (f *Filter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.callTimeout)
}
