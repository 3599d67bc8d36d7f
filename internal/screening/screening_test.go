package screening

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/krxscan/internal/contracts"
	"github.com/wonny/krxscan/internal/strategyconfig"
	"github.com/wonny/krxscan/pkg/logger"
)

type fakeFundamentals struct {
	facts map[string]*contracts.FundamentalsFact
	err   error
	calls int32
}

func (f *fakeFundamentals) FetchFundamentals(ctx context.Context, inst contracts.Instrument) (*contracts.FundamentalsFact, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	fact, ok := f.facts[inst.Code]
	if !ok {
		return nil, contracts.ErrNoData
	}
	return fact, nil
}

type fakeFlow struct {
	facts map[string]*contracts.FlowFact
	err   error
}

func (f *fakeFlow) FetchFlow(ctx context.Context, inst contracts.Instrument, days int) (*contracts.FlowFact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.facts[inst.Code], nil
}

func profit(amounts ...int64) *contracts.FundamentalsFact {
	fact := &contracts.FundamentalsFact{Source: "test"}
	for _, a := range amounts {
		fact.Periods = append(fact.Periods, contracts.PeriodProfit{Label: "p", Amount: decimal.NewFromInt(a)})
	}
	return fact
}

func preset(name string) strategyconfig.Preset {
	p, _ := strategyconfig.Default().Preset(name)
	return p
}

func quietSignals() *contracts.SignalSet {
	return &contracts.SignalSet{
		Code:               "AAA",
		Close:              10_500,
		MA20:               10_000,
		Disparity:          105,
		DayReturn:          1.2,
		RSI:                55,
		VolumeRatio:        30,
		TradingValueMedian: 4e9,
		ActiveDays:         18,
		WeeklyTrend:        contracts.TrendAbove,
		MonthlyTrend:       contracts.TrendAbove,
	}
}

func TestBuildChain_Accumulation(t *testing.T) {
	chain := BuildChain(preset(strategyconfig.PresetAccumulation).Rules)
	assert.Equal(t, "", firstFailure(chain, quietSignals()))

	tests := []struct {
		name string
		edit func(s *contracts.SignalSet)
		want string
	}{
		{"big move", func(s *contracts.SignalSet) { s.DayReturn = -3.5 }, "day_return"},
		{"loud volume", func(s *contracts.SignalSet) { s.VolumeRatio = 36 }, "volume_ratio_max"},
		{"below ma20", func(s *contracts.SignalSet) { s.Close = 9_900 }, "below_ma20"},
		{"illiquid", func(s *contracts.SignalSet) { s.TradingValueMedian = 2.9e9 }, "liquidity"},
		{"few active days", func(s *contracts.SignalSet) { s.ActiveDays = 14 }, "active_days"},
		{"spike", func(s *contracts.SignalSet) { s.RecentSpike = true }, "recent_spike"},
		{"weekly unknown", func(s *contracts.SignalSet) { s.WeeklyTrend = contracts.TrendUnknown }, "weekly_trend"},
		{"monthly below", func(s *contracts.SignalSet) { s.MonthlyTrend = contracts.TrendBelow }, "monthly_trend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := quietSignals()
			tt.edit(s)
			assert.Equal(t, tt.want, firstFailure(chain, s))
		})
	}
}

func TestFilter_ShortCircuitsExternalCalls(t *testing.T) {
	fund := &fakeFundamentals{facts: map[string]*contracts.FundamentalsFact{"BBB": profit(10)}}
	f, err := NewFilter(preset(strategyconfig.PresetDisparity), Sources{Fundamentals: fund}, time.Second, logger.Nop())
	require.NoError(t, err)

	out := f.Evaluate(context.Background(), contracts.Instrument{Code: "BBB"}, &contracts.SignalSet{Disparity: 95})
	assert.Equal(t, contracts.OutcomeRejected, out.Kind)
	assert.Equal(t, "disparity_max", out.Reason)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fund.calls))
}

func TestFilter_FundamentalsFailClosed(t *testing.T) {
	tests := []struct {
		name   string
		fund   *fakeFundamentals
		reason string
		kind   contracts.OutcomeKind
	}{
		{"positive", &fakeFundamentals{facts: map[string]*contracts.FundamentalsFact{"AAA": profit(10, 20)}}, "", contracts.OutcomeQualified},
		{"negative quarter", &fakeFundamentals{facts: map[string]*contracts.FundamentalsFact{"AAA": profit(10, -1)}}, ReasonFundamentalsNegative, contracts.OutcomeRejected},
		{"unknown", &fakeFundamentals{facts: map[string]*contracts.FundamentalsFact{"AAA": profit()}}, ReasonFundamentalsUnavailable, contracts.OutcomeRejected},
		{"missing", &fakeFundamentals{facts: map[string]*contracts.FundamentalsFact{}}, ReasonFundamentalsUnavailable, contracts.OutcomeRejected},
		{"source error", &fakeFundamentals{err: context.DeadlineExceeded}, ReasonFundamentalsUnavailable, contracts.OutcomeRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFilter(preset(strategyconfig.PresetDisparity), Sources{Fundamentals: tt.fund}, time.Second, logger.Nop())
			require.NoError(t, err)

			out := f.Evaluate(context.Background(), contracts.Instrument{Code: "AAA"}, &contracts.SignalSet{Disparity: 88})
			assert.Equal(t, tt.kind, out.Kind)
			assert.Equal(t, tt.reason, out.Reason)
			if out.Kind == contracts.OutcomeQualified {
				require.NotNil(t, out.Result.Fundamentals)
				assert.Equal(t, contracts.ProfitPositive, out.Result.Fundamentals.Sign())
			}
		})
	}
}

func TestFilter_FlowFailOpen(t *testing.T) {
	fund := &fakeFundamentals{facts: map[string]*contracts.FundamentalsFact{"AAA": profit(1)}}
	flow := &fakeFlow{err: errors.New("portal down")}

	f, err := NewFilter(preset(strategyconfig.PresetDisparity), Sources{Fundamentals: fund, Flow: flow}, time.Second, logger.Nop())
	require.NoError(t, err)

	out := f.Evaluate(context.Background(), contracts.Instrument{Code: "AAA"}, &contracts.SignalSet{Disparity: 80})
	require.Equal(t, contracts.OutcomeQualified, out.Kind)
	require.NotNil(t, out.Result.Flow)
	assert.False(t, out.Result.Flow.Available)
	assert.False(t, out.Result.DualBuying)
}

func TestFilter_DualBuyingPolicy(t *testing.T) {
	fund := &fakeFundamentals{facts: map[string]*contracts.FundamentalsFact{"AAA": profit(1)}}
	flow := &fakeFlow{facts: map[string]*contracts.FlowFact{
		"AAA": {Code: "AAA", Available: true, Institutional: 100, Foreign: -10, Days: 3},
	}}

	for policy, want := range map[string]bool{"both": false, "either": true} {
		p := preset(strategyconfig.PresetDisparity)
		p.Flow.Policy = policy

		f, err := NewFilter(p, Sources{Fundamentals: fund, Flow: flow}, time.Second, logger.Nop())
		require.NoError(t, err)

		out := f.Evaluate(context.Background(), contracts.Instrument{Code: "AAA"}, &contracts.SignalSet{Disparity: 80})
		require.Equal(t, contracts.OutcomeQualified, out.Kind)
		assert.Equal(t, want, out.Result.DualBuying, policy)
	}
}

func TestNewFilter_RequiresFundamentalsSource(t *testing.T) {
	_, err := NewFilter(preset(strategyconfig.PresetOversold), Sources{}, time.Second, logger.Nop())
	assert.Error(t, err)
}

// Tightening a threshold never grows the qualifying set.
func TestFilter_Monotonic(t *testing.T) {
	var population []*contracts.SignalSet
	for i := 0; i < 50; i++ {
		population = append(population, &contracts.SignalSet{
			RSI:                float64(i * 2),
			Disparity:          80 + float64(i%25),
			TradingValueMedian: float64(i%10) * 1e9,
		})
	}

	count := func(rules strategyconfig.Rules) int {
		chain := BuildChain(rules)
		n := 0
		for _, s := range population {
			if firstFailure(chain, s) == "" {
				n++
			}
		}
		return n
	}

	prev := len(population) + 1
	for _, cutoff := range []float64{80, 60, 40, 20, 0} {
		n := count(strategyconfig.Rules{RSIMax: strategyconfig.Float(cutoff), MedianTradingValueMin: strategyconfig.Float(3e9)})
		assert.LessOrEqual(t, n, prev, "rsi cutoff %v", cutoff)
		prev = n
	}

	prev = len(population) + 1
	for _, cutoff := range []float64{100, 95, 90, 85, 80} {
		n := count(strategyconfig.Rules{DisparityMax: strategyconfig.Float(cutoff)})
		assert.LessOrEqual(t, n, prev, "disparity cutoff %v", cutoff)
		prev = n
	}
}

func result(code string, disparity float64, flow *contracts.FlowFact) contracts.ScreeningResult {
	return contracts.ScreeningResult{
		Instrument: contracts.Instrument{Code: code},
		Signals:    contracts.SignalSet{Code: code, Disparity: disparity},
		Flow:       flow,
		DualBuying: flow.IsDualBuying(contracts.FlowPolicyBoth),
	}
}

func TestSelect_DeterministicOrder(t *testing.T) {
	outcomes := []contracts.Outcome{
		contracts.Qualified(&contracts.ScreeningResult{Instrument: contracts.Instrument{Code: "CCC"}, Signals: contracts.SignalSet{Disparity: 85}}),
		contracts.Rejected(contracts.Instrument{Code: "ZZZ"}, "disparity_max"),
		contracts.Qualified(&contracts.ScreeningResult{Instrument: contracts.Instrument{Code: "BBB"}, Signals: contracts.SignalSet{Disparity: 85}}),
		contracts.Qualified(&contracts.ScreeningResult{Instrument: contracts.Instrument{Code: "AAA"}, Signals: contracts.SignalSet{Disparity: 89}}),
	}

	sel := Select(outcomes, preset(strategyconfig.PresetDisparity))
	require.Len(t, sel.Qualified, 3)
	assert.Equal(t, "BBB", sel.Qualified[0].Instrument.Code)
	assert.Equal(t, "CCC", sel.Qualified[1].Instrument.Code)
	assert.Equal(t, "AAA", sel.Qualified[2].Instrument.Code)
	assert.Empty(t, sel.DualBuying)
}

func TestTopDualBuying(t *testing.T) {
	results := []contracts.ScreeningResult{
		result("A", 90, &contracts.FlowFact{Available: true, Institutional: 10, Foreign: 10}),
		result("B", 90, &contracts.FlowFact{Available: true, Institutional: 500, Foreign: 1}),
		result("C", 90, &contracts.FlowFact{Available: true, Institutional: -5, Foreign: 900}),
		result("D", 90, contracts.Unavailable("D")),
		result("E", 90, &contracts.FlowFact{Available: true, Institutional: 15, Foreign: 5}),
	}

	top := TopDualBuying(results, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "B", top[0].Instrument.Code)
	assert.Equal(t, "A", top[1].Instrument.Code)

	assert.Nil(t, TopDualBuying(results, 0))
}

func TestSelect_DualBuyingIgnoresMaxResults(t *testing.T) {
	strong := &contracts.FlowFact{Available: true, Institutional: 9000, Foreign: 9000}
	weak := &contracts.FlowFact{Available: true, Institutional: 1, Foreign: 1}

	qualify := func(r contracts.ScreeningResult) contracts.Outcome { return contracts.Qualified(&r) }
	outcomes := []contracts.Outcome{
		qualify(result("AAA", 80, weak)),
		qualify(result("BBB", 81, nil)),
		qualify(result("CCC", 95, strong)),
	}

	p := preset(strategyconfig.PresetDisparity)
	p.MaxResults = 2
	p.Flow.TopN = 2

	sel := Select(outcomes, p)
	require.Len(t, sel.Qualified, 2)
	assert.Equal(t, "AAA", sel.Qualified[0].Instrument.Code)
	assert.Equal(t, "BBB", sel.Qualified[1].Instrument.Code)

	require.Len(t, sel.DualBuying, 2)
	assert.Equal(t, "CCC", sel.DualBuying[0].Instrument.Code)
	assert.Equal(t, "AAA", sel.DualBuying[1].Instrument.Code)
}
