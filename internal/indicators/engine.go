package indicators

import (
	"fmt"

	"github.com/wonny/krxscan/internal/contracts"
)

// Params holds the indicator windows
type Params struct {
	MAPeriod         int     // disparity / volume MA (20)
	RSIPeriod        int     // 14
	LiquidityWindow  int     // median trading value window (20)
	ActiveValueFloor float64 // per-day trading value floor for ActiveDays (1e9)
	SpikeLookback    int     // trailing daily returns checked for spikes (6)
	SpikeThreshold   float64 // percent (10)
	TrendMAPeriod    int     // weekly / monthly MA (20)
}

// DefaultParams returns the windows used by every built-in preset
func DefaultParams() Params {
	return Params{
		MAPeriod:         20,
		RSIPeriod:        14,
		LiquidityWindow:  20,
		ActiveValueFloor: 1_000_000_000,
		SpikeLookback:    6,
		SpikeThreshold:   10,
		TrendMAPeriod:    20,
	}
}

// Engine turns a PriceSeries into a SignalSet
// ⭐ SSOT: 지표 계산은 여기서만
type Engine struct {
	params Params
}

// NewEngine creates an engine with the given windows
func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

// MinBars is the shortest series Compute accepts
func (e *Engine) MinBars() int {
	n := e.params.MAPeriod
	if e.params.RSIPeriod+1 > n {
		n = e.params.RSIPeriod + 1
	}
	if e.params.LiquidityWindow > n {
		n = e.params.LiquidityWindow
	}
	return n
}

// MonthlyLookbackDays is the calendar span needed for a defined monthly trend
func (e *Engine) MonthlyLookbackDays() int {
	return 31 * e.params.TrendMAPeriod
}

// Compute derives every signal. Any undefined core indicator returns an
// error wrapping ErrInsufficientData; trend flags degrade to TrendUnknown.
func (e *Engine) Compute(series *contracts.PriceSeries) (*contracts.SignalSet, error) {
	if series == nil || series.Len() < e.MinBars() {
		n := 0
		if series != nil {
			n = series.Len()
		}
		return nil, fmt.Errorf("%w: %d bars, need %d", ErrInsufficientData, n, e.MinBars())
	}

	closes := series.Closes()
	volumes := series.Volumes()
	values := series.TradingValues()

	out := &contracts.SignalSet{
		Code:  series.Code,
		Close: closes[len(closes)-1],
	}

	var err error
	if out.Disparity, out.MA20, err = Disparity(closes, e.params.MAPeriod); err != nil {
		return nil, fmt.Errorf("disparity: %w", err)
	}
	if out.DayReturn, err = DayReturn(closes); err != nil {
		return nil, fmt.Errorf("day return: %w", err)
	}
	if out.RSI, err = RSI(closes, e.params.RSIPeriod); err != nil {
		return nil, fmt.Errorf("rsi: %w", err)
	}
	if out.TradingValueMedian, err = Median(values, e.params.LiquidityWindow); err != nil {
		return nil, fmt.Errorf("trading value: %w", err)
	}
	if out.ActiveDays, err = ActiveDays(values, e.params.LiquidityWindow, e.params.ActiveValueFloor); err != nil {
		return nil, fmt.Errorf("active days: %w", err)
	}

	// 거래정지 종목은 평균 거래량이 0
	if out.VolumeRatio, err = VolumeRatio(volumes, e.params.MAPeriod); err != nil {
		return nil, fmt.Errorf("volume ratio: %w", err)
	}

	out.RecentSpike = RecentSpike(closes, e.params.SpikeLookback, e.params.SpikeThreshold)
	out.WeeklyTrend = TrendAgainstMA(series.Bars, Weekly, e.params.TrendMAPeriod)
	out.MonthlyTrend = TrendAgainstMA(series.Bars, Monthly, e.params.TrendMAPeriod)

	return out, nil
}
