package screening

import (
	"math"

	"github.com/wonny/krxscan/internal/contracts"
	"github.com/wonny/krxscan/internal/strategyconfig"
)

// Predicate is one technical rule. Name doubles as the rejection reason.
type Predicate struct {
	Name  string
	Check func(s *contracts.SignalSet) bool
}

// BuildChain turns preset rules into an ordered predicate chain.
// Cheap single-value thresholds come first, trend checks last.
func BuildChain(r strategyconfig.Rules) []Predicate {
	var chain []Predicate

	if r.DisparityMax != nil {
		limit := *r.DisparityMax
		chain = append(chain, Predicate{"disparity_max", func(s *contracts.SignalSet) bool {
			return s.Disparity <= limit
		}})
	}
	if r.DisparityMin != nil {
		floor := *r.DisparityMin
		chain = append(chain, Predicate{"disparity_min", func(s *contracts.SignalSet) bool {
			return s.Disparity >= floor
		}})
	}
	if r.RSIMax != nil {
		limit := *r.RSIMax
		chain = append(chain, Predicate{"rsi_max", func(s *contracts.SignalSet) bool {
			return s.RSI <= limit
		}})
	}
	if r.AbsDayReturnMax != nil {
		limit := *r.AbsDayReturnMax
		chain = append(chain, Predicate{"day_return", func(s *contracts.SignalSet) bool {
			return math.Abs(s.DayReturn) <= limit
		}})
	}
	if r.VolumeRatioMax != nil {
		limit := *r.VolumeRatioMax
		chain = append(chain, Predicate{"volume_ratio_max", func(s *contracts.SignalSet) bool {
			return s.VolumeRatio <= limit
		}})
	}
	if r.AboveMA20 {
		chain = append(chain, Predicate{"below_ma20", func(s *contracts.SignalSet) bool {
			return s.AboveMA20()
		}})
	}
	if r.MedianTradingValueMin != nil {
		floor := *r.MedianTradingValueMin
		chain = append(chain, Predicate{"liquidity", func(s *contracts.SignalSet) bool {
			return s.TradingValueMedian >= floor
		}})
	}
	if r.ActiveDaysMin != nil {
		floor := *r.ActiveDaysMin
		chain = append(chain, Predicate{"active_days", func(s *contracts.SignalSet) bool {
			return s.ActiveDays >= floor
		}})
	}
	if r.ExcludeRecentSpike {
		chain = append(chain, Predicate{"recent_spike", func(s *contracts.SignalSet) bool {
			return !s.RecentSpike
		}})
	}
	if r.AboveWeeklyMA20 {
		chain = append(chain, Predicate{"weekly_trend", func(s *contracts.SignalSet) bool {
			return s.WeeklyTrend == contracts.TrendAbove
		}})
	}
	if r.AboveMonthlyMA20 {
		chain = append(chain, Predicate{"monthly_trend", func(s *contracts.SignalSet) bool {
			return s.MonthlyTrend == contracts.TrendAbove
		}})
	}

	return chain
}

// firstFailure runs the chain and returns the first failing rule name
func firstFailure(chain []Predicate, s *contracts.SignalSet) string {
	for _, p := range chain {
		if !p.Check(s) {
			return p.Name
		}
	}
	return ""
}
