package strategyconfig

import (
	"fmt"
	"regexp"

	"github.com/robfig/cron/v3"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var presetNameRe = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

var sortKeys = map[string]bool{
	"disparity":    true,
	"rsi":          true,
	"volume_ratio": true,
	"day_return":   true,
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	// === Indicators ===
	ind := cfg.Indicators
	if ind.MAPeriod < 2 {
		return ValidationError{"indicators.ma_period", "must be >= 2"}
	}
	if ind.RSIPeriod < 2 {
		return ValidationError{"indicators.rsi_period", "must be >= 2"}
	}
	if ind.LiquidityWindow < 1 {
		return ValidationError{"indicators.liquidity_window", "must be >= 1"}
	}
	if ind.ActiveValueFloorKRW <= 0 {
		return ValidationError{"indicators.active_value_floor_krw", "must be > 0"}
	}
	if ind.SpikeLookback < 1 {
		return ValidationError{"indicators.spike_lookback", "must be >= 1"}
	}
	if ind.SpikeThresholdPct <= 0 {
		return ValidationError{"indicators.spike_threshold_pct", "must be > 0"}
	}
	if ind.TrendMAPeriod < 2 {
		return ValidationError{"indicators.trend_ma_period", "must be >= 2"}
	}

	// === Presets ===
	if len(cfg.Presets) == 0 {
		return ValidationError{"presets", "at least one preset required"}
	}

	seen := make(map[string]bool)
	for i, p := range cfg.Presets {
		field := fmt.Sprintf("presets[%d]", i)
		if !presetNameRe.MatchString(p.Name) {
			return ValidationError{field + ".name", "must match " + presetNameRe.String()}
		}
		if seen[p.Name] {
			return ValidationError{field + ".name", "duplicate preset " + p.Name}
		}
		seen[p.Name] = true

		if err := validatePreset(field, p, ind); err != nil {
			return err
		}
	}

	return nil
}

func validatePreset(field string, p Preset, ind IndicatorsConfig) error {
	minLookback := ind.MAPeriod
	if ind.LiquidityWindow > minLookback {
		minLookback = ind.LiquidityWindow
	}
	// 달력일 기준이므로 거래일보다 넉넉해야 함
	if p.LookbackDays < minLookback*3/2 {
		return ValidationError{field + ".lookback_days", fmt.Sprintf("must be >= %d", minLookback*3/2)}
	}
	if p.NeedsMonthlyTrend() && p.LookbackDays < 31*ind.TrendMAPeriod {
		return ValidationError{field + ".lookback_days", "too short for monthly trend"}
	}
	if p.Schedule != "" {
		if _, err := cron.ParseStandard(p.Schedule); err != nil {
			return ValidationError{field + ".schedule", err.Error()}
		}
	}

	r := p.Rules
	if r.DisparityMax != nil && *r.DisparityMax <= 0 {
		return ValidationError{field + ".rules.disparity_max", "must be > 0"}
	}
	if r.DisparityMin != nil && r.DisparityMax != nil && *r.DisparityMin > *r.DisparityMax {
		return ValidationError{field + ".rules.disparity_min", "must be <= disparity_max"}
	}
	if r.RSIMax != nil && (*r.RSIMax < 0 || *r.RSIMax > 100) {
		return ValidationError{field + ".rules.rsi_max", "must be in [0, 100]"}
	}
	if r.MedianTradingValueMin != nil && *r.MedianTradingValueMin <= 0 {
		return ValidationError{field + ".rules.median_trading_value_min", "must be > 0"}
	}
	if r.AbsDayReturnMax != nil && *r.AbsDayReturnMax < 0 {
		return ValidationError{field + ".rules.abs_day_return_max", "must be >= 0"}
	}
	if r.VolumeRatioMax != nil && *r.VolumeRatioMax <= 0 {
		return ValidationError{field + ".rules.volume_ratio_max", "must be > 0"}
	}
	if r.ActiveDaysMin != nil && (*r.ActiveDaysMin < 0 || *r.ActiveDaysMin > ind.LiquidityWindow) {
		return ValidationError{field + ".rules.active_days_min", fmt.Sprintf("must be in [0, %d]", ind.LiquidityWindow)}
	}

	if !sortKeys[p.SortBy] {
		return ValidationError{field + ".sort_by", "must be one of disparity, rsi, volume_ratio, day_return"}
	}
	if p.MaxResults < 0 {
		return ValidationError{field + ".max_results", "must be >= 0"}
	}

	if p.Flow.Enabled {
		if p.Flow.Policy != "both" && p.Flow.Policy != "either" {
			return ValidationError{field + ".flow.policy", "must be both or either"}
		}
		if p.Flow.Days < 1 {
			return ValidationError{field + ".flow.days", "must be >= 1"}
		}
	}
	if p.Flow.TopN < 0 {
		return ValidationError{field + ".flow.top_n", "must be >= 0"}
	}
	if p.Flow.TopN > 0 && !p.Flow.Enabled {
		return ValidationError{field + ".flow.top_n", "requires flow.enabled"}
	}

	return nil
}
