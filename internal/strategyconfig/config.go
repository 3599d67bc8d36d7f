package strategyconfig

// Config is the declarative preset file
// ⭐ SSOT: 스캔 프리셋/임계값은 여기서만 정의
type Config struct {
	Meta       Meta             `yaml:"meta" json:"meta"`
	Indicators IndicatorsConfig `yaml:"indicators" json:"indicators"`
	Presets    []Preset         `yaml:"presets" json:"presets"`
}

// Meta identifies the preset set
type Meta struct {
	StrategyID  string `yaml:"strategy_id" json:"strategy_id"`
	Description string `yaml:"description" json:"description"`
}

// IndicatorsConfig sets the indicator windows shared by all presets
type IndicatorsConfig struct {
	MAPeriod            int     `yaml:"ma_period" json:"ma_period"`
	RSIPeriod           int     `yaml:"rsi_period" json:"rsi_period"`
	LiquidityWindow     int     `yaml:"liquidity_window" json:"liquidity_window"`
	ActiveValueFloorKRW float64 `yaml:"active_value_floor_krw" json:"active_value_floor_krw"`
	SpikeLookback       int     `yaml:"spike_lookback" json:"spike_lookback"`
	SpikeThresholdPct   float64 `yaml:"spike_threshold_pct" json:"spike_threshold_pct"`
	TrendMAPeriod       int     `yaml:"trend_ma_period" json:"trend_ma_period"`
}

// Preset is one named scan
type Preset struct {
	Name         string `yaml:"name" json:"name"`
	Title        string `yaml:"title" json:"title"` // 리포트 헤더에 쓰이는 이름
	LookbackDays int    `yaml:"lookback_days" json:"lookback_days"`
	Schedule     string `yaml:"schedule" json:"schedule"` // cron (빈 값 = 스케줄러 미등록)

	Rules        Rules            `yaml:"rules" json:"rules"`
	Fundamentals FundamentalsRule `yaml:"fundamentals" json:"fundamentals"`
	Flow         FlowRule         `yaml:"flow" json:"flow"`

	SortBy     string `yaml:"sort_by" json:"sort_by"`         // disparity, rsi, volume_ratio, day_return
	MaxResults int    `yaml:"max_results" json:"max_results"` // 0 = 전체
}

// Rules are the technical predicates. A nil pointer or false flag disables the rule.
type Rules struct {
	DisparityMax          *float64 `yaml:"disparity_max,omitempty" json:"disparity_max,omitempty"`
	DisparityMin          *float64 `yaml:"disparity_min,omitempty" json:"disparity_min,omitempty"`
	RSIMax                *float64 `yaml:"rsi_max,omitempty" json:"rsi_max,omitempty"`
	MedianTradingValueMin *float64 `yaml:"median_trading_value_min,omitempty" json:"median_trading_value_min,omitempty"`
	AbsDayReturnMax       *float64 `yaml:"abs_day_return_max,omitempty" json:"abs_day_return_max,omitempty"`
	VolumeRatioMax        *float64 `yaml:"volume_ratio_max,omitempty" json:"volume_ratio_max,omitempty"`
	ActiveDaysMin         *int     `yaml:"active_days_min,omitempty" json:"active_days_min,omitempty"`
	AboveMA20             bool     `yaml:"above_ma20" json:"above_ma20"`
	ExcludeRecentSpike    bool     `yaml:"exclude_recent_spike" json:"exclude_recent_spike"`
	AboveWeeklyMA20       bool     `yaml:"above_weekly_ma20" json:"above_weekly_ma20"`
	AboveMonthlyMA20      bool     `yaml:"above_monthly_ma20" json:"above_monthly_ma20"`
}

// FundamentalsRule gates on operating profit
type FundamentalsRule struct {
	Required bool `yaml:"required" json:"required"`
}

// FlowRule controls the informational investor flow lookup
type FlowRule struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Policy  string `yaml:"policy" json:"policy"` // both, either
	Days    int    `yaml:"days" json:"days"`
	TopN    int    `yaml:"top_n" json:"top_n"` // 0 = 수급 상위 목록 없음
}

// Preset looks up a preset by name
func (c *Config) Preset(name string) (Preset, bool) {
	for _, p := range c.Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// PresetNames returns preset names in file order
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for _, p := range c.Presets {
		names = append(names, p.Name)
	}
	return names
}

// NeedsFundamentals reports whether any named preset gates on profit
func (c *Config) NeedsFundamentals(names ...string) bool {
	for _, n := range names {
		if p, ok := c.Preset(n); ok && p.Fundamentals.Required {
			return true
		}
	}
	return false
}

// NeedsMonthlyTrend reports whether the preset requires a long lookback
func (p Preset) NeedsMonthlyTrend() bool {
	return p.Rules.AboveMonthlyMA20
}

// Float returns a pointer for rule literals
func Float(v float64) *float64 { return &v }

// Int returns a pointer for rule literals
func Int(v int) *int { return &v }
