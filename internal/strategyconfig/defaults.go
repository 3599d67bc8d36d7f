package strategyconfig

// Built-in preset names
const (
	PresetDisparity    = "disparity"
	PresetOversold     = "oversold"
	PresetAccumulation = "accumulation"
)

// Default returns the built-in presets used when no file is configured
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID:  "krx_screen_default",
			Description: "built-in KRX screening presets",
		},
		Indicators: IndicatorsConfig{
			MAPeriod:            20,
			RSIPeriod:           14,
			LiquidityWindow:     20,
			ActiveValueFloorKRW: 1_000_000_000,
			SpikeLookback:       6,
			SpikeThresholdPct:   10,
			TrendMAPeriod:       20,
		},
		Presets: []Preset{
			{
				Name:         PresetDisparity,
				Title:        "이격도 스캔",
				LookbackDays: 60,
				Schedule:     "40 15 * * 1-5",
				Rules: Rules{
					DisparityMax: Float(90),
				},
				Fundamentals: FundamentalsRule{Required: true},
				Flow:         FlowRule{Enabled: true, Policy: "both", Days: 3},
				SortBy:       "disparity",
			},
			{
				Name:         PresetOversold,
				Title:        "과매도 유동성 스캔",
				LookbackDays: 60,
				Rules: Rules{
					RSIMax:                Float(40),
					MedianTradingValueMin: Float(3_000_000_000),
				},
				Fundamentals: FundamentalsRule{Required: true},
				Flow:         FlowRule{Enabled: true, Policy: "both", Days: 3},
				SortBy:       "rsi",
			},
			{
				Name:         PresetAccumulation,
				Title:        "폭풍전야 스캔",
				LookbackDays: 650,
				Rules: Rules{
					AboveMA20:             true,
					AbsDayReturnMax:       Float(3),
					VolumeRatioMax:        Float(35),
					MedianTradingValueMin: Float(3_000_000_000),
					ActiveDaysMin:         Int(15),
					ExcludeRecentSpike:    true,
					AboveWeeklyMA20:       true,
					AboveMonthlyMA20:      true,
				},
				Fundamentals: FundamentalsRule{Required: true},
				Flow:         FlowRule{Enabled: true, Policy: "both", Days: 3, TopN: 5},
				SortBy:       "volume_ratio",
			},
		},
	}
}
