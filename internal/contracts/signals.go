package contracts

// Trend is the position of the latest close relative to a resampled MA20
type Trend int

const (
	TrendUnknown Trend = iota // not enough resampled periods
	TrendAbove
	TrendBelow
)

func (t Trend) String() string {
	switch t {
	case TrendAbove:
		return "above"
	case TrendBelow:
		return "below"
	default:
		return "unknown"
	}
}

// SignalSet holds the indicators derived from one PriceSeries
// ⭐ SSOT: Indicator Engine → Qualification Filter 시그널 전달
type SignalSet struct {
	Code string `json:"code"`

	Close     float64 `json:"close"`
	DayReturn float64 `json:"day_return"` // 전일 대비 등락률 (%)

	MA20      float64 `json:"ma20"`
	Disparity float64 `json:"disparity"` // close / MA20 * 100
	RSI       float64 `json:"rsi"`

	VolumeRatio        float64 `json:"volume_ratio"`         // volume / SMA(volume,20) * 100
	TradingValueMedian float64 `json:"trading_value_median"` // 20일 거래대금 중앙값
	ActiveDays         int     `json:"active_days"`          // 최근 20일 중 거래대금 기준 이상인 날 수

	RecentSpike bool `json:"recent_spike"` // 최근 6거래일 내 +10% 이상 급등

	WeeklyTrend  Trend `json:"weekly_trend"`
	MonthlyTrend Trend `json:"monthly_trend"`
}

// AboveMA20 reports close >= MA20
func (s *SignalSet) AboveMA20() bool {
	return s.MA20 > 0 && s.Close >= s.MA20
}
