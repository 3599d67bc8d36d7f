package contracts

import "time"

// Market is the exchange segment an instrument trades on
type Market string

const (
	MarketKOSPI  Market = "KOSPI"
	MarketKOSDAQ Market = "KOSDAQ"
)

// Markets lists the segments a universe may draw from
func Markets() []Market {
	return []Market{MarketKOSPI, MarketKOSDAQ}
}

// Instrument is one listed equity. Identity = Code.
type Instrument struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Market    Market `json:"market"`
	Sector    string `json:"sector,omitempty"`
	MarketCap int64  `json:"market_cap,omitempty"` // 억원
}

// Universe represents the instruments screened in one run
// ⭐ SSOT: Universe Provider → 파이프라인 종목 전달
type Universe struct {
	Date        time.Time         `json:"date"`
	Instruments []Instrument      `json:"instruments"`
	Excluded    map[string]string `json:"excluded"`              // 제외 종목: 사유
	TotalCount  int               `json:"total_count,omitempty"` // 필터 전 전체 종목 수
}

// Contains checks if a stock code is in the universe
func (u *Universe) Contains(code string) bool {
	for _, inst := range u.Instruments {
		if inst.Code == code {
			return true
		}
	}
	return false
}

// IsExcluded checks if a stock code is excluded with reason
func (u *Universe) IsExcluded(code string) (bool, string) {
	reason, exists := u.Excluded[code]
	return exists, reason
}

// Count returns the number of instruments to screen
func (u *Universe) Count() int {
	return len(u.Instruments)
}

// Codes returns the instrument codes in universe order
func (u *Universe) Codes() []string {
	codes := make([]string, 0, len(u.Instruments))
	for _, inst := range u.Instruments {
		codes = append(codes, inst.Code)
	}
	return codes
}
