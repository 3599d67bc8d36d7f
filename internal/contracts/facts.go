package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProfitSign is the operating profit determination for an instrument
type ProfitSign int

const (
	ProfitUnknown ProfitSign = iota
	ProfitPositive
	ProfitNegative
)

func (p ProfitSign) String() string {
	switch p {
	case ProfitPositive:
		return "positive"
	case ProfitNegative:
		return "negative"
	default:
		return "unknown"
	}
}

// PeriodProfit is one reported operating profit figure
type PeriodProfit struct {
	Label  string          `json:"label"`  // e.g. "2024 annual", "2025 Q3"
	Amount decimal.Decimal `json:"amount"` // 원
}

// FundamentalsFact carries the operating profit periods used by the profit gate
type FundamentalsFact struct {
	Code    string         `json:"code"`
	Source  string         `json:"source"` // dart, naver
	Periods []PeriodProfit `json:"periods"`
}

// Sign is positive only when every required period is present and > 0.
// No periods means unknown.
func (f *FundamentalsFact) Sign() ProfitSign {
	if f == nil || len(f.Periods) == 0 {
		return ProfitUnknown
	}
	for _, p := range f.Periods {
		if !p.Amount.IsPositive() {
			return ProfitNegative
		}
	}
	return ProfitPositive
}

// FlowPolicy decides when investor flow counts as dual buying
type FlowPolicy string

const (
	FlowPolicyBoth   FlowPolicy = "both"   // 기관 AND 외국인 순매수
	FlowPolicyEither FlowPolicy = "either" // 기관 OR 외국인 순매수
)

// Valid reports whether p is a known policy
func (p FlowPolicy) Valid() bool {
	return p == FlowPolicyBoth || p == FlowPolicyEither
}

// FlowFact is the trailing net purchase quantity by investor category
type FlowFact struct {
	Code          string    `json:"code"`
	Available     bool      `json:"available"`
	Institutional int64     `json:"institutional"` // 기관 순매수 (주)
	Foreign       int64     `json:"foreign"`       // 외국인 순매수 (주)
	Days          int       `json:"days"`
	AsOf          time.Time `json:"as_of"`
}

// Unavailable returns the degraded marker used when the flow lookup fails
func Unavailable(code string) *FlowFact {
	return &FlowFact{Code: code, Available: false}
}

// Combined returns institutional + foreign net
func (f *FlowFact) Combined() int64 {
	return f.Institutional + f.Foreign
}

// IsDualBuying applies the policy. Unavailable flow is never dual buying.
func (f *FlowFact) IsDualBuying(policy FlowPolicy) bool {
	if f == nil || !f.Available {
		return false
	}
	if policy == FlowPolicyEither {
		return f.Institutional > 0 || f.Foreign > 0
	}
	return f.Institutional > 0 && f.Foreign > 0
}

// MarketTrend is the market-wide net purchase by investor category (억원)
type MarketTrend struct {
	Market      Market    `json:"market"`
	Date        time.Time `json:"date"`
	Individual  int64     `json:"individual"`
	Foreign     int64     `json:"foreign"`
	Institution int64     `json:"institution"`
}
