package contracts

import (
	"context"
	"time"
)

// ListingSource returns listed instruments for a segment in market-cap order
// ⭐ SSOT: 종목 목록 수집 인터페이스
type ListingSource interface {
	FetchListings(ctx context.Context, market Market, limit int) ([]Instrument, error)
}

// SectorSource maps the stock codes of a market to their industry name
type SectorSource interface {
	FetchSectors(ctx context.Context, market Market) (map[string]string, error)
}

// PriceSource returns the daily series for one instrument.
// A source with nothing for the code returns ErrNoData.
type PriceSource interface {
	FetchDailyBars(ctx context.Context, code string, from, to time.Time) (*PriceSeries, error)
}

// FundamentalsSource returns operating profit facts for one instrument
type FundamentalsSource interface {
	FetchFundamentals(ctx context.Context, inst Instrument) (*FundamentalsFact, error)
}

// FlowSource returns trailing investor net purchases for one instrument
type FlowSource interface {
	FetchFlow(ctx context.Context, inst Instrument, days int) (*FlowFact, error)
}

// MarketTrendSource returns the market-wide investor trend
type MarketTrendSource interface {
	FetchMarketTrend(ctx context.Context, market Market) (*MarketTrend, error)
}

// Notifier delivers one text payload to the notification sink
type Notifier interface {
	Send(ctx context.Context, text string) error
}
