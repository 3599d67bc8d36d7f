package contracts

import (
	"fmt"
	"time"
)

// PriceBar is one trading day
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// TradingValue returns close * volume (거래대금)
func (b PriceBar) TradingValue() float64 {
	return b.Close * float64(b.Volume)
}

// PriceSeries is the daily history of one instrument, date ascending
type PriceSeries struct {
	Code string     `json:"code"`
	Bars []PriceBar `json:"bars"`
}

// Len returns the number of bars
func (s *PriceSeries) Len() int {
	return len(s.Bars)
}

// Last returns the most recent bar
func (s *PriceSeries) Last() (PriceBar, bool) {
	if len(s.Bars) == 0 {
		return PriceBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Closes returns the close column
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Volumes returns the volume column as floats
func (s *PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = float64(b.Volume)
	}
	return out
}

// TradingValues returns close * volume per bar
func (s *PriceSeries) TradingValues() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.TradingValue()
	}
	return out
}

// Validate checks ascending order without duplicate dates
func (s *PriceSeries) Validate() error {
	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i].Date.After(s.Bars[i-1].Date) {
			return fmt.Errorf("%w: %s bar %d (%s) not after %s", ErrMalformed, s.Code, i,
				s.Bars[i].Date.Format("2006-01-02"), s.Bars[i-1].Date.Format("2006-01-02"))
		}
	}
	return nil
}
