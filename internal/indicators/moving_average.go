package indicators

import (
	"fmt"
	"math"
)

// SMA returns the simple moving average of the trailing period values
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 || len(values) < period {
		return 0, fmt.Errorf("%w: sma(%d) over %d values", ErrInsufficientData, period, len(values))
	}

	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	avg := sum / float64(period)

	if math.IsNaN(avg) || math.IsInf(avg, 0) {
		return 0, fmt.Errorf("%w: sma(%d) not finite", ErrInsufficientData, period)
	}
	return avg, nil
}

// Disparity returns last / SMA(period) * 100
func Disparity(closes []float64, period int) (ratio, ma float64, err error) {
	ma, err = SMA(closes, period)
	if err != nil {
		return 0, 0, err
	}
	if ma == 0 {
		return 0, 0, fmt.Errorf("%w: zero moving average", ErrInsufficientData)
	}
	return closes[len(closes)-1] / ma * 100, ma, nil
}

// DayReturn returns the last close-to-close change in percent
func DayReturn(closes []float64) (float64, error) {
	n := len(closes)
	if n < 2 || closes[n-2] == 0 {
		return 0, fmt.Errorf("%w: day return", ErrInsufficientData)
	}
	return (closes[n-1]/closes[n-2] - 1) * 100, nil
}
