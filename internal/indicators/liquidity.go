package indicators

import (
	"fmt"
	"sort"
)

// Median returns the median of the trailing window values
func Median(values []float64, window int) (float64, error) {
	if window <= 0 || len(values) < window {
		return 0, fmt.Errorf("%w: median(%d) over %d values", ErrInsufficientData, window, len(values))
	}

	tail := make([]float64, window)
	copy(tail, values[len(values)-window:])
	sort.Float64s(tail)

	mid := window / 2
	if window%2 == 1 {
		return tail[mid], nil
	}
	return (tail[mid-1] + tail[mid]) / 2, nil
}

// VolumeRatio returns last volume / SMA(volume, window) * 100
func VolumeRatio(volumes []float64, window int) (float64, error) {
	avg, err := SMA(volumes, window)
	if err != nil {
		return 0, err
	}
	if avg == 0 {
		return 0, fmt.Errorf("%w: zero average volume", ErrInsufficientData)
	}
	return volumes[len(volumes)-1] / avg * 100, nil
}

// ActiveDays counts trailing window values at or above floor
func ActiveDays(values []float64, window int, floor float64) (int, error) {
	if window <= 0 || len(values) < window {
		return 0, fmt.Errorf("%w: active days(%d) over %d values", ErrInsufficientData, window, len(values))
	}

	count := 0
	for _, v := range values[len(values)-window:] {
		if v >= floor {
			count++
		}
	}
	return count, nil
}
