package indicators

import (
	"time"

	"github.com/wonny/krxscan/internal/contracts"
)

// Period is a resampling granularity
type Period int

const (
	Weekly Period = iota
	Monthly
)

func periodKey(t time.Time, p Period) int {
	if p == Weekly {
		y, w := t.ISOWeek()
		return y*100 + w
	}
	return t.Year()*100 + int(t.Month())
}

// Resample returns the last close of each week or month, oldest first.
// The current, possibly incomplete period is included.
func Resample(bars []contracts.PriceBar, p Period) []float64 {
	var out []float64
	lastKey := -1
	for _, b := range bars {
		k := periodKey(b.Date, p)
		if k == lastKey && len(out) > 0 {
			out[len(out)-1] = b.Close
			continue
		}
		out = append(out, b.Close)
		lastKey = k
	}
	return out
}

// TrendAgainstMA compares close with the MA of the resampled closes
func TrendAgainstMA(bars []contracts.PriceBar, p Period, maPeriod int) contracts.Trend {
	if len(bars) == 0 {
		return contracts.TrendUnknown
	}

	ma, err := SMA(Resample(bars, p), maPeriod)
	if err != nil || ma == 0 {
		return contracts.TrendUnknown
	}

	if bars[len(bars)-1].Close > ma {
		return contracts.TrendAbove
	}
	return contracts.TrendBelow
}
