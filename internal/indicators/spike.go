package indicators

// RecentSpike reports whether any of the trailing lookback daily returns
// reached thresholdPct. Shorter series check what they have.
func RecentSpike(closes []float64, lookback int, thresholdPct float64) bool {
	start := len(closes) - lookback
	if start < 1 {
		start = 1
	}
	for i := start; i < len(closes); i++ {
		if closes[i-1] <= 0 {
			continue
		}
		if (closes[i]/closes[i-1]-1)*100 >= thresholdPct {
			return true
		}
	}
	return false
}
