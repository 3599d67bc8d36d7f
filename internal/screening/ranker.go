package screening

import (
	"sort"

	"github.com/wonny/krxscan/internal/contracts"
	"github.com/wonny/krxscan/internal/strategyconfig"
)

// Selection is the ordered output of one run
type Selection struct {
	Qualified  []contracts.ScreeningResult
	DualBuying []contracts.ScreeningResult // 수급 상위 (기관+외국인 순매수 합 내림차순)
}

func sortKey(s *contracts.SignalSet, by string) float64 {
	switch by {
	case "rsi":
		return s.RSI
	case "volume_ratio":
		return s.VolumeRatio
	case "day_return":
		return s.DayReturn
	default:
		return s.Disparity
	}
}

// SortResults orders results ascending by the preset's primary signal,
// ties broken by instrument code so the order never depends on arrival.
func SortResults(results []contracts.ScreeningResult, by string) {
	sort.SliceStable(results, func(i, j int) bool {
		ki, kj := sortKey(&results[i].Signals, by), sortKey(&results[j].Signals, by)
		if ki != kj {
			return ki < kj
		}
		return results[i].Instrument.Code < results[j].Instrument.Code
	})
}

// TopDualBuying returns up to n dual-buying results, combined net descending
func TopDualBuying(results []contracts.ScreeningResult, n int) []contracts.ScreeningResult {
	if n <= 0 {
		return nil
	}

	var hot []contracts.ScreeningResult
	for _, r := range results {
		if r.DualBuying && r.Flow != nil {
			hot = append(hot, r)
		}
	}

	sort.SliceStable(hot, func(i, j int) bool {
		ci, cj := hot[i].Flow.Combined(), hot[j].Flow.Combined()
		if ci != cj {
			return ci > cj
		}
		return hot[i].Instrument.Code < hot[j].Instrument.Code
	})

	if len(hot) > n {
		hot = hot[:n]
	}
	return hot
}

// Select collects qualified outcomes and applies the preset ordering
func Select(outcomes []contracts.Outcome, preset strategyconfig.Preset) Selection {
	var qualified []contracts.ScreeningResult
	for _, o := range outcomes {
		if o.Kind == contracts.OutcomeQualified && o.Result != nil {
			qualified = append(qualified, *o.Result)
		}
	}

	SortResults(qualified, preset.SortBy)
	// 쌍끌이 순위는 MaxResults 절단 전 전체 통과 종목 기준
	dual := TopDualBuying(qualified, preset.Flow.TopN)
	if preset.MaxResults > 0 && len(qualified) > preset.MaxResults {
		qualified = qualified[:preset.MaxResults]
	}

	return Selection{
		Qualified:  qualified,
		DualBuying: dual,
	}
}
