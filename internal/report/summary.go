package report

import (
	"sort"
	"time"

	"github.com/wonny/krxscan/internal/contracts"
)

// Summary counts what happened to every instrument in one run
type Summary struct {
	RunID       string                           `json:"run_id"`
	Preset      string                           `json:"preset"`
	StartedAt   time.Time                        `json:"started_at"`
	Duration    time.Duration                    `json:"duration"`
	Universe    int                              `json:"universe"`
	Outcomes    map[contracts.OutcomeKind]int    `json:"outcomes"`
	FetchErrors map[contracts.FetchErrorKind]int `json:"fetch_errors,omitempty"`
	Rejections  map[string]int                   `json:"rejections,omitempty"` // 탈락 조건별
	ConfigHash  string                           `json:"config_hash,omitempty"`
	Error       string                           `json:"error,omitempty"`
}

// Summarize tallies outcomes by kind, fetch error kind and rejection reason
func Summarize(outcomes []contracts.Outcome) Summary {
	s := Summary{
		Universe:    len(outcomes),
		Outcomes:    make(map[contracts.OutcomeKind]int),
		FetchErrors: make(map[contracts.FetchErrorKind]int),
		Rejections:  make(map[string]int),
	}
	for _, o := range outcomes {
		s.Outcomes[o.Kind]++
		if o.FetchKind != "" {
			s.FetchErrors[o.FetchKind]++
		}
		if o.Kind == contracts.OutcomeRejected && o.Reason != "" {
			s.Rejections[o.Reason]++
		}
	}
	return s
}

// Count returns the number of outcomes of kind k
func (s Summary) Count(k contracts.OutcomeKind) int {
	return s.Outcomes[k]
}

// TopRejections returns rejection reasons by count desc, name asc
func (s Summary) TopRejections(n int) []string {
	reasons := make([]string, 0, len(s.Rejections))
	for r := range s.Rejections {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool {
		ci, cj := s.Rejections[reasons[i]], s.Rejections[reasons[j]]
		if ci != cj {
			return ci > cj
		}
		return reasons[i] < reasons[j]
	})
	if n > 0 && len(reasons) > n {
		reasons = reasons[:n]
	}
	return reasons
}
