package dart

import (
	"fmt"
	"time"
)

const (
	reportQ1 = "11013"
	reportH1 = "11012"
	reportQ3 = "11014"

	// 013 응답 시 거슬러 올라가는 최대 보고서 수
	maxQuarterPeriods = 4
	maxAnnualPeriods  = 2
)

// reportPeriod is one filing (사업연도 + 보고서 코드)
type reportPeriod struct {
	Year int
	Code string
}

func (p reportPeriod) label() string {
	return fmt.Sprintf("%d %s", p.Year, quarterLabel(p.Code))
}

// quarterOrder is the within-year order from latest to earliest filing
var quarterOrder = []string{reportQ3, reportH1, reportQ1}

// quarterDeadline returns the filing deadline of a quarterly report in year.
// 분기/반기 보고서는 분기 말 + 45일 이내 제출
func quarterDeadline(year int, code string, loc *time.Location) time.Time {
	switch code {
	case reportQ1:
		return time.Date(year, time.May, 16, 0, 0, 0, 0, loc)
	case reportH1:
		return time.Date(year, time.August, 15, 0, 0, 0, 0, loc)
	default:
		return time.Date(year, time.November, 15, 0, 0, 0, 0, loc)
	}
}

// annualPeriods lists annual reports to try, latest first.
// 사업보고서는 3월 말까지 제출되므로 4월 전에는 전전년도가 최신
func (c *Client) annualPeriods() []reportPeriod {
	if c.opts.AnnualYear > 0 {
		return []reportPeriod{{Year: c.opts.AnnualYear, Code: reportAnnual}}
	}
	now := c.now().In(c.opts.Location)
	year := now.Year() - 1
	if now.Month() < time.April {
		year--
	}

	periods := make([]reportPeriod, 0, maxAnnualPeriods)
	for i := 0; i < maxAnnualPeriods; i++ {
		periods = append(periods, reportPeriod{Year: year - i, Code: reportAnnual})
	}
	return periods
}

// quarterPeriods lists quarterly reports to try, latest filed first.
// 11014 → 11012 → 11013 → 전년도 11014 순으로 거슬러 올라간다
func (c *Client) quarterPeriods() []reportPeriod {
	code := c.opts.QuarterReportCode
	if c.opts.QuarterYear > 0 {
		if code == "" {
			code = reportQ3
		}
		return []reportPeriod{{Year: c.opts.QuarterYear, Code: code}}
	}

	now := c.now().In(c.opts.Location)

	// 코드 고정: 해당 보고서가 제출된 가장 최근 연도와 그 전년도
	if code != "" {
		year := now.Year()
		if now.Before(quarterDeadline(year, code, c.opts.Location)) {
			year--
		}
		return []reportPeriod{{Year: year, Code: code}, {Year: year - 1, Code: code}}
	}

	year, idx := now.Year()-1, 0
	for i, q := range quarterOrder {
		if !now.Before(quarterDeadline(now.Year(), q, c.opts.Location)) {
			year, idx = now.Year(), i
			break
		}
	}

	periods := make([]reportPeriod, 0, maxQuarterPeriods)
	for len(periods) < maxQuarterPeriods {
		periods = append(periods, reportPeriod{Year: year, Code: quarterOrder[idx]})
		idx++
		if idx == len(quarterOrder) {
			year, idx = year-1, 0
		}
	}
	return periods
}
