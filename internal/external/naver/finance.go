package naver

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/wonny/krxscan/internal/contracts"
)

// 기업실적분석 표 금액 단위 (억원)
var eok = decimal.NewFromInt(100_000_000)

const operatingProfitLabel = "영업이익"

// FetchFundamentals reads the latest confirmed annual and quarterly operating
// profit from the 기업실적분석 section of the item page. Estimates marked (E)
// are skipped.
func (c *Client) FetchFundamentals(ctx context.Context, inst contracts.Instrument) (*contracts.FundamentalsFact, error) {
	doc, err := c.fetchDocument(ctx, "/item/main.naver", url.Values{"code": {inst.Code}})
	if err != nil {
		return nil, fmt.Errorf("fundamentals %s: %w", inst.Code, err)
	}

	periods, err := parseOperatingProfit(doc)
	if err != nil {
		return nil, fmt.Errorf("fundamentals %s: %w", inst.Code, err)
	}

	return &contracts.FundamentalsFact{
		Code:    inst.Code,
		Source:  "naver",
		Periods: periods,
	}, nil
}

// parseOperatingProfit returns [latest annual, latest quarter]
func parseOperatingProfit(doc *goquery.Document) ([]contracts.PeriodProfit, error) {
	table := doc.Find("div.section.cop_analysis table").First()
	if table.Length() == 0 {
		return nil, contracts.ErrFundamentalsUnavailable
	}

	headRows := table.Find("thead tr")
	if headRows.Length() < 2 {
		return nil, fmt.Errorf("%w: header rows", contracts.ErrMalformed)
	}

	// 첫 헤더 행: "최근 연간 실적" colspan 이 연간 컬럼 수
	annualCount := 0
	headRows.Eq(0).Find("th").Each(func(_ int, th *goquery.Selection) {
		if strings.Contains(th.Text(), "연간") {
			annualCount, _ = strconv.Atoi(th.AttrOr("colspan", "0"))
		}
	})

	var labels []string
	headRows.Eq(1).Find("th").Each(func(_ int, th *goquery.Selection) {
		labels = append(labels, strings.Join(strings.Fields(th.Text()), ""))
	})
	if annualCount <= 0 || annualCount >= len(labels) {
		return nil, fmt.Errorf("%w: period columns", contracts.ErrMalformed)
	}

	var values []string
	table.Find("tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if strings.TrimSpace(row.Find("th").First().Text()) != operatingProfitLabel {
			return true
		}
		row.Find("td").Each(func(_ int, td *goquery.Selection) {
			values = append(values, strings.TrimSpace(td.Text()))
		})
		return false
	})
	if len(values) == 0 {
		return nil, contracts.ErrFundamentalsUnavailable
	}

	annual, ok := latestConfirmed(labels[:annualCount], values, 0)
	if !ok {
		return nil, contracts.ErrFundamentalsUnavailable
	}
	quarter, ok := latestConfirmed(labels[annualCount:], values, annualCount)
	if !ok {
		return nil, contracts.ErrFundamentalsUnavailable
	}

	annual.Label += " annual"
	quarter.Label += " quarter"
	return []contracts.PeriodProfit{annual, quarter}, nil
}

// latestConfirmed scans labels right to left for the newest non-estimate value
func latestConfirmed(labels, values []string, offset int) (contracts.PeriodProfit, bool) {
	for i := len(labels) - 1; i >= 0; i-- {
		if strings.Contains(labels[i], "(E)") {
			continue
		}
		idx := offset + i
		if idx >= len(values) {
			continue
		}
		raw := strings.ReplaceAll(values[idx], ",", "")
		if raw == "" || raw == "-" {
			continue
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}
		return contracts.PeriodProfit{Label: labels[i], Amount: amount.Mul(eok)}, true
	}
	return contracts.PeriodProfit{}, false
}
