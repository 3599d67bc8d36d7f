package naver

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/krxscan/internal/contracts"
)

var flowDateRe = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)

// flowRow is one day of the 외국인·기관 순매매 table
type flowRow struct {
	Date           time.Time
	InstitutionNet int64
	ForeignNet     int64
}

// FetchFlow sums the latest `days` rows of institutional and foreign net purchases
// ⭐ SSOT: Naver Finance 투자자 수급 데이터 호출은 이 함수에서만
func (c *Client) FetchFlow(ctx context.Context, inst contracts.Instrument, days int) (*contracts.FlowFact, error) {
	if days <= 0 {
		return nil, fmt.Errorf("flow window must be > 0, got %d", days)
	}

	doc, err := c.fetchDocument(ctx, "/item/frgn.naver", url.Values{
		"code": {inst.Code},
		"page": {"1"},
	})
	if err != nil {
		return nil, fmt.Errorf("flow %s: %w", inst.Code, err)
	}

	rows := parseInvestorTable(doc)
	if len(rows) == 0 {
		return nil, fmt.Errorf("flow %s: %w", inst.Code, contracts.ErrNoData)
	}
	if len(rows) > days {
		rows = rows[:days]
	}

	fact := &contracts.FlowFact{
		Code:      inst.Code,
		Available: true,
		Days:      len(rows),
		AsOf:      rows[0].Date,
	}
	for _, r := range rows {
		fact.Institutional += r.InstitutionNet
		fact.Foreign += r.ForeignNet
	}

	c.logger.WithFields(map[string]interface{}{
		"stock_code":    inst.Code,
		"institutional": fact.Institutional,
		"foreign":       fact.Foreign,
		"days":          fact.Days,
	}).Debug("Fetched investor flow")
	return fact, nil
}

// parseInvestorTable returns rows newest first, as the page lists them.
// 컬럼: 날짜 | 종가 | 전일비 | 등락률 | 거래량 | 기관 | 외국인 | ...
func parseInvestorTable(doc *goquery.Document) []flowRow {
	tables := doc.Find("table.type2")
	if tables.Length() < 2 {
		return nil
	}

	var rows []flowRow
	tables.Eq(1).Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 7 {
			return
		}
		dateText := strings.TrimSpace(cells.Eq(0).Text())
		if !flowDateRe.MatchString(dateText) {
			return
		}
		date, err := time.Parse("2006.01.02", dateText)
		if err != nil {
			return
		}
		rows = append(rows, flowRow{
			Date:           date,
			InstitutionNet: parseNum(cells.Eq(5).Text()),
			ForeignNet:     parseNum(cells.Eq(6).Text()),
		})
	})
	return rows
}
