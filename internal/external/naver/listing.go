package naver

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/krxscan/internal/contracts"
)

const listingPageSize = 50

var codeRe = regexp.MustCompile(`code=(\d{6})`)

func sosok(m contracts.Market) (string, error) {
	switch m {
	case contracts.MarketKOSPI:
		return "0", nil
	case contracts.MarketKOSDAQ:
		return "1", nil
	}
	return "", fmt.Errorf("unsupported market: %s", m)
}

// FetchListings returns up to limit instruments in market-cap order from the
// 시가총액 ranking pages. Pages are fetched concurrently.
// ⭐ SSOT: Naver 종목 목록 호출은 이 함수에서만
func (c *Client) FetchListings(ctx context.Context, market contracts.Market, limit int) ([]contracts.Instrument, error) {
	code, err := sosok(market)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	pages := (limit + listingPageSize - 1) / listingPageSize
	results := make([][]contracts.Instrument, pages)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for p := 0; p < pages; p++ {
		p := p
		g.Go(func() error {
			doc, err := c.fetchDocument(gctx, "/sise/sise_market_sum.naver", url.Values{
				"sosok": {code},
				"page":  {strconv.Itoa(p + 1)},
			})
			if err != nil {
				return fmt.Errorf("listing page %d: %w", p+1, err)
			}
			results[p] = parseListing(doc, market)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []contracts.Instrument
	for _, page := range results {
		out = append(out, page...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s listing: %w", market, contracts.ErrNoData)
	}
	if len(out) > limit {
		out = out[:limit]
	}

	c.logger.WithFields(map[string]interface{}{
		"market": market,
		"pages":  pages,
		"count":  len(out),
	}).Debug("Fetched listings")
	return out, nil
}

// parseListing extracts instruments from a 시가총액 page.
// 컬럼: N | 종목명 | 현재가 | 전일비 | 등락률 | 액면가 | 시가총액(억) | ...
func parseListing(doc *goquery.Document, market contracts.Market) []contracts.Instrument {
	var out []contracts.Instrument
	doc.Find("table.type_2 tr").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a.tltle")
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		m := codeRe.FindStringSubmatch(href)
		if m == nil {
			return
		}

		inst := contracts.Instrument{
			Code:   m[1],
			Name:   strings.TrimSpace(link.Text()),
			Market: market,
		}
		if cells := row.Find("td"); cells.Length() > 6 {
			inst.MarketCap = parseNum(cells.Eq(6).Text())
		}
		out = append(out, inst)
	})
	return out
}
