package naver

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/krxscan/internal/contracts"
)

const sectorTTL = 24 * time.Hour

var industryNoRe = regexp.MustCompile(`type=upjong&no=(\d+)`)

type industry struct {
	No   string
	Name string
}

// FetchSectors returns stock code → 업종명 from the 업종별 시세 pages.
// The pages cover both markets, so market only scopes the log line.
// The mapping is cached for a day.
func (c *Client) FetchSectors(ctx context.Context, market contracts.Market) (map[string]string, error) {
	c.sectorMu.Lock()
	defer c.sectorMu.Unlock()

	if c.sectors != nil && time.Since(c.sectorsAt) < sectorTTL {
		return c.sectors, nil
	}

	doc, err := c.fetchDocument(ctx, "/sise/sise_group.naver", url.Values{"type": {"upjong"}})
	if err != nil {
		return nil, fmt.Errorf("industry list: %w", err)
	}
	industries := parseIndustries(doc)
	if len(industries) == 0 {
		return nil, fmt.Errorf("industry list: %w", contracts.ErrNoData)
	}

	var mu sync.Mutex
	sectors := make(map[string]string)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, ind := range industries {
		ind := ind
		g.Go(func() error {
			doc, err := c.fetchDocument(gctx, "/sise/sise_group_detail.naver", url.Values{
				"type": {"upjong"},
				"no":   {ind.No},
			})
			if err != nil {
				return fmt.Errorf("industry %s: %w", ind.No, err)
			}
			codes := parseIndustryMembers(doc)

			mu.Lock()
			for _, code := range codes {
				sectors[code] = ind.Name
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.sectors = sectors
	c.sectorsAt = time.Now()

	c.logger.WithFields(map[string]interface{}{
		"market":     market,
		"industries": len(industries),
		"stocks":     len(sectors),
	}).Debug("Fetched sectors")
	return sectors, nil
}

// parseIndustries reads the 업종 links of the 업종별 시세 page
func parseIndustries(doc *goquery.Document) []industry {
	var out []industry
	seen := make(map[string]bool)
	doc.Find(`a[href*="sise_group_detail"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := industryNoRe.FindStringSubmatch(href)
		name := strings.TrimSpace(a.Text())
		if m == nil || name == "" || seen[m[1]] {
			return
		}
		seen[m[1]] = true
		out = append(out, industry{No: m[1], Name: name})
	})
	return out
}

// parseIndustryMembers reads member stock codes of one 업종 detail page
func parseIndustryMembers(doc *goquery.Document) []string {
	var codes []string
	doc.Find(`table.type_5 a[href*="/item/main.naver"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if m := codeRe.FindStringSubmatch(href); m != nil {
			codes = append(codes, m[1])
		}
	})
	return codes
}
