package krx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/krxscan/internal/contracts"
	"github.com/wonny/krxscan/pkg/httputil"
)

const (
	listingPath = "/comm/bldAttendant/getJsonData.cmd"
	// 전종목 시세 (시가총액 포함)
	listingBld = "dbms/MDC/STAT/standard/MDCSTAT01501"
	// 휴장일이면 직전 영업일로 최대 이만큼 거슬러 올라감
	maxLookbackDays = 7
)

// krxListingResponse represents KRX API response
type krxListingResponse struct {
	OutBlock1 []krxListingRow `json:"OutBlock_1"`
}

// krxListingRow represents a row in KRX 전종목 시세 response
type krxListingRow struct {
	ISU_SRT_CD string `json:"ISU_SRT_CD"` // 종목코드 (단축)
	ISU_ABBRV  string `json:"ISU_ABBRV"`  // 종목명
	TDD_CLSPRC string `json:"TDD_CLSPRC"` // 종가
	MKTCAP     string `json:"MKTCAP"`     // 시가총액 (원)
	SECT_TP_NM string `json:"SECT_TP_NM"` // 소속부
}

func mktID(m contracts.Market) (string, error) {
	switch m {
	case contracts.MarketKOSPI:
		return "STK", nil
	case contracts.MarketKOSDAQ:
		return "KSQ", nil
	}
	return "", fmt.Errorf("unsupported market: %s", m)
}

// FetchListings returns up to limit instruments ordered by market cap desc
// ⭐ SSOT: KRX 종목 목록 조회는 이 함수에서만
func (c *Client) FetchListings(ctx context.Context, market contracts.Market, limit int) ([]contracts.Instrument, error) {
	id, err := mktID(market)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	day := lastSession(c.now().In(c.loc))
	for i := 0; i < maxLookbackDays; i++ {
		rows, err := c.fetchListingDay(ctx, id, day)
		if err != nil {
			return nil, fmt.Errorf("%s listing: %w", market, err)
		}
		if len(rows) > 0 {
			out := toInstruments(rows, market)
			if len(out) > limit {
				out = out[:limit]
			}
			c.logger.WithFields(map[string]interface{}{
				"market":     market,
				"trade_date": day.Format("20060102"),
				"count":      len(out),
			}).Debug("Fetched listings")
			return out, nil
		}
		day = previousWeekday(day)
	}

	return nil, fmt.Errorf("%s listing: %w", market, contracts.ErrNoData)
}

func (c *Client) fetchListingDay(ctx context.Context, id string, day time.Time) ([]krxListingRow, error) {
	data, err := c.postData(ctx, url.Values{
		"bld":         {listingBld},
		"locale":      {"ko_KR"},
		"mktId":       {id},
		"trdDd":       {day.Format("20060102")},
		"share":       {"1"},
		"money":       {"1"},
		"csvxls_isNo": {"false"},
	}, "MDC0201020101")
	if err != nil {
		return nil, err
	}

	var parsed krxListingResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode listing: %v", contracts.ErrMalformed, err)
	}
	return parsed.OutBlock1, nil
}

// postData posts a data portal query and returns the raw JSON body
func (c *Client) postData(ctx context.Context, form url.Values, menuID string) ([]byte, error) {
	body := form.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+listingPath, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(body)), nil }

	// KRX blocks requests without browser headers
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+"/contents/MDC/MDI/mdiLoader/index.cmd?menuId="+menuID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("KRX API request: %w", err)
	}
	return httputil.ReadBody(resp)
}

// toInstruments converts rows, dropping malformed codes, sorted by market cap desc
func toInstruments(rows []krxListingRow, market contracts.Market) []contracts.Instrument {
	type ranked struct {
		inst contracts.Instrument
		cap  int64
	}

	items := make([]ranked, 0, len(rows))
	for _, r := range rows {
		code := strings.TrimSpace(r.ISU_SRT_CD)
		if len(code) != 6 {
			continue
		}
		capWon := parseInt(r.MKTCAP)
		items = append(items, ranked{
			inst: contracts.Instrument{
				Code:      code,
				Name:      strings.TrimSpace(r.ISU_ABBRV),
				Market:    market,
				MarketCap: capWon / 100_000_000, // 원 → 억원
			},
			cap: capWon,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].cap != items[j].cap {
			return items[i].cap > items[j].cap
		}
		return items[i].inst.Code < items[j].inst.Code
	})

	out := make([]contracts.Instrument, len(items))
	for i, it := range items {
		out[i] = it.inst
	}
	return out
}

// lastSession returns the latest weekday whose session has closed (16:00 cutoff)
func lastSession(now time.Time) time.Time {
	day := now
	if now.Hour() < 16 {
		day = day.AddDate(0, 0, -1)
	}
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, -1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location())
}

func previousWeekday(day time.Time) time.Time {
	day = day.AddDate(0, 0, -1)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

func parseInt(s string) int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
