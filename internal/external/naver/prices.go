package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/krxscan/internal/contracts"
)

var priceRowRe = regexp.MustCompile(`\["(\d{8})",\s*([\d.]+),\s*([\d.]+),\s*([\d.]+),\s*([\d.]+),\s*([\d.]+)`)

// FetchDailyBars fetches daily bars from the Naver chart API
// ⭐ SSOT: Naver Finance 가격 API 호출은 이 함수에서만
func (c *Client) FetchDailyBars(ctx context.Context, code string, from, to time.Time) (*contracts.PriceSeries, error) {
	fullURL := fmt.Sprintf(
		"%s/siseJson.naver?symbol=%s&requestType=1&startTime=%s&endTime=%s&timeframe=day",
		c.chartURL, code, from.Format("20060102"), to.Format("20060102"),
	)

	body, err := c.httpClient.GetBytes(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", code, err)
	}

	bars, err := parsePriceResponse(string(body))
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", code, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("chart %s: %w", code, contracts.ErrNoData)
	}

	c.logger.WithFields(map[string]interface{}{
		"stock_code": code,
		"count":      len(bars),
	}).Debug("Fetched prices")

	return &contracts.PriceSeries{Code: code, Bars: bars}, nil
}

// parsePriceResponse parses the single-quoted JSON-ish array the chart API returns.
// Output is date ascending with duplicates and zero closes dropped.
func parsePriceResponse(body string) ([]contracts.PriceBar, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil
	}
	normalized := strings.ReplaceAll(body, "'", "\"")

	var rows [][]interface{}
	var bars []contracts.PriceBar
	if err := json.Unmarshal([]byte(normalized), &rows); err == nil {
		bars = parsePriceRows(rows)
	} else {
		// 응답 끝에 trailing comma 가 붙는 경우가 있어 정규식으로 재시도
		bars = parsePriceRegex(normalized)
		if len(bars) == 0 {
			return nil, fmt.Errorf("%w: chart body", contracts.ErrMalformed)
		}
	}

	return normalizeBars(bars), nil
}

func parsePriceRows(rows [][]interface{}) []contracts.PriceBar {
	var bars []contracts.PriceBar
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		date, err := time.Parse("20060102", strings.TrimSpace(dateStr))
		if err != nil {
			continue // header row
		}
		bars = append(bars, contracts.PriceBar{
			Date:   date,
			Open:   toFloat(row[1]),
			High:   toFloat(row[2]),
			Low:    toFloat(row[3]),
			Close:  toFloat(row[4]),
			Volume: int64(toFloat(row[5])),
		})
	}
	return bars
}

// parsePriceRegex parses using regex (fallback)
func parsePriceRegex(body string) []contracts.PriceBar {
	var bars []contracts.PriceBar
	for _, m := range priceRowRe.FindAllStringSubmatch(body, -1) {
		date, err := time.Parse("20060102", m[1])
		if err != nil {
			continue
		}
		f := func(s string) float64 {
			v, _ := strconv.ParseFloat(s, 64)
			return v
		}
		bars = append(bars, contracts.PriceBar{
			Date:   date,
			Open:   f(m[2]),
			High:   f(m[3]),
			Low:    f(m[4]),
			Close:  f(m[5]),
			Volume: int64(f(m[6])),
		})
	}
	return bars
}

func normalizeBars(bars []contracts.PriceBar) []contracts.PriceBar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	out := bars[:0]
	for _, b := range bars {
		if b.Close <= 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// toFloat converts various JSON scalar types to float64
func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, _ := strconv.ParseFloat(strings.ReplaceAll(val, ",", ""), 64)
		return f
	default:
		return 0
	}
}
