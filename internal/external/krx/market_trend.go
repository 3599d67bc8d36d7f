package krx

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/krxscan/internal/contracts"
)

// FetchMarketTrend fetches market-wide investor net purchases (억원)
// ⭐ SSOT: 시장 수급 지표 호출은 이 함수에서만
func (c *Client) FetchMarketTrend(ctx context.Context, market contracts.Market) (*contracts.MarketTrend, error) {
	if _, err := mktID(market); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/index/%s/trend", c.trendURL, market)

	var trend MarketTrendResponse
	if err := c.httpClient.GetJSON(ctx, url, &trend); err != nil {
		return nil, fmt.Errorf("market trend %s: %w", market, err)
	}
	if trend.Bizdate == "" {
		return nil, fmt.Errorf("market trend %s: %w", market, contracts.ErrNoData)
	}

	tradeDate, err := time.ParseInLocation("20060102", trend.Bizdate, c.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: trade date %q", contracts.ErrMalformed, trend.Bizdate)
	}

	result := &contracts.MarketTrend{
		Market:      market,
		Date:        tradeDate,
		Individual:  parseNetBuyVolume(trend.PersonalValue),
		Foreign:     parseNetBuyVolume(trend.ForeignValue),
		Institution: parseNetBuyVolume(trend.InstitutionValue),
	}

	c.logger.WithFields(map[string]interface{}{
		"market":       market,
		"trade_date":   tradeDate.Format("2006-01-02"),
		"foreign_net":  result.Foreign,
		"inst_net":     result.Institution,
		"personal_net": result.Individual,
	}).Debug("Fetched market trend")

	return result, nil
}

// parseNetBuyVolume parses net buy values like "+1,459" or "-1,240" to int64
func parseNetBuyVolume(s string) int64 {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if negative {
		return -int64(val)
	}
	return int64(val)
}
