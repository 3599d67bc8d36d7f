package dart

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/krxscan/internal/contracts"
)

const (
	reportAnnual         = "11011"
	operatingProfitLabel = "영업이익"
)

// finstateResponse represents the 단일회사 전체 재무제표 response
type finstateResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	List    []finstateRow `json:"list"`
}

type finstateRow struct {
	SjDiv        string `json:"sj_div"` // IS, CIS, BS ...
	AccountID    string `json:"account_id"`
	AccountNm    string `json:"account_nm"`
	ThstrmAmount string `json:"thstrm_amount"`
}

// FetchFundamentals returns operating profit from the latest filed annual
// report and the latest filed quarterly report.
// Both periods must be present; otherwise ErrFundamentalsUnavailable.
func (c *Client) FetchFundamentals(ctx context.Context, inst contracts.Instrument) (*contracts.FundamentalsFact, error) {
	corp, err := c.CorpCode(ctx, inst.Code)
	if err != nil {
		if errors.Is(err, ErrCorpNotFound) {
			return nil, fmt.Errorf("%w: %v", contracts.ErrFundamentalsUnavailable, err)
		}
		return nil, err
	}

	annualPeriods, quarterPeriods := c.annualPeriods(), c.quarterPeriods()
	periods := make([]contracts.PeriodProfit, 2)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := c.latestProfit(gctx, corp, annualPeriods)
		periods[0] = p
		return err
	})
	g.Go(func() error {
		p, err := c.latestProfit(gctx, corp, quarterPeriods)
		periods[1] = p
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fundamentals %s: %w", inst.Code, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"stock_code": inst.Code,
		"corp_code":  corp,
		"annual":     periods[0].Label,
		"quarter":    periods[1].Label,
	}).Debug("Fetched operating profit")

	return &contracts.FundamentalsFact{Code: inst.Code, Source: "dart", Periods: periods}, nil
}

// latestProfit walks periods in order and returns the first one DART has data for
func (c *Client) latestProfit(ctx context.Context, corp string, periods []reportPeriod) (contracts.PeriodProfit, error) {
	var lastErr error
	for _, p := range periods {
		amount, err := c.operatingProfit(ctx, corp, p.Year, p.Code)
		if err == nil {
			return contracts.PeriodProfit{Label: p.label(), Amount: amount}, nil
		}
		if !errors.Is(err, contracts.ErrNoData) {
			return contracts.PeriodProfit{}, err
		}
		lastErr = err
	}
	return contracts.PeriodProfit{}, lastErr
}

// operatingProfit reads 영업이익 from consolidated statements, falling back to separate ones
func (c *Client) operatingProfit(ctx context.Context, corp string, year int, reportCode string) (decimal.Decimal, error) {
	var lastErr error
	for _, fsDiv := range []string{"CFS", "OFS"} {
		rows, err := c.fetchFinstate(ctx, corp, year, reportCode, fsDiv)
		if err != nil {
			if errors.Is(err, contracts.ErrNoData) {
				lastErr = err
				continue
			}
			return decimal.Zero, err
		}
		amount, ok := findOperatingProfit(rows)
		if ok {
			return amount, nil
		}
		lastErr = fmt.Errorf("%s %d/%s: no operating profit row", fsDiv, year, reportCode)
	}
	return decimal.Zero, fmt.Errorf("%w: %w", contracts.ErrFundamentalsUnavailable, lastErr)
}

func (c *Client) fetchFinstate(ctx context.Context, corp string, year int, reportCode, fsDiv string) ([]finstateRow, error) {
	params := url.Values{
		"crtfc_key":  {c.opts.APIKey},
		"corp_code":  {corp},
		"bsns_year":  {strconv.Itoa(year)},
		"reprt_code": {reportCode},
		"fs_div":     {fsDiv},
	}

	var resp finstateResponse
	if err := c.httpClient.GetJSON(ctx, c.opts.BaseURL+"/fnlttSinglAcntAll.json?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case statusOK:
		return resp.List, nil
	case statusNoData:
		return nil, contracts.ErrNoData
	default:
		return nil, &APIError{Status: resp.Status, Message: resp.Message}
	}
}

// findOperatingProfit returns the first income statement row named 영업이익
func findOperatingProfit(rows []finstateRow) (decimal.Decimal, bool) {
	for _, r := range rows {
		if r.SjDiv != "" && r.SjDiv != "IS" && r.SjDiv != "CIS" {
			continue
		}
		name := strings.ReplaceAll(r.AccountNm, " ", "")
		if !strings.Contains(name, operatingProfitLabel) && r.AccountID != "dart_OperatingIncomeLoss" {
			continue
		}
		raw := strings.ReplaceAll(strings.TrimSpace(r.ThstrmAmount), ",", "")
		if raw == "" || raw == "-" {
			continue
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}
		return amount, true
	}
	return decimal.Zero, false
}

func quarterLabel(reportCode string) string {
	switch reportCode {
	case reportQ1:
		return "Q1"
	case reportH1:
		return "H1"
	case reportQ3:
		return "Q3"
	case reportAnnual:
		return "annual"
	}
	return reportCode
}
