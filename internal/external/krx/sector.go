package krx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/krxscan/internal/contracts"
)

// 업종분류 현황
const sectorBld = "dbms/MDC/STAT/standard/MDCSTAT03901"

type krxSectorResponse struct {
	Block1 []krxSectorRow `json:"block1"`
}

type krxSectorRow struct {
	ISU_SRT_CD string `json:"ISU_SRT_CD"`
	ISU_ABBRV  string `json:"ISU_ABBRV"`
	IDX_IND_NM string `json:"IDX_IND_NM"` // 업종명
}

// FetchSectors returns stock code → 업종명 for market from the latest session
func (c *Client) FetchSectors(ctx context.Context, market contracts.Market) (map[string]string, error) {
	id, err := mktID(market)
	if err != nil {
		return nil, err
	}

	day := lastSession(c.now().In(c.loc))
	for i := 0; i < maxLookbackDays; i++ {
		rows, err := c.fetchSectorDay(ctx, id, day)
		if err != nil {
			return nil, fmt.Errorf("%s sectors: %w", market, err)
		}
		if len(rows) > 0 {
			sectors := make(map[string]string, len(rows))
			for _, r := range rows {
				code, name := strings.TrimSpace(r.ISU_SRT_CD), strings.TrimSpace(r.IDX_IND_NM)
				if len(code) == 6 && name != "" {
					sectors[code] = name
				}
			}
			c.logger.WithFields(map[string]interface{}{
				"market":     market,
				"trade_date": day.Format("20060102"),
				"count":      len(sectors),
			}).Debug("Fetched sectors")
			return sectors, nil
		}
		day = previousWeekday(day)
	}

	return nil, fmt.Errorf("%s sectors: %w", market, contracts.ErrNoData)
}

func (c *Client) fetchSectorDay(ctx context.Context, id string, day time.Time) ([]krxSectorRow, error) {
	data, err := c.postData(ctx, url.Values{
		"bld":         {sectorBld},
		"locale":      {"ko_KR"},
		"mktId":       {id},
		"trdDd":       {day.Format("20060102")},
		"money":       {"1"},
		"csvxls_isNo": {"false"},
	}, "MDC0201020506")
	if err != nil {
		return nil, err
	}

	var parsed krxSectorResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode sectors: %v", contracts.ErrMalformed, err)
	}
	return parsed.Block1, nil
}
