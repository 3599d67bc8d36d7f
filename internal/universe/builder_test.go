package universe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/krxscan/internal/contracts"
	"github.com/wonny/krxscan/internal/external/naver"
	"github.com/wonny/krxscan/pkg/httputil"
	"github.com/wonny/krxscan/pkg/logger"
)

type fakeListing struct {
	mu       sync.Mutex
	byMarket map[contracts.Market][]contracts.Instrument
	errs     map[contracts.Market]error
	limits   map[contracts.Market]int
	sectors  map[string]string
}

func (f *fakeListing) FetchSectors(ctx context.Context, m contracts.Market) (map[string]string, error) {
	return f.sectors, nil
}

func (f *fakeListing) FetchListings(ctx context.Context, m contracts.Market, limit int) ([]contracts.Instrument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.limits == nil {
		f.limits = map[contracts.Market]int{}
	}
	f.limits[m] = limit
	if err := f.errs[m]; err != nil {
		return nil, err
	}
	return f.byMarket[m], nil
}

func inst(code, name string) contracts.Instrument {
	return contracts.Instrument{Code: code, Name: name}
}

func TestBuilder_Build(t *testing.T) {
	src := &fakeListing{byMarket: map[contracts.Market][]contracts.Instrument{
		contracts.MarketKOSPI: {
			inst("005930", "삼성전자"),
			inst("000660", "SK하이닉스"),
			inst("069500", "KODEX 200"),
			inst("373220", "LG에너지솔루션"),
		},
		contracts.MarketKOSDAQ: {
			inst("247540", "에코프로비엠"),
			inst("440790", "하나금융25호스팩"),
			inst("005930", "삼성전자"),
			inst("086520", "에코프로"),
		},
	}}

	cfg := Config{
		Limits:      map[contracts.Market]int{contracts.MarketKOSPI: 2, contracts.MarketKOSDAQ: 10},
		ExcludeSPAC: true,
		ExcludeETF:  true,
	}
	date := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)

	u, err := NewBuilder(src, cfg, logger.Nop()).Build(context.Background(), date)
	require.NoError(t, err)

	assert.Equal(t, date, u.Date)
	assert.Equal(t, []string{"005930", "000660", "247540", "086520"}, u.Codes())
	assert.Equal(t, 8, u.TotalCount)

	assert.Equal(t, contracts.MarketKOSPI, u.Instruments[0].Market)
	assert.Equal(t, contracts.MarketKOSDAQ, u.Instruments[2].Market)

	_, reason := u.IsExcluded("440790")
	assert.Equal(t, ReasonSPAC, reason)
	_, reason = u.IsExcluded("069500")
	assert.Equal(t, ReasonFund, reason)

	// 20% headroom
	assert.Equal(t, 2, src.limits[contracts.MarketKOSPI])
	assert.Equal(t, 12, src.limits[contracts.MarketKOSDAQ])
}

func TestBuilder_DisabledMarketIsSkipped(t *testing.T) {
	src := &fakeListing{
		byMarket: map[contracts.Market][]contracts.Instrument{
			contracts.MarketKOSPI: {inst("005930", "삼성전자")},
		},
		errs: map[contracts.Market]error{contracts.MarketKOSDAQ: errors.New("should not be called")},
	}

	cfg := Config{Limits: map[contracts.Market]int{contracts.MarketKOSPI: 5}}
	u, err := NewBuilder(src, cfg, logger.Nop()).Build(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, u.Count())
}

func TestBuilder_ListingFailureIsFatal(t *testing.T) {
	src := &fakeListing{
		byMarket: map[contracts.Market][]contracts.Instrument{
			contracts.MarketKOSPI: {inst("005930", "삼성전자")},
		},
		errs: map[contracts.Market]error{contracts.MarketKOSDAQ: errors.New("503")},
	}

	cfg := Config{Limits: map[contracts.Market]int{contracts.MarketKOSPI: 5, contracts.MarketKOSDAQ: 5}}
	_, err := NewBuilder(src, cfg, logger.Nop()).Build(context.Background(), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrUniverseUnavailable)
}

func TestBuilder_EmptyListingIsFatal(t *testing.T) {
	src := &fakeListing{byMarket: map[contracts.Market][]contracts.Instrument{}}
	cfg := Config{Limits: map[contracts.Market]int{contracts.MarketKOSPI: 5}}

	_, err := NewBuilder(src, cfg, logger.Nop()).Build(context.Background(), time.Now())
	assert.ErrorIs(t, err, contracts.ErrUniverseUnavailable)

	_, err = NewBuilder(src, Config{}, logger.Nop()).Build(context.Background(), time.Now())
	assert.ErrorIs(t, err, contracts.ErrUniverseUnavailable)
}

func TestBuilder_SectorKeyword(t *testing.T) {
	src := &fakeListing{byMarket: map[contracts.Market][]contracts.Instrument{
		contracts.MarketKOSPI: {
			{Code: "005930", Name: "삼성전자", Sector: "반도체와반도체장비"},
			{Code: "005380", Name: "현대차", Sector: "자동차"},
			{Code: "999990", Name: "섹터없음"},
			{Code: "000660", Name: "SK하이닉스"},
		},
	}, sectors: map[string]string{"000660": "반도체와반도체장비"}}

	cfg := Config{
		Limits:  map[contracts.Market]int{contracts.MarketKOSPI: 10},
		Sectors: []string{"반도체"},
	}
	u, err := NewBuilder(src, cfg, logger.Nop()).Build(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"005930", "000660"}, u.Codes())
	assert.Equal(t, "반도체와반도체장비", u.Instruments[1].Sector)

	_, reason := u.IsExcluded("999990")
	assert.Equal(t, ReasonSector, reason)
}

func TestNamePatterns(t *testing.T) {
	tests := []struct {
		name  string
		spac  bool
		fund  bool
		admin bool
	}{
		{"삼성전자", false, false, false},
		{"하나금융25호스팩", true, false, false},
		{"엔에이치스팩29호", true, false, false},
		{"KODEX 200", false, true, false},
		{"TIGER 미국S&P500", false, true, false},
		{"삼성 레버리지 WTI원유 선물 ETN", false, true, false},
		{"*관리종목", false, false, true},
		{"한국자산관리", false, false, false},
		{"관리자산운용", false, false, false},
		{"ACE전자", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.spac, isSPAC(tt.name), "spac")
			assert.Equal(t, tt.fund, isFund(tt.name), "fund")
			assert.Equal(t, tt.admin, isAdminStock(tt.name), "admin")
		})
	}
}

type listingOnly struct{ inner *fakeListing }

func (l listingOnly) FetchListings(ctx context.Context, m contracts.Market, limit int) ([]contracts.Instrument, error) {
	return l.inner.FetchListings(ctx, m, limit)
}

func TestBuilder_SectorKeywordNeedsSectorSource(t *testing.T) {
	src := listingOnly{&fakeListing{byMarket: map[contracts.Market][]contracts.Instrument{
		contracts.MarketKOSPI: {inst("005930", "삼성전자")},
	}}}
	cfg := Config{
		Limits:  map[contracts.Market]int{contracts.MarketKOSPI: 10},
		Sectors: []string{"반도체"},
	}

	_, err := NewBuilder(src, cfg, logger.Nop()).Build(context.Background(), time.Now())
	assert.ErrorIs(t, err, contracts.ErrUniverseUnavailable)
}

func TestBuilder_SectorKeywordWithNaverPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sise/sise_market_sum.naver", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><table class="type_2"><tr><th>N</th></tr>
<tr><td class="no">1</td><td><a href="/item/main.naver?code=005930" class="tltle">삼성전자</a></td><td>72,500</td><td>0</td><td>0.00%</td><td>100</td><td>4,328,000</td></tr>
<tr><td class="no">2</td><td><a href="/item/main.naver?code=005380" class="tltle">현대차</a></td><td>250,000</td><td>0</td><td>0.00%</td><td>5,000</td><td>520,000</td></tr>
</table></body></html>`)
	})
	mux.HandleFunc("/sise/sise_group.naver", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "upjong", r.URL.Query().Get("type"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><table class="type_1">
<tr><td><a href="/sise/sise_group_detail.naver?type=upjong&no=278">반도체와반도체장비</a></td></tr>
<tr><td><a href="/sise/sise_group_detail.naver?type=upjong&no=273">자동차</a></td></tr>
</table></body></html>`)
	})
	mux.HandleFunc("/sise/sise_group_detail.naver", func(w http.ResponseWriter, r *http.Request) {
		code := map[string]string{"278": "005930", "273": "005380"}[r.URL.Query().Get("no")]
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<html><body><table class="type_5">
<tr><td><div class="name_area"><a href="/item/main.naver?code=%s">종목</a></div></td></tr>
</table></body></html>`, code)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := naver.NewClient(httputil.New(logger.Nop()).DisableRetry(), logger.Nop(), srv.URL, srv.URL)
	cfg := Config{
		Limits:  map[contracts.Market]int{contracts.MarketKOSPI: 2},
		Sectors: []string{"반도체"},
	}

	u, err := NewBuilder(client, cfg, logger.Nop()).Build(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"005930"}, u.Codes())
	assert.Equal(t, "반도체와반도체장비", u.Instruments[0].Sector)

	_, reason := u.IsExcluded("005380")
	assert.Equal(t, ReasonSector, reason)
}
