package dart

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/krxscan/internal/contracts"
	"github.com/wonny/krxscan/pkg/httputil"
	"github.com/wonny/krxscan/pkg/logger"
)

const corpXML = `<?xml version="1.0" encoding="UTF-8"?>
<result>
<list><corp_code>00126380</corp_code><corp_name>삼성전자</corp_name><stock_code>005930</stock_code><modify_date>20240101</modify_date></list>
<list><corp_code>00164779</corp_code><corp_name>SK하이닉스</corp_name><stock_code>000660</stock_code><modify_date>20240101</modify_date></list>
<list><corp_code>00999999</corp_code><corp_name>비상장</corp_name><stock_code> </stock_code><modify_date>20240101</modify_date></list>
</result>`

func corpZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("CORPCODE.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(corpXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func finstateJSON(opAmount string) string {
	return fmt.Sprintf(`{"status":"000","message":"정상","list":[
		{"sj_div":"BS","account_id":"ifrs-full_Assets","account_nm":"자산총계","thstrm_amount":"1,000"},
		{"sj_div":"IS","account_id":"ifrs-full_Revenue","account_nm":"매출액","thstrm_amount":"500"},
		{"sj_div":"IS","account_id":"dart_OperatingIncomeLoss","account_nm":"영업이익(손실)","thstrm_amount":"%s"}
	]}`, opAmount)
}

type fakeDART struct {
	zip         []byte
	annual      string // 영업이익 or "" for status 013
	quarter     string
	cfsMissing  bool
	filed       map[string]bool // "연도/보고서코드", nil = 전부 제출
	corpLoads   int32
	lastReports chan string
}

func (f *fakeDART) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/corpCode.xml":
		atomic.AddInt32(&f.corpLoads, 1)
		_, _ = w.Write(f.zip)
	case "/fnlttSinglAcntAll.json":
		q := r.URL.Query()
		if f.lastReports != nil {
			f.lastReports <- q.Get("bsns_year") + "/" + q.Get("reprt_code") + "/" + q.Get("fs_div")
		}
		if f.cfsMissing && q.Get("fs_div") == "CFS" {
			fmt.Fprint(w, `{"status":"013","message":"조회된 데이타가 없습니다."}`)
			return
		}
		if f.filed != nil && !f.filed[q.Get("bsns_year")+"/"+q.Get("reprt_code")] {
			fmt.Fprint(w, `{"status":"013","message":"조회된 데이타가 없습니다."}`)
			return
		}
		amount := f.quarter
		if q.Get("reprt_code") == reportAnnual {
			amount = f.annual
		}
		if amount == "" {
			fmt.Fprint(w, `{"status":"013","message":"조회된 데이타가 없습니다."}`)
			return
		}
		fmt.Fprint(w, finstateJSON(amount))
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *fakeDART) *Client {
	t.Helper()
	if fake.zip == nil {
		fake.zip = corpZip(t)
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c := NewClient(httputil.New(logger.Nop()).DisableRetry(), logger.Nop(), Options{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	})
	c.now = func() time.Time { return time.Date(2025, 11, 20, 15, 0, 0, 0, time.UTC) }
	return c
}

func TestFetchFundamentals(t *testing.T) {
	tests := []struct {
		name     string
		fake     *fakeDART
		wantSign contracts.ProfitSign
		wantErr  error
	}{
		{
			name:     "both positive",
			fake:     &fakeDART{annual: "6,566,976,000,000", quarter: "12,166,000,000,000"},
			wantSign: contracts.ProfitPositive,
		},
		{
			name:     "quarter loss",
			fake:     &fakeDART{annual: "100", quarter: "-50"},
			wantSign: contracts.ProfitNegative,
		},
		{
			name:     "separate statements fallback",
			fake:     &fakeDART{annual: "100", quarter: "10", cfsMissing: true},
			wantSign: contracts.ProfitPositive,
		},
		{
			name:    "quarter not filed",
			fake:    &fakeDART{annual: "100"},
			wantErr: contracts.ErrFundamentalsUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.fake)

			fact, err := c.FetchFundamentals(context.Background(), contracts.Instrument{Code: "005930"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "dart", fact.Source)
			assert.Equal(t, tt.wantSign, fact.Sign())
			require.Len(t, fact.Periods, 2)
			assert.Equal(t, "2024 annual", fact.Periods[0].Label)
			assert.Equal(t, "2025 Q3", fact.Periods[1].Label)
		})
	}
}

func TestFetchFundamentals_ParsesAmount(t *testing.T) {
	c := newTestClient(t, &fakeDART{annual: "6,566,976,000,000", quarter: "-1,234"})

	fact, err := c.FetchFundamentals(context.Background(), contracts.Instrument{Code: "000660"})
	require.NoError(t, err)
	assert.Equal(t, "6566976000000", fact.Periods[0].Amount.String())
	assert.Equal(t, "-1234", fact.Periods[1].Amount.String())
}

func TestFetchFundamentals_RequestsConfiguredReports(t *testing.T) {
	fake := &fakeDART{annual: "1", quarter: "1", lastReports: make(chan string, 8)}
	c := newTestClient(t, fake)
	c.opts.AnnualYear = 2023
	c.opts.QuarterYear = 2024
	c.opts.QuarterReportCode = "11012"

	_, err := c.FetchFundamentals(context.Background(), contracts.Instrument{Code: "005930"})
	require.NoError(t, err)
	close(fake.lastReports)

	var seen []string
	for r := range fake.lastReports {
		seen = append(seen, r)
	}
	assert.ElementsMatch(t, []string{"2023/11011/CFS", "2024/11012/CFS"}, seen)
}

func TestFetchFundamentals_LatestFiledPeriods(t *testing.T) {
	kst := time.FixedZone("KST", 9*60*60)

	tests := []struct {
		name        string
		now         time.Time
		filed       []string
		wantAnnual  string
		wantQuarter string
	}{
		{
			name:        "february reads two years back",
			now:         time.Date(2026, 2, 10, 9, 0, 0, 0, kst),
			filed:       []string{"2024/11011", "2025/11014"},
			wantAnnual:  "2024 annual",
			wantQuarter: "2025 Q3",
		},
		{
			name:        "october reads half year",
			now:         time.Date(2026, 10, 17, 9, 0, 0, 0, kst),
			filed:       []string{"2025/11011", "2026/11012"},
			wantAnnual:  "2025 annual",
			wantQuarter: "2026 H1",
		},
		{
			name:        "november reads third quarter",
			now:         time.Date(2026, 11, 20, 9, 0, 0, 0, kst),
			filed:       []string{"2025/11011", "2026/11014"},
			wantAnnual:  "2025 annual",
			wantQuarter: "2026 Q3",
		},
		{
			name:        "june reads first quarter",
			now:         time.Date(2026, 6, 1, 9, 0, 0, 0, kst),
			filed:       []string{"2025/11011", "2026/11013"},
			wantAnnual:  "2025 annual",
			wantQuarter: "2026 Q1",
		},
		{
			name:        "walks back when latest filings are missing",
			now:         time.Date(2026, 10, 17, 9, 0, 0, 0, kst),
			filed:       []string{"2025/11011", "2025/11014"},
			wantAnnual:  "2025 annual",
			wantQuarter: "2025 Q3",
		},
		{
			name:        "late annual filer falls back a year",
			now:         time.Date(2026, 4, 2, 9, 0, 0, 0, kst),
			filed:       []string{"2024/11011", "2025/11014"},
			wantAnnual:  "2024 annual",
			wantQuarter: "2025 Q3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeDART{annual: "100", quarter: "10", filed: map[string]bool{}}
			for _, f := range tt.filed {
				fake.filed[f] = true
			}
			c := newTestClient(t, fake)
			c.opts.Location = kst
			c.now = func() time.Time { return tt.now }

			fact, err := c.FetchFundamentals(context.Background(), contracts.Instrument{Code: "005930"})
			require.NoError(t, err)
			require.Len(t, fact.Periods, 2)
			assert.Equal(t, tt.wantAnnual, fact.Periods[0].Label)
			assert.Equal(t, tt.wantQuarter, fact.Periods[1].Label)
			assert.Equal(t, contracts.ProfitPositive, fact.Sign())
		})
	}
}

func TestFetchFundamentals_NothingFiled(t *testing.T) {
	fake := &fakeDART{annual: "100", quarter: "10", filed: map[string]bool{"2025/11011": true}}
	c := newTestClient(t, fake)
	c.now = func() time.Time { return time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC) }

	_, err := c.FetchFundamentals(context.Background(), contracts.Instrument{Code: "005930"})
	assert.ErrorIs(t, err, contracts.ErrFundamentalsUnavailable)
	assert.ErrorIs(t, err, contracts.ErrNoData)
}

func TestQuarterPeriods(t *testing.T) {
	c := newTestClient(t, &fakeDART{})

	tests := []struct {
		name string
		now  time.Time
		code string
		want []reportPeriod
	}{
		{
			name: "before first quarter deadline",
			now:  time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC),
			want: []reportPeriod{{2025, "11014"}, {2025, "11012"}, {2025, "11013"}, {2024, "11014"}},
		},
		{
			name: "after half year deadline",
			now:  time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
			want: []reportPeriod{{2026, "11012"}, {2026, "11013"}, {2025, "11014"}, {2025, "11012"}},
		},
		{
			name: "pinned code before its deadline",
			now:  time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
			code: "11014",
			want: []reportPeriod{{2025, "11014"}, {2024, "11014"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.now = func() time.Time { return tt.now }
			c.opts.QuarterReportCode = tt.code
			assert.Equal(t, tt.want, c.quarterPeriods())
		})
	}
}

func TestFetchFundamentals_UnknownCode(t *testing.T) {
	c := newTestClient(t, &fakeDART{annual: "1", quarter: "1"})

	_, err := c.FetchFundamentals(context.Background(), contracts.Instrument{Code: "123456"})
	assert.ErrorIs(t, err, contracts.ErrFundamentalsUnavailable)
	assert.ErrorIs(t, err, ErrCorpNotFound)
}

func TestCorpCode_LoadsOnce(t *testing.T) {
	fake := &fakeDART{annual: "1", quarter: "1"}
	c := newTestClient(t, fake)

	require.NoError(t, c.Preload(context.Background()))
	corp, err := c.CorpCode(context.Background(), "000660")
	require.NoError(t, err)
	assert.Equal(t, "00164779", corp)

	_, err = c.CorpCode(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.corpLoads))
}

func TestParseCorpCodes(t *testing.T) {
	registry, err := parseCorpCodes(corpZip(t))
	require.NoError(t, err)
	assert.Len(t, registry, 2)
	assert.Equal(t, "00126380", registry["005930"])

	_, err = parseCorpCodes([]byte(`{"status":"010","message":"등록되지 않은 키입니다."}`))
	assert.Error(t, err)
}

func TestAPIError_Classification(t *testing.T) {
	rateLimited := fmt.Errorf("wrap: %w", &APIError{Status: statusRateLimited, Message: "요청 제한 초과"})
	assert.Equal(t, contracts.FetchRateLimited, contracts.ClassifyFetchError(rateLimited))

	badKey := &APIError{Status: "010", Message: "등록되지 않은 키"}
	assert.Equal(t, contracts.FetchTransport, contracts.ClassifyFetchError(badKey))
}

func TestQuarterLabel(t *testing.T) {
	assert.Equal(t, "Q1", quarterLabel("11013"))
	assert.Equal(t, "H1", quarterLabel("11012"))
	assert.Equal(t, "Q3", quarterLabel("11014"))
	assert.Equal(t, "99999", quarterLabel("99999"))
}

type memoryCache struct {
	values map[string][]byte
	sets   int
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, ok := m.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = data
	m.sets++
	return nil
}

func TestCorpCode_SharedCache(t *testing.T) {
	cache := &memoryCache{values: map[string][]byte{}}

	fake := &fakeDART{annual: "1", quarter: "1"}
	first := newTestClient(t, fake)
	first.opts.Cache = cache
	require.NoError(t, first.Preload(context.Background()))
	assert.Equal(t, 1, cache.sets)

	// 다른 프로세스: 다운로드 없이 캐시에서 로드
	second := newTestClient(t, fake)
	second.opts.Cache = cache
	corp, err := second.CorpCode(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, "00126380", corp)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.corpLoads))
}
