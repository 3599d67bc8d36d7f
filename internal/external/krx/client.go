package krx

import (
	"strings"
	"time"

	"github.com/wonny/krxscan/pkg/httputil"
	"github.com/wonny/krxscan/pkg/logger"
)

// Client handles communication with the KRX data portal and the market trend API
// ⭐ SSOT: KRX 시장 데이터 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string // data.krx.co.kr
	trendURL   string // m.stock.naver.com
	loc        *time.Location
	now        func() time.Time
}

// NewClient creates a new KRX client
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL, trendURL string, loc *time.Location) *Client {
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		trendURL:   strings.TrimRight(trendURL, "/"),
		loc:        loc,
		now:        time.Now,
	}
}

// MarketTrendResponse represents market trend API response
type MarketTrendResponse struct {
	Bizdate          string `json:"bizdate"`            // Trade date (YYYYMMDD)
	PersonalValue    string `json:"personalValue"`      // 개인 순매수 (억원)
	ForeignValue     string `json:"foreignValue"`       // 외국인 순매수 (억원)
	InstitutionValue string `json:"institutionalValue"` // 기관 순매수 (억원)
}
