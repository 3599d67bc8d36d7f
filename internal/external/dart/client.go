package dart

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/wonny/krxscan/pkg/httputil"
	"github.com/wonny/krxscan/pkg/logger"
)

// DART 응답 status 코드
const (
	statusOK          = "000"
	statusNoData      = "013"
	statusRateLimited = "020"
)

// Options configures which filings are read
type Options struct {
	APIKey  string
	BaseURL string
	// 0 = 공시 일정 기준 최신 사업보고서
	AnnualYear int
	// 11013: 1분기, 11012: 반기, 11014: 3분기 ("" = 공시 일정 기준 최신)
	QuarterReportCode string
	// 0 = 공시 일정 기준
	QuarterYear int
	Location    *time.Location
	// 고유번호 목록 공유 캐시 (nil = 프로세스 내 보관만)
	Cache RegistryCache
}

// RegistryCache shares the downloaded corp code registry between processes
type RegistryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Client handles communication with DART (Data Analysis, Retrieval and Transfer System) API
// ⭐ SSOT: DART API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	opts       Options
	now        func() time.Time

	mu       sync.Mutex
	registry map[string]string // stock_code → corp_code
}

// NewClient creates a new DART API client. httpClient should carry the
// legacy TLS transport from LegacyTransport.
func NewClient(httpClient *httputil.Client, log *logger.Logger, opts Options) *Client {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		opts:       opts,
		now:        time.Now,
	}
}

// LegacyTransport creates a transport compatible with legacy TLS servers.
// DART requires RSA key exchange cipher suites which Go 1.22+ no longer offers by default.
func LegacyTransport() *http.Transport {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,

		CipherSuites: []uint16{
			// ECDHE (modern) - will be used if server supports
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,

			// RSA KEX (legacy) - required for DART API
			tls.TLS_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_RSA_WITH_AES_128_CBC_SHA,
			tls.TLS_RSA_WITH_AES_256_CBC_SHA,
		},
	}

	return &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		ForceAttemptHTTP2: false,

		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		TLSHandshakeTimeout:   10 * time.Second,
		TLSClientConfig:       tlsCfg,
		MaxIdleConns:          20,
		MaxConnsPerHost:       5,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// APIError is a non-success DART status
type APIError struct {
	Status  string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dart status %s: %s", e.Status, e.Message)
}

// HTTPStatus maps the DART quota status onto 429 so it classifies as rate limited
func (e *APIError) HTTPStatus() int {
	if e.Status == statusRateLimited {
		return http.StatusTooManyRequests
	}
	return http.StatusBadGateway
}
