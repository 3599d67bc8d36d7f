package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the screener
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Timezone used for report timestamps and fiscal period resolution
	Timezone string

	// Logging
	LogLevel  string
	LogFormat string

	// Notification sink
	Notify NotifyConfig

	// External sources
	DART  DARTConfig
	Naver NaverConfig
	KRX   KRXConfig
	Flow  FlowConfig

	// Fundamentals collaborator: dart, naver
	FundamentalsSource string

	// Scan execution
	Scan     ScanConfig
	Universe UniverseConfig

	// Optional YAML preset file (empty = built-in defaults)
	StrategyFile string

	// Redis (optional shared rate limiter)
	Redis RedisConfig
}

// NotifyConfig holds webhook configuration
type NotifyConfig struct {
	WebhookURL string
	ChunkSize  int // 메시지당 최대 글자 수 (Discord 제한 2000)
	Timeout    time.Duration
}

// DARTConfig holds DART (전자공시) API configuration
type DARTConfig struct {
	APIKey  string
	BaseURL string
	// 연간 보고서 기준 사업연도 (0 = 공시 일정 기준 최신)
	AnnualYear int
	// 분기 보고서 코드 (11013: 1분기, 11012: 반기, 11014: 3분기, "" = 최신 제출분)
	QuarterReportCode string
	// 분기 보고서 사업연도 (0 = 공시 일정 기준)
	QuarterYear   int
	RatePerSecond float64
}

// NaverConfig holds Naver Finance configuration
type NaverConfig struct {
	BaseURL       string
	ChartURL      string
	RatePerSecond float64
}

// KRXConfig holds KRX data portal configuration
type KRXConfig struct {
	BaseURL       string
	TrendURL      string
	RatePerSecond float64
}

// FlowConfig holds investor flow source configuration
type FlowConfig struct {
	APIKey string // 인증이 필요한 수급 소스용 (네이버는 불필요)
}

// ScanConfig controls the per-run worker pool and external call budget
type ScanConfig struct {
	Workers      int
	CallTimeout  time.Duration // 외부 호출 1건당 타임아웃
	LookbackDays int           // 가격 조회 기간 (달력일)
	DryRun       bool
}

// UniverseConfig controls the universe composition
type UniverseConfig struct {
	Source      string // naver, krx
	KOSPILimit  int
	KOSDAQLimit int
	Sectors     []string // 섹터/업종 키워드 (빈 값 = 전체)
	ExcludeSPAC bool
	ExcludeETF  bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// Location returns the configured timezone, falling back to a fixed KST offset
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port:     getEnv("PORT", "8089"),
		Env:      getEnv("ENV", "development"),
		Timezone: getEnv("TIMEZONE", "Asia/Seoul"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		Notify: NotifyConfig{
			WebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),
			ChunkSize:  getEnvAsInt("NOTIFY_CHUNK_SIZE", 1900),
			Timeout:    getEnvAsDuration("NOTIFY_TIMEOUT", "15s"),
		},

		DART: DARTConfig{
			APIKey:            getEnv("DART_API_KEY", ""),
			BaseURL:           getEnv("DART_BASE_URL", "https://opendart.fss.or.kr/api"),
			AnnualYear:        getEnvAsInt("DART_ANNUAL_YEAR", 0),
			QuarterReportCode: getEnv("DART_QUARTER_REPORT_CODE", ""),
			QuarterYear:       getEnvAsInt("DART_QUARTER_YEAR", 0),
			RatePerSecond:     getEnvAsFloat("DART_RATE_PER_SECOND", 5),
		},

		Naver: NaverConfig{
			BaseURL:       getEnv("NAVER_BASE_URL", "https://finance.naver.com"),
			ChartURL:      getEnv("NAVER_CHART_URL", "https://fchart.stock.naver.com"),
			RatePerSecond: getEnvAsFloat("NAVER_RATE_PER_SECOND", 10),
		},

		KRX: KRXConfig{
			BaseURL:       getEnv("KRX_BASE_URL", "http://data.krx.co.kr"),
			TrendURL:      getEnv("KRX_TREND_URL", "https://m.stock.naver.com"),
			RatePerSecond: getEnvAsFloat("KRX_RATE_PER_SECOND", 2),
		},

		Flow: FlowConfig{
			APIKey: getEnv("FLOW_API_KEY", ""),
		},

		FundamentalsSource: strings.ToLower(getEnv("FUNDAMENTALS_SOURCE", "dart")),

		Scan: ScanConfig{
			Workers:      getEnvAsInt("SCAN_WORKERS", 8),
			CallTimeout:  getEnvAsDuration("SCAN_CALL_TIMEOUT", "10s"),
			LookbackDays: getEnvAsInt("SCAN_LOOKBACK_DAYS", 60),
			DryRun:       getEnvAsBool("SCAN_DRY_RUN", false),
		},

		Universe: UniverseConfig{
			Source:      strings.ToLower(getEnv("UNIVERSE_SOURCE", "naver")),
			KOSPILimit:  getEnvAsInt("UNIVERSE_KOSPI_LIMIT", 500),
			KOSDAQLimit: getEnvAsInt("UNIVERSE_KOSDAQ_LIMIT", 1000),
			Sectors:     getEnvAsList("UNIVERSE_SECTORS"),
			ExcludeSPAC: getEnvAsBool("UNIVERSE_EXCLUDE_SPAC", true),
			ExcludeETF:  getEnvAsBool("UNIVERSE_EXCLUDE_ETF", true),
		},

		StrategyFile: getEnv("STRATEGY_FILE", ""),

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks value ranges that do not depend on the selected preset
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Scan.Workers <= 0 {
		return fmt.Errorf("SCAN_WORKERS must be > 0")
	}

	if c.Scan.CallTimeout <= 0 {
		return fmt.Errorf("SCAN_CALL_TIMEOUT must be > 0")
	}

	if c.Notify.ChunkSize <= 0 || c.Notify.ChunkSize > 2000 {
		return fmt.Errorf("NOTIFY_CHUNK_SIZE must be in (0, 2000]")
	}

	if c.Universe.Source != "naver" && c.Universe.Source != "krx" {
		return fmt.Errorf("UNIVERSE_SOURCE must be one of: naver, krx")
	}

	if c.FundamentalsSource != "dart" && c.FundamentalsSource != "naver" {
		return fmt.Errorf("FUNDAMENTALS_SOURCE must be one of: dart, naver")
	}

	if c.Universe.KOSPILimit < 0 || c.Universe.KOSDAQLimit < 0 {
		return fmt.Errorf("UNIVERSE_*_LIMIT must be >= 0")
	}

	return nil
}

// RequireNotify checks that a webhook endpoint is configured for non dry-run scans
func (c *Config) RequireNotify() error {
	if c.Scan.DryRun {
		return nil
	}
	if c.Notify.WebhookURL == "" {
		return fmt.Errorf("DISCORD_WEBHOOK_URL is required (or use --dry-run)")
	}
	return nil
}

// RequireDART checks that the filings credential is present when DART backs fundamentals
func (c *Config) RequireDART() error {
	if c.FundamentalsSource == "dart" && c.DART.APIKey == "" {
		return fmt.Errorf("DART_API_KEY is required for fundamentals-gated presets")
	}
	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping empty items
func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
