package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/wonny/krxscan/internal/contracts"
	"github.com/wonny/krxscan/internal/external/dart"
	"github.com/wonny/krxscan/internal/external/krx"
	"github.com/wonny/krxscan/internal/external/naver"
	"github.com/wonny/krxscan/internal/indicators"
	"github.com/wonny/krxscan/internal/notify"
	"github.com/wonny/krxscan/internal/pipeline"
	"github.com/wonny/krxscan/internal/report"
	"github.com/wonny/krxscan/internal/strategyconfig"
	"github.com/wonny/krxscan/internal/universe"
	"github.com/wonny/krxscan/pkg/config"
	"github.com/wonny/krxscan/pkg/httputil"
	"github.com/wonny/krxscan/pkg/logger"
	"github.com/wonny/krxscan/pkg/redis"
)

// app holds the wired dependencies shared by every command
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	strategy   *strategyconfig.Config
	configHash string
	runner     *pipeline.Runner
	redis      *redis.Client
}

// appOptions controls how the dependencies are wired
type appOptions struct {
	dryRun  bool
	presets []string // 실행할 프리셋 (재무 자격증명 확인용)
}

// loadBase reads env config, logger and preset file without touching the network
func loadBase() (*config.Config, *logger.Logger, *strategyconfig.Config, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, "", fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if strategyFile != "" {
		cfg.StrategyFile = strategyFile
	}

	log := logger.New(cfg)

	strategy, err := strategyconfig.LoadOrDefault(cfg.StrategyFile)
	if err != nil {
		return nil, nil, nil, "", fmt.Errorf("load strategy: %w", err)
	}
	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return nil, nil, nil, "", fmt.Errorf("hash strategy: %w", err)
	}

	return cfg, log, strategy, hash, nil
}

// newApp wires sources, reporter, notifier and runner
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, log, strategy, hash, err := loadBase()
	if err != nil {
		return nil, err
	}
	if opts.dryRun {
		cfg.Scan.DryRun = true
	}

	if err := cfg.RequireNotify(); err != nil {
		return nil, err
	}
	needsFundamentals := strategy.NeedsFundamentals(opts.presets...)
	if needsFundamentals {
		if err := cfg.RequireDART(); err != nil {
			return nil, err
		}
	}

	// 1. Shared rate limiter (optional)
	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	var limiter *redis.RateLimiter
	if rdb.Enabled() {
		limiter = redis.NewRateLimiter(rdb, "krxscan")
		log.Info("Using shared redis rate limiter")
	}

	sourceClient := func(name string, rps float64) *httputil.Client {
		c := httputil.NewWithTimeout(log, cfg.Scan.CallTimeout).WithRateLimit(rps, 1)
		if limiter != nil {
			c.WithLimiter(limiter.For(redis.PerSecond(name, rps)))
		}
		return c
	}

	// 2. External sources
	loc := cfg.Location()
	naverClient := naver.NewClient(sourceClient("naver", cfg.Naver.RatePerSecond), log, cfg.Naver.BaseURL, cfg.Naver.ChartURL)
	krxClient := krx.NewClient(sourceClient("krx", cfg.KRX.RatePerSecond), log, cfg.KRX.BaseURL, cfg.KRX.TrendURL, loc)

	var listings contracts.ListingSource = naverClient
	if cfg.Universe.Source == "krx" {
		listings = krxClient
	}

	var fundamentals contracts.FundamentalsSource
	switch {
	case cfg.FundamentalsSource == "naver":
		fundamentals = naverClient
	case cfg.DART.APIKey != "":
		dartHTTP := sourceClient("dart", cfg.DART.RatePerSecond).WithTransport(dart.LegacyTransport())
		dartOpts := dart.Options{
			APIKey:            cfg.DART.APIKey,
			BaseURL:           cfg.DART.BaseURL,
			AnnualYear:        cfg.DART.AnnualYear,
			QuarterReportCode: cfg.DART.QuarterReportCode,
			QuarterYear:       cfg.DART.QuarterYear,
			Location:          loc,
		}
		if rdb.Enabled() {
			dartOpts.Cache = redis.NewCache(rdb, "krxscan")
		}
		fundamentals = dart.NewClient(dartHTTP, log, dartOpts)
	}

	// 3. Notification sink
	var notifier contracts.Notifier
	if cfg.Scan.DryRun {
		notifier = notify.NewWriter(os.Stdout)
	} else {
		notifier = notify.NewWebhook(httputil.NewWithTimeout(log, cfg.Notify.Timeout), log, cfg.Notify.WebhookURL, cfg.Notify.ChunkSize)
	}

	// 4. Reporter
	reporter, err := report.New(report.Options{
		Location:    loc,
		ShowSummary: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create reporter: %w", err)
	}

	// 5. Runner
	runner, err := pipeline.NewRunner(pipeline.Deps{
		Universe:     universe.NewBuilder(listings, universe.ConfigFrom(cfg.Universe), log),
		Prices:       naverClient,
		Fundamentals: fundamentals,
		Flow:         naverClient,
		Trends:       krxClient,
		Notifier:     notifier,
		Reporter:     reporter,
	}, indicators.NewEngine(pipeline.EngineParams(strategy.Indicators)), pipeline.Options{
		Workers:             cfg.Scan.Workers,
		CallTimeout:         cfg.Scan.CallTimeout,
		DefaultLookbackDays: cfg.Scan.LookbackDays,
		ConfigHash:          hash,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("create runner: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"universe_source":     cfg.Universe.Source,
		"fundamentals_source": cfg.FundamentalsSource,
		"workers":             cfg.Scan.Workers,
		"dry_run":             cfg.Scan.DryRun,
		"config_hash":         hash,
	}).Debug("Screener wired")

	return &app{
		cfg:        cfg,
		log:        log,
		strategy:   strategy,
		configHash: hash,
		runner:     runner,
		redis:      rdb,
	}, nil
}

// Close releases the shared connections
func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
}

// preset resolves a preset name or lists the valid ones
func (a *app) preset(name string) (strategyconfig.Preset, error) {
	p, ok := a.strategy.Preset(name)
	if !ok {
		return strategyconfig.Preset{}, fmt.Errorf("unknown preset %q (available: %v)", name, a.strategy.PresetNames())
	}
	return p, nil
}
