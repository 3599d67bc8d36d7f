package universe

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/krxscan/internal/contracts"
	"github.com/wonny/krxscan/pkg/config"
	"github.com/wonny/krxscan/pkg/logger"
)

// SPAC 판별을 위한 정규식 패턴
var spacPattern = regexp.MustCompile(`(?i)(스팩|SPAC|스펙|제\d+호|\d+호$)`)

// ETF/ETN 브랜드 접두어
var fundPrefixes = []string{
	"KODEX", "TIGER", "KBSTAR", "RISE", "ARIRANG", "HANARO", "KOSEF", "ACE", "SOL", "PLUS",
	"TIMEFOLIO", "KIWOOM", "히어로즈", "마이다스", "파워", "TRUE", "QV", "신한", "미래에셋",
}

// Exclusion reasons recorded in Universe.Excluded
const (
	ReasonSPAC      = "SPAC"
	ReasonFund      = "ETF/ETN"
	ReasonAdmin     = "관리종목"
	ReasonSector    = "섹터 불일치"
	ReasonDuplicate = "중복"
)

// Config holds universe composition rules
type Config struct {
	Limits      map[contracts.Market]int // 시장별 시가총액 상위 N (0 = 제외)
	Sectors     []string                 // 섹터 키워드 (빈 값 = 전체)
	ExcludeSPAC bool
	ExcludeETF  bool
}

// ConfigFrom maps the env configuration onto universe rules
func ConfigFrom(cfg config.UniverseConfig) Config {
	return Config{
		Limits: map[contracts.Market]int{
			contracts.MarketKOSPI:  cfg.KOSPILimit,
			contracts.MarketKOSDAQ: cfg.KOSDAQLimit,
		},
		Sectors:     cfg.Sectors,
		ExcludeSPAC: cfg.ExcludeSPAC,
		ExcludeETF:  cfg.ExcludeETF,
	}
}

// Builder constructs the screening universe from a listing source
// ⭐ SSOT: 스캔 대상 종목 구성은 여기서만
type Builder struct {
	source contracts.ListingSource
	config Config
	logger *logger.Logger
}

// NewBuilder creates a new Universe Builder
func NewBuilder(source contracts.ListingSource, cfg Config, log *logger.Logger) *Builder {
	return &Builder{
		source: source,
		config: cfg,
		logger: log,
	}
}

// Build fetches every enabled market concurrently and applies exclusions
// and caps. Any market failing fails the build.
func (b *Builder) Build(ctx context.Context, date time.Time) (*contracts.Universe, error) {
	markets := b.enabledMarkets()
	if len(markets) == 0 {
		return nil, fmt.Errorf("%w: no market enabled", contracts.ErrUniverseUnavailable)
	}

	listings := make([][]contracts.Instrument, len(markets))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range markets {
		i, m := i, m
		g.Go(func() error {
			limit := b.config.Limits[m]
			// 제외 종목을 감안해 20% 여유분 조회
			items, err := b.source.FetchListings(gctx, m, limit+limit/5)
			if err != nil {
				return fmt.Errorf("%s listing: %w", m, err)
			}
			if len(b.config.Sectors) > 0 {
				if err := b.fillSectors(gctx, m, items); err != nil {
					return fmt.Errorf("%s sectors: %w", m, err)
				}
			}
			listings[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", contracts.ErrUniverseUnavailable, err)
	}

	universe := &contracts.Universe{
		Date:     date,
		Excluded: make(map[string]string),
	}

	seen := make(map[string]bool)
	for i, m := range markets {
		kept := 0
		for _, inst := range listings[i] {
			universe.TotalCount++
			if inst.Market == "" {
				inst.Market = m
			}

			if seen[inst.Code] {
				universe.Excluded[inst.Code] = ReasonDuplicate
				continue
			}
			seen[inst.Code] = true

			if reason := b.checkExclusion(inst); reason != "" {
				universe.Excluded[inst.Code] = reason
				continue
			}
			if kept >= b.config.Limits[m] {
				continue
			}
			universe.Instruments = append(universe.Instruments, inst)
			kept++
		}
	}

	if len(universe.Instruments) == 0 {
		return nil, fmt.Errorf("%w: listing returned no eligible instruments", contracts.ErrUniverseUnavailable)
	}

	b.logger.WithFields(map[string]interface{}{
		"total":    universe.TotalCount,
		"eligible": universe.Count(),
		"excluded": len(universe.Excluded),
	}).Info("Universe built")

	return universe, nil
}

// fillSectors sets Sector on items the listing left blank
func (b *Builder) fillSectors(ctx context.Context, market contracts.Market, items []contracts.Instrument) error {
	src, ok := b.source.(contracts.SectorSource)
	if !ok {
		return errors.New("listing source has no sector data")
	}
	sectors, err := src.FetchSectors(ctx, market)
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].Sector == "" {
			items[i].Sector = sectors[items[i].Code]
		}
	}
	return nil
}

func (b *Builder) enabledMarkets() []contracts.Market {
	var out []contracts.Market
	for _, m := range contracts.Markets() {
		if b.config.Limits[m] > 0 {
			out = append(out, m)
		}
	}
	return out
}

// checkExclusion returns the exclusion reason or "" to keep the instrument
func (b *Builder) checkExclusion(inst contracts.Instrument) string {
	if isAdminStock(inst.Name) {
		return ReasonAdmin
	}
	if b.config.ExcludeSPAC && isSPAC(inst.Name) {
		return ReasonSPAC
	}
	if b.config.ExcludeETF && isFund(inst.Name) {
		return ReasonFund
	}
	if len(b.config.Sectors) > 0 && !matchesSector(inst.Sector, b.config.Sectors) {
		return ReasonSector
	}
	return ""
}

// isSPAC checks if a stock is a SPAC based on name pattern
func isSPAC(name string) bool {
	return spacPattern.MatchString(name)
}

// isFund checks for exchange traded fund/note brand prefixes
func isFund(name string) bool {
	upper := strings.ToUpper(name)
	if strings.Contains(upper, "ETN") {
		return true
	}
	for _, p := range fundPrefixes {
		if strings.HasPrefix(upper, strings.ToUpper(p)+" ") {
			return true
		}
	}
	return false
}

// isAdminStock checks the explicit "*" marker some listing feeds put on supervised issues
func isAdminStock(name string) bool {
	return strings.HasPrefix(strings.TrimSpace(name), "*")
}

// matchesSector reports keyword containment against the sector name
func matchesSector(sector string, keywords []string) bool {
	if sector == "" {
		return false
	}
	for _, k := range keywords {
		if strings.Contains(sector, k) {
			return true
		}
	}
	return false
}
