package pipeline

import (
	"github.com/wonny/krxscan/internal/indicators"
	"github.com/wonny/krxscan/internal/strategyconfig"
)

// EngineParams maps the preset file's indicator windows onto engine params.
// Zero values fall back to the defaults.
func EngineParams(cfg strategyconfig.IndicatorsConfig) indicators.Params {
	p := indicators.DefaultParams()
	if cfg.MAPeriod > 0 {
		p.MAPeriod = cfg.MAPeriod
	}
	if cfg.RSIPeriod > 0 {
		p.RSIPeriod = cfg.RSIPeriod
	}
	if cfg.LiquidityWindow > 0 {
		p.LiquidityWindow = cfg.LiquidityWindow
	}
	if cfg.ActiveValueFloorKRW > 0 {
		p.ActiveValueFloor = cfg.ActiveValueFloorKRW
	}
	if cfg.SpikeLookback > 0 {
		p.SpikeLookback = cfg.SpikeLookback
	}
	if cfg.SpikeThresholdPct > 0 {
		p.SpikeThreshold = cfg.SpikeThresholdPct
	}
	if cfg.TrendMAPeriod > 0 {
		p.TrendMAPeriod = cfg.TrendMAPeriod
	}
	return p
}
