package criteria

import (
	"fmt"
	"sort"
	"strings"

	"premia/internal/market"
)

// 中文说明：
// 内置预设覆盖常见卖权风格：delta_only / conservative / aggressive / momentum_based。
// 预设构造失败属于程序缺陷，这里 panic 而非返回错误。

type presetFn func() *Manager

var presets = map[string]presetFn{
	"delta_only":     DeltaOnly,
	"conservative":   Conservative,
	"aggressive":     Aggressive,
	"momentum_based": MomentumBased,
}

// PresetNames 返回全部内置预设名（排序稳定）。
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset 按名称返回内置预设，未知名称报错。
func Preset(name string) (*Manager, error) {
	fn, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown criteria preset: %s (available: %s)",
			name, strings.Join(PresetNames(), ", "))
	}
	return fn(), nil
}

// DeltaOnly 仅保留宽松的 delta 区间约束。
func DeltaOnly() *Manager {
	return NewManager(
		mustDelta(0.15, 0.85, 1.0),
	)
}

// Conservative 多重保守约束。
func Conservative() *Manager {
	return NewManager(
		mustDelta(0.2, 0.6, 1.0),
		mustRegime([]market.Regime{
			market.RegimeBullishLowVol,
			market.RegimeBullishNormalVol,
			market.RegimeNeutralNormalVol,
		}, 0.8),
		mustVolatility(0.4, 0.7),
		mustDTE(21, 45, 0.6),
	)
}

// Aggressive 约束更少、区间更宽。
func Aggressive() *Manager {
	return NewManager(
		mustDelta(0.3, 0.8, 1.0),
		mustVolatility(0.6, 0.5),
	)
}

// MomentumBased 以 RSI 与趋势为核心的动量组合。
func MomentumBased() *Manager {
	return NewManager(
		mustDelta(0.25, 0.75, 1.0),
		mustRSI(25, 75, 0.8),
		mustTrend([]market.TrendDirection{market.TrendBullish, market.TrendNeutral}, 0.7),
	)
}

func mustDelta(min, max, weight float64) Criterion {
	c, err := NewDeltaCriterion(min, max, weight)
	if err != nil {
		panic(err)
	}
	return c
}

func mustVolatility(max, weight float64) Criterion {
	c, err := NewVolatilityCriterion(max, weight)
	if err != nil {
		panic(err)
	}
	return c
}

func mustRegime(allowed []market.Regime, weight float64) Criterion {
	c, err := NewMarketRegimeCriterion(allowed, weight)
	if err != nil {
		panic(err)
	}
	return c
}

func mustRSI(oversold, overbought, weight float64) Criterion {
	c, err := NewRSICriterion(oversold, overbought, weight)
	if err != nil {
		panic(err)
	}
	return c
}

func mustTrend(allowed []market.TrendDirection, weight float64) Criterion {
	c, err := NewTrendCriterion(allowed, weight)
	if err != nil {
		panic(err)
	}
	return c
}

func mustDTE(min, max int, weight float64) Criterion {
	c, err := NewDTECriterion(min, max, weight)
	if err != nil {
		panic(err)
	}
	return c
}
