package criteria

import (
	"fmt"
	"strings"

	"premia/internal/market"
	"premia/internal/pkg/convert"
)

// Spec 描述配置侧声明的单个 criterion。
type Spec struct {
	Type   string         `mapstructure:"type" json:"type" yaml:"type"`
	Weight float64        `mapstructure:"weight" json:"weight" yaml:"weight"`
	Params map[string]any `mapstructure:"params" json:"params" yaml:"params"`
}

// Build 按类型标签构造 criterion。未知标签在加载期直接报错，不做静默跳过。
func Build(spec Spec) (Criterion, error) {
	weight := spec.Weight
	if weight == 0 {
		weight = 1.0
	}
	params := spec.Params

	switch strings.ToLower(strings.TrimSpace(spec.Type)) {
	case "delta":
		return NewDeltaCriterion(
			convert.ToFloat64(params["min"]),
			convert.ToFloat64(params["max"]),
			weight,
		)
	case "volatility":
		return NewVolatilityCriterion(convert.ToFloat64(params["max_volatility"]), weight)
	case "market_regime":
		raw := convert.ToStringSlice(params["allowed_regimes"])
		regimes := make([]market.Regime, 0, len(raw))
		for _, s := range raw {
			regimes = append(regimes, market.Regime(strings.ToLower(s)))
		}
		return NewMarketRegimeCriterion(regimes, weight)
	case "rsi":
		oversold := convert.ToFloat64(params["oversold"])
		overbought := convert.ToFloat64(params["overbought"])
		if oversold == 0 {
			oversold = 30
		}
		if overbought == 0 {
			overbought = 70
		}
		return NewRSICriterion(oversold, overbought, weight)
	case "trend":
		raw := convert.ToStringSlice(params["allowed_directions"])
		dirs := make([]market.TrendDirection, 0, len(raw))
		for _, s := range raw {
			dirs = append(dirs, market.TrendDirection(strings.ToLower(s)))
		}
		return NewTrendCriterion(dirs, weight)
	case "dte":
		minDTE := convert.ToInt(params["min"])
		maxDTE := convert.ToInt(params["max"])
		if minDTE == 0 && maxDTE == 0 {
			minDTE, maxDTE = 14, 45
		}
		return NewDTECriterion(minDTE, maxDTE, weight)
	case "field_range":
		name := strings.TrimSpace(fmt.Sprintf("%v", params["name"]))
		if name == "" || name == "<nil>" {
			name = "FieldRange"
		}
		field := Field(strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", params["field"]))))
		return NewFieldRangeCriterion(name, field,
			convert.ToFloat64(params["min"]),
			convert.ToFloat64(params["max"]),
			weight,
		)
	default:
		return nil, fmt.Errorf("unknown criterion type: %s", spec.Type)
	}
}

// BuildManager 依序构造全部 criterion 并装入 Manager；任一构造失败即整体失败。
func BuildManager(specs []Spec) (*Manager, error) {
	m := NewManager()
	for i, spec := range specs {
		c, err := Build(spec)
		if err != nil {
			return nil, fmt.Errorf("criteria[%d]: %w", i, err)
		}
		if err := m.Add(c); err != nil {
			return nil, fmt.Errorf("criteria[%d]: %w", i, err)
		}
	}
	return m, nil
}
