package criteria

import (
	"fmt"
	"math"
)

// FieldRangeCriterion 自定义数值区间判据：对任意数值型上下文字段做区间检查，
// 供配置侧在内置判据之外扩展使用。得分规则与内置区间判据一致（中点峰值线性衰减）。
type FieldRangeCriterion struct {
	name   string
	weight float64
	field  Field
	min    float64
	max    float64
}

var numericFields = map[Field]func(Context) float64{
	FieldDelta:           func(c Context) float64 { return math.Abs(c.Delta) },
	FieldDTE:             func(c Context) float64 { return float64(c.DTE) },
	FieldStrike:          func(c Context) float64 { return c.Strike },
	FieldUnderlyingPrice: func(c Context) float64 { return c.UnderlyingPrice },
	FieldVolatility:      func(c Context) float64 { return c.Volatility },
	FieldRSI:             func(c Context) float64 { return c.RSI },
	FieldTrendStrength:   func(c Context) float64 { return c.TrendStrength },
}

// NewFieldRangeCriterion 构造自定义区间判据；字段必须是数值型上下文字段。
func NewFieldRangeCriterion(name string, field Field, min, max, weight float64) (*FieldRangeCriterion, error) {
	if name == "" {
		return nil, fmt.Errorf("field range criterion: name 不能为空")
	}
	if weight <= 0 {
		return nil, fmt.Errorf("field range criterion %s: weight 需 >0", name)
	}
	if _, ok := numericFields[field]; !ok {
		return nil, fmt.Errorf("field range criterion %s: 字段 %q 不是数值型", name, field)
	}
	if min >= max {
		return nil, fmt.Errorf("field range criterion %s: 区间 [%.4f, %.4f] 非法", name, min, max)
	}
	return &FieldRangeCriterion{name: name, weight: weight, field: field, min: min, max: max}, nil
}

func (c *FieldRangeCriterion) Name() string            { return c.name }
func (c *FieldRangeCriterion) Weight() float64         { return c.weight }
func (c *FieldRangeCriterion) RequiredFields() []Field { return []Field{c.field} }

func (c *FieldRangeCriterion) Evaluate(ctx Context) Evaluation {
	value := numericFields[c.field](ctx)
	details := map[string]any{
		"field": c.field,
		"value": value,
		"range": [2]float64{c.min, c.max},
	}

	if value < c.min || value > c.max {
		return Evaluation{
			Criterion: c.name,
			Result:    ResultFail,
			Score:     0,
			Message:   fmt.Sprintf("%s %.4f outside range %.4f-%.4f", c.field, value, c.min, c.max),
			Details:   details,
		}
	}

	mid := (c.min + c.max) / 2
	halfWidth := (c.max - c.min) / 2
	score := clamp01(1 - math.Abs(value-mid)/halfWidth)
	return Evaluation{
		Criterion: c.name,
		Result:    ResultPass,
		Score:     score,
		Message:   fmt.Sprintf("%s %.4f within range %.4f-%.4f", c.field, value, c.min, c.max),
		Details:   details,
	}
}
