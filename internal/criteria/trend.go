package criteria

import (
	"fmt"

	"premia/internal/market"
)

// TrendCriterion 趋势方向白名单判据，得分取趋势强度。
type TrendCriterion struct {
	name    string
	weight  float64
	allowed map[market.TrendDirection]struct{}
	order   []market.TrendDirection
}

// NewTrendCriterion 构造趋势判据；方向取值非法时拒绝构造。
func NewTrendCriterion(allowed []market.TrendDirection, weight float64) (*TrendCriterion, error) {
	if weight <= 0 {
		return nil, fmt.Errorf("trend criterion: weight 需 >0")
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("trend criterion: 方向白名单不能为空")
	}
	set := make(map[market.TrendDirection]struct{}, len(allowed))
	order := make([]market.TrendDirection, 0, len(allowed))
	for _, d := range allowed {
		if !d.Valid() {
			return nil, fmt.Errorf("trend criterion: 未知方向 %q", d)
		}
		if _, dup := set[d]; dup {
			continue
		}
		set[d] = struct{}{}
		order = append(order, d)
	}
	return &TrendCriterion{name: "Trend", weight: weight, allowed: set, order: order}, nil
}

func (c *TrendCriterion) Name() string    { return c.name }
func (c *TrendCriterion) Weight() float64 { return c.weight }

func (c *TrendCriterion) RequiredFields() []Field {
	return []Field{FieldTrendDirection, FieldTrendStrength}
}

func (c *TrendCriterion) Evaluate(ctx Context) Evaluation {
	details := map[string]any{
		"trend_direction": ctx.TrendDirection,
		"trend_strength":  ctx.TrendStrength,
	}

	if _, ok := c.allowed[ctx.TrendDirection]; ok {
		return Evaluation{
			Criterion: c.name,
			Result:    ResultPass,
			Score:     clamp01(ctx.TrendStrength),
			Message: fmt.Sprintf("Trend '%s' is acceptable with strength %.2f",
				ctx.TrendDirection, ctx.TrendStrength),
			Details: details,
		}
	}
	details["allowed_directions"] = c.order
	return Evaluation{
		Criterion: c.name,
		Result:    ResultFail,
		Score:     0,
		Message:   fmt.Sprintf("Trend '%s' not in allowed directions", ctx.TrendDirection),
		Details:   details,
	}
}
