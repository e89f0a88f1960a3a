package criteria

import "fmt"

// VolatilityCriterion 设定年化波动率上限，波动越低得分越高。
type VolatilityCriterion struct {
	name          string
	weight        float64
	maxVolatility float64
}

// NewVolatilityCriterion 构造波动率上限判据。
func NewVolatilityCriterion(maxVolatility, weight float64) (*VolatilityCriterion, error) {
	if weight <= 0 {
		return nil, fmt.Errorf("volatility criterion: weight 需 >0")
	}
	if maxVolatility <= 0 || maxVolatility > 2 {
		return nil, fmt.Errorf("volatility criterion: max_volatility %.3f 需位于 (0, 2]", maxVolatility)
	}
	return &VolatilityCriterion{name: "Volatility", weight: weight, maxVolatility: maxVolatility}, nil
}

func (c *VolatilityCriterion) Name() string            { return c.name }
func (c *VolatilityCriterion) Weight() float64         { return c.weight }
func (c *VolatilityCriterion) RequiredFields() []Field { return []Field{FieldVolatility} }

func (c *VolatilityCriterion) Evaluate(ctx Context) Evaluation {
	vol := ctx.Volatility
	details := map[string]any{"current_volatility": vol, "max_volatility": c.maxVolatility}

	if vol > c.maxVolatility {
		return Evaluation{
			Criterion: c.name,
			Result:    ResultFail,
			Score:     0,
			Message:   fmt.Sprintf("Volatility %.3f above threshold %.3f", vol, c.maxVolatility),
			Details:   details,
		}
	}
	return Evaluation{
		Criterion: c.name,
		Result:    ResultPass,
		Score:     clamp01(1 - vol/c.maxVolatility),
		Message:   fmt.Sprintf("Volatility %.3f below threshold %.3f", vol, c.maxVolatility),
		Details:   details,
	}
}
