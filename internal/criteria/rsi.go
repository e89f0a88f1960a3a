package criteria

import (
	"fmt"
	"math"
)

// RSICriterion RSI 动量判据：超买或超卖直接否决，
// 区间内得分以阈值中点为峰值、向两侧边界线性衰减至 0。
type RSICriterion struct {
	name       string
	weight     float64
	oversold   float64
	overbought float64
}

// NewRSICriterion 构造 RSI 判据。
func NewRSICriterion(oversold, overbought, weight float64) (*RSICriterion, error) {
	if weight <= 0 {
		return nil, fmt.Errorf("rsi criterion: weight 需 >0")
	}
	if oversold < 0 || overbought > 100 || oversold >= overbought {
		return nil, fmt.Errorf("rsi criterion: 阈值 [%.1f, %.1f] 非法", oversold, overbought)
	}
	return &RSICriterion{name: "RSI", weight: weight, oversold: oversold, overbought: overbought}, nil
}

func (c *RSICriterion) Name() string            { return c.name }
func (c *RSICriterion) Weight() float64         { return c.weight }
func (c *RSICriterion) RequiredFields() []Field { return []Field{FieldRSI} }

func (c *RSICriterion) Evaluate(ctx Context) Evaluation {
	rsi := ctx.RSI
	details := map[string]any{"current_rsi": rsi, "range": [2]float64{c.oversold, c.overbought}}

	if rsi < c.oversold || rsi > c.overbought {
		return Evaluation{
			Criterion: c.name,
			Result:    ResultFail,
			Score:     0,
			Message:   fmt.Sprintf("RSI %.1f outside range %.1f-%.1f", rsi, c.oversold, c.overbought),
			Details:   details,
		}
	}

	mid := (c.oversold + c.overbought) / 2
	halfWidth := (c.overbought - c.oversold) / 2
	score := clamp01(1 - math.Abs(rsi-mid)/halfWidth)
	return Evaluation{
		Criterion: c.name,
		Result:    ResultPass,
		Score:     score,
		Message:   fmt.Sprintf("RSI %.1f in acceptable range %.1f-%.1f", rsi, c.oversold, c.overbought),
		Details:   details,
	}
}
