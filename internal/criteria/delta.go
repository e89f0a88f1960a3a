package criteria

import (
	"fmt"
	"math"
)

// DeltaCriterion 要求合约 delta 落在目标区间内，得分随靠近区间中点升高。
type DeltaCriterion struct {
	name     string
	weight   float64
	minDelta float64
	maxDelta float64
}

// NewDeltaCriterion 构造 delta 区间判据；区间或权重非法时拒绝构造。
func NewDeltaCriterion(minDelta, maxDelta, weight float64) (*DeltaCriterion, error) {
	if weight <= 0 {
		return nil, fmt.Errorf("delta criterion: weight 需 >0")
	}
	if minDelta < 0 || maxDelta > 1 || minDelta >= maxDelta {
		return nil, fmt.Errorf("delta criterion: 区间 [%.3f, %.3f] 非法", minDelta, maxDelta)
	}
	return &DeltaCriterion{name: "Delta", weight: weight, minDelta: minDelta, maxDelta: maxDelta}, nil
}

func (c *DeltaCriterion) Name() string            { return c.name }
func (c *DeltaCriterion) Weight() float64         { return c.weight }
func (c *DeltaCriterion) RequiredFields() []Field { return []Field{FieldDelta} }

func (c *DeltaCriterion) Evaluate(ctx Context) Evaluation {
	delta := math.Abs(ctx.Delta)
	details := map[string]any{"delta": delta, "target_range": [2]float64{c.minDelta, c.maxDelta}}

	if delta < c.minDelta || delta > c.maxDelta {
		return Evaluation{
			Criterion: c.name,
			Result:    ResultFail,
			Score:     0,
			Message:   fmt.Sprintf("Delta %.3f outside range %.3f-%.3f", delta, c.minDelta, c.maxDelta),
			Details:   details,
		}
	}

	mid := (c.minDelta + c.maxDelta) / 2
	halfWidth := (c.maxDelta - c.minDelta) / 2
	score := clamp01(1 - math.Abs(delta-mid)/halfWidth)
	return Evaluation{
		Criterion: c.name,
		Result:    ResultPass,
		Score:     score,
		Message:   fmt.Sprintf("Delta %.3f within range %.3f-%.3f", delta, c.minDelta, c.maxDelta),
		Details:   details,
	}
}
