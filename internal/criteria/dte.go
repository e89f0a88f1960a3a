package criteria

import (
	"fmt"
	"math"
)

// DTECriterion 到期天数区间判据，得分随靠近区间中点升高。
type DTECriterion struct {
	name   string
	weight float64
	minDTE int
	maxDTE int
}

// NewDTECriterion 构造 DTE 区间判据。
func NewDTECriterion(minDTE, maxDTE int, weight float64) (*DTECriterion, error) {
	if weight <= 0 {
		return nil, fmt.Errorf("dte criterion: weight 需 >0")
	}
	if minDTE < 0 || minDTE >= maxDTE {
		return nil, fmt.Errorf("dte criterion: 区间 [%d, %d] 非法", minDTE, maxDTE)
	}
	return &DTECriterion{name: "DTE", weight: weight, minDTE: minDTE, maxDTE: maxDTE}, nil
}

func (c *DTECriterion) Name() string            { return c.name }
func (c *DTECriterion) Weight() float64         { return c.weight }
func (c *DTECriterion) RequiredFields() []Field { return []Field{FieldDTE} }

func (c *DTECriterion) Evaluate(ctx Context) Evaluation {
	dte := ctx.DTE
	details := map[string]any{"current_dte": dte, "target_range": [2]int{c.minDTE, c.maxDTE}}

	if dte < c.minDTE || dte > c.maxDTE {
		return Evaluation{
			Criterion: c.name,
			Result:    ResultFail,
			Score:     0,
			Message:   fmt.Sprintf("DTE %d outside range %d-%d", dte, c.minDTE, c.maxDTE),
			Details:   details,
		}
	}

	mid := float64(c.minDTE+c.maxDTE) / 2
	halfWidth := float64(c.maxDTE-c.minDTE) / 2
	score := clamp01(1 - math.Abs(float64(dte)-mid)/halfWidth)
	return Evaluation{
		Criterion: c.name,
		Result:    ResultPass,
		Score:     score,
		Message:   fmt.Sprintf("DTE %d within range %d-%d", dte, c.minDTE, c.maxDTE),
		Details:   details,
	}
}
