package criteria

import (
	"fmt"

	"premia/internal/market"
)

// MarketRegimeCriterion 市场状态白名单判据：二值判定，无部分得分。
type MarketRegimeCriterion struct {
	name    string
	weight  float64
	allowed map[market.Regime]struct{}
	order   []market.Regime
}

// NewMarketRegimeCriterion 构造 regime 白名单判据；白名单为空或含未知取值时拒绝构造。
func NewMarketRegimeCriterion(allowed []market.Regime, weight float64) (*MarketRegimeCriterion, error) {
	if weight <= 0 {
		return nil, fmt.Errorf("market regime criterion: weight 需 >0")
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("market regime criterion: 白名单不能为空")
	}
	set := make(map[market.Regime]struct{}, len(allowed))
	order := make([]market.Regime, 0, len(allowed))
	for _, r := range allowed {
		if market.ParseRegime(string(r)) == market.RegimeUnknown {
			return nil, fmt.Errorf("market regime criterion: 未知 regime %q", r)
		}
		if _, dup := set[r]; dup {
			continue
		}
		set[r] = struct{}{}
		order = append(order, r)
	}
	return &MarketRegimeCriterion{name: "MarketRegime", weight: weight, allowed: set, order: order}, nil
}

func (c *MarketRegimeCriterion) Name() string            { return c.name }
func (c *MarketRegimeCriterion) Weight() float64         { return c.weight }
func (c *MarketRegimeCriterion) RequiredFields() []Field { return []Field{FieldMarketRegime} }

func (c *MarketRegimeCriterion) Evaluate(ctx Context) Evaluation {
	current := ctx.MarketRegime
	details := map[string]any{"current_regime": current, "allowed_regimes": c.order}

	if _, ok := c.allowed[current]; ok {
		return Evaluation{
			Criterion: c.name,
			Result:    ResultPass,
			Score:     1,
			Message:   fmt.Sprintf("Market regime '%s' is acceptable", current),
			Details:   details,
		}
	}
	return Evaluation{
		Criterion: c.name,
		Result:    ResultFail,
		Score:     0,
		Message:   fmt.Sprintf("Market regime '%s' not in allowed list", current),
		Details:   details,
	}
}
