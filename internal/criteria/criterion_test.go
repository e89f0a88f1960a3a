package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"premia/internal/market"
)

func TestDeltaUsesAbsoluteValue(t *testing.T) {
	c, err := NewDeltaCriterion(0.25, 0.75, 1.0)
	require.NoError(t, err)

	ctx := validContext()
	ctx.Delta = -0.5 // put 合约的负 delta 按绝对值处理
	ev := c.Evaluate(ctx)
	assert.Equal(t, ResultPass, ev.Result)
	assert.InDelta(t, 1.0, ev.Score, 1e-9)
}

func TestDeltaScoreDecaysTowardEdges(t *testing.T) {
	c, err := NewDeltaCriterion(0.2, 0.6, 1.0)
	require.NoError(t, err)

	ctx := validContext()
	ctx.Delta = 0.4
	center := c.Evaluate(ctx).Score

	ctx.Delta = 0.55
	nearEdge := c.Evaluate(ctx).Score

	ctx.Delta = 0.6
	edge := c.Evaluate(ctx).Score

	assert.InDelta(t, 1.0, center, 1e-9)
	assert.Greater(t, center, nearEdge)
	assert.Greater(t, nearEdge, edge)
	assert.InDelta(t, 0.0, edge, 1e-9)
}

func TestDTECriterion(t *testing.T) {
	c, err := NewDTECriterion(14, 45, 1.0)
	require.NoError(t, err)

	ctx := validContext()
	ctx.DTE = 29 // 区间中点落在 29.5，两侧对称
	ev := c.Evaluate(ctx)
	assert.Equal(t, ResultPass, ev.Result)
	assert.Greater(t, ev.Score, 0.95)

	ctx.DTE = 7
	ev = c.Evaluate(ctx)
	assert.Equal(t, ResultFail, ev.Result)
	assert.Contains(t, ev.Message, "DTE 7 outside range 14-45")

	ctx.DTE = 60
	assert.Equal(t, ResultFail, c.Evaluate(ctx).Result)
}

func TestRSICriterion(t *testing.T) {
	c, err := NewRSICriterion(30, 70, 1.0)
	require.NoError(t, err)

	ctx := validContext()
	ctx.RSI = 50
	ev := c.Evaluate(ctx)
	assert.Equal(t, ResultPass, ev.Result)
	assert.InDelta(t, 1.0, ev.Score, 1e-9)

	ctx.RSI = 80
	ev = c.Evaluate(ctx)
	assert.Equal(t, ResultFail, ev.Result)
	assert.Contains(t, ev.Message, "outside range")

	ctx.RSI = 20
	assert.Equal(t, ResultFail, c.Evaluate(ctx).Result)
}

func TestTrendCriterionScoreIsStrength(t *testing.T) {
	c, err := NewTrendCriterion([]market.TrendDirection{market.TrendBullish, market.TrendNeutral}, 1.0)
	require.NoError(t, err)

	ctx := validContext()
	ctx.TrendDirection = market.TrendBullish
	ctx.TrendStrength = 0.8
	ev := c.Evaluate(ctx)
	assert.Equal(t, ResultPass, ev.Result)
	assert.InDelta(t, 0.8, ev.Score, 1e-9)

	ctx.TrendDirection = market.TrendBearish
	ev = c.Evaluate(ctx)
	assert.Equal(t, ResultFail, ev.Result)
	assert.Contains(t, ev.Message, "not in allowed directions")
}

func TestMarketRegimeCriterionBinary(t *testing.T) {
	c, err := NewMarketRegimeCriterion([]market.Regime{
		market.RegimeBullishLowVol,
		market.RegimeNeutralNormalVol,
	}, 1.0)
	require.NoError(t, err)

	ctx := validContext()
	ctx.MarketRegime = market.RegimeBullishLowVol
	ev := c.Evaluate(ctx)
	assert.Equal(t, ResultPass, ev.Result)
	assert.InDelta(t, 1.0, ev.Score, 1e-9)

	ctx.MarketRegime = market.RegimeBearishHighVol
	ev = c.Evaluate(ctx)
	assert.Equal(t, ResultFail, ev.Result)
	assert.Zero(t, ev.Score)
}

func TestFieldRangeCriterion(t *testing.T) {
	c, err := NewFieldRangeCriterion("VolBand", FieldVolatility, 0.1, 0.5, 1.0)
	require.NoError(t, err)

	ctx := validContext()
	ev := c.Evaluate(ctx) // vol 0.3 正好是中点
	assert.Equal(t, ResultPass, ev.Result)
	assert.InDelta(t, 1.0, ev.Score, 1e-9)

	ctx.Volatility = 0.7
	assert.Equal(t, ResultFail, c.Evaluate(ctx).Result)
}

func TestConstructorValidation(t *testing.T) {
	cases := map[string]error{}

	_, cases["delta weight"] = NewDeltaCriterion(0.2, 0.6, 0)
	_, cases["delta range"] = NewDeltaCriterion(0.6, 0.2, 1.0)
	_, cases["delta bounds"] = NewDeltaCriterion(-0.1, 0.5, 1.0)
	_, cases["volatility max"] = NewVolatilityCriterion(0, 1.0)
	_, cases["volatility cap"] = NewVolatilityCriterion(2.5, 1.0)
	_, cases["dte range"] = NewDTECriterion(45, 14, 1.0)
	_, cases["dte negative"] = NewDTECriterion(-1, 30, 1.0)
	_, cases["rsi range"] = NewRSICriterion(70, 30, 1.0)
	_, cases["rsi bounds"] = NewRSICriterion(30, 110, 1.0)
	_, cases["trend empty"] = NewTrendCriterion(nil, 1.0)
	_, cases["trend unknown"] = NewTrendCriterion([]market.TrendDirection{"sideways"}, 1.0)
	_, cases["regime empty"] = NewMarketRegimeCriterion(nil, 1.0)
	_, cases["regime unknown"] = NewMarketRegimeCriterion([]market.Regime{"moon_phase"}, 1.0)
	_, cases["field unknown"] = NewFieldRangeCriterion("X", Field("direction"), 0, 1, 1.0)
	_, cases["field range"] = NewFieldRangeCriterion("X", FieldDelta, 0.5, 0.5, 1.0)

	for name, err := range cases {
		assert.Error(t, err, name)
	}
}
