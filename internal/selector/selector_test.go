package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"premia/internal/criteria"
	"premia/internal/market"
)

func testChain() market.Chain {
	return market.Chain{
		Underlying: "XYZ",
		Spot:       100,
		Contracts: []market.Contract{
			{Symbol: "XYZ-97-P", Strike: 97, Delta: 0.2, DTE: 30, OpenInterest: 500},
			{Symbol: "XYZ-100-P", Strike: 100, Delta: 0.45, DTE: 30, OpenInterest: 800},
			{Symbol: "XYZ-103-P", Strike: 103, Delta: 0.7, DTE: 30, OpenInterest: 300},
		},
	}
}

func TestSelectClosestToTargetMidpoint(t *testing.T) {
	s, err := New(Config{MinDelta: 0.3, MaxDelta: 0.6, MinDTE: 14, MaxDTE: 45, OptimalDTE: 30})
	require.NoError(t, err)

	best, cands, err := s.Select(testChain(), criteria.NewContext())
	require.NoError(t, err)
	// delta 0.2 与 0.7 被硬边界过滤，剩下的 0.45 正好落在目标中点
	assert.Len(t, cands, 1)
	assert.Equal(t, "XYZ-100-P", best.Contract.Symbol)
	assert.InDelta(t, 1.0, best.DeltaScore, 1e-9)
}

func TestHardBoundsNeverViolated(t *testing.T) {
	s, err := New(Config{MinDelta: 0.25, MaxDelta: 0.75, MinDTE: 20, MaxDTE: 40, OptimalDTE: 30})
	require.NoError(t, err)

	chain := market.Chain{
		Underlying: "XYZ",
		Spot:       100,
		Contracts: []market.Contract{
			{Symbol: "A", Strike: 100, Delta: 0.1, DTE: 30},
			{Symbol: "B", Strike: 100, Delta: 0.5, DTE: 10},
			{Symbol: "C", Strike: 100, Delta: 0.9, DTE: 60},
			{Symbol: "D", Strike: 100, Delta: 0.5, DTE: 30},
		},
	}
	best, cands, err := s.Select(chain, criteria.NewContext())
	require.NoError(t, err)
	assert.Len(t, cands, 1)
	assert.Equal(t, "D", best.Contract.Symbol)

	for _, c := range cands {
		assert.GreaterOrEqual(t, c.Contract.Delta, 0.25)
		assert.LessOrEqual(t, c.Contract.Delta, 0.75)
		assert.GreaterOrEqual(t, c.Contract.DTE, 20)
		assert.LessOrEqual(t, c.Contract.DTE, 40)
	}
}

func TestEmptySurvivorSet(t *testing.T) {
	s, err := New(Config{MinDelta: 0.3, MaxDelta: 0.6, MinDTE: 14, MaxDTE: 45})
	require.NoError(t, err)

	_, _, err = s.Select(market.Chain{Underlying: "XYZ", Spot: 100}, criteria.NewContext())
	assert.ErrorIs(t, err, ErrNoEligibleContract)

	chain := market.Chain{
		Underlying: "XYZ",
		Spot:       100,
		Contracts:  []market.Contract{{Symbol: "A", Strike: 100, Delta: 0.9, DTE: 30}},
	}
	_, _, err = s.Select(chain, criteria.NewContext())
	assert.ErrorIs(t, err, ErrNoEligibleContract)
}

func TestTieBreakOnDTEThenOpenInterest(t *testing.T) {
	s, err := New(Config{MinDelta: 0.3, MaxDelta: 0.6, MinDTE: 14, MaxDTE: 45, OptimalDTE: 30})
	require.NoError(t, err)

	// 同一 delta 与行权价，DTE 贴近 30 者胜
	chain := market.Chain{
		Underlying: "XYZ",
		Spot:       100,
		Contracts: []market.Contract{
			{Symbol: "FAR", Strike: 100, Delta: 0.45, DTE: 40, OpenInterest: 900},
			{Symbol: "NEAR", Strike: 100, Delta: 0.45, DTE: 31, OpenInterest: 100},
		},
	}
	best, _, err := s.Select(chain, criteria.NewContext())
	require.NoError(t, err)
	assert.Equal(t, "NEAR", best.Contract.Symbol)

	// 得分与 DTE 距离都持平时，流动性大者胜
	chain.Contracts = []market.Contract{
		{Symbol: "THIN", Strike: 100, Delta: 0.45, DTE: 30, OpenInterest: 100},
		{Symbol: "DEEP", Strike: 100, Delta: 0.45, DTE: 30, OpenInterest: 900},
	}
	best, _, err = s.Select(chain, criteria.NewContext())
	require.NoError(t, err)
	assert.Equal(t, "DEEP", best.Contract.Symbol)
}

func TestStrikeDistanceCap(t *testing.T) {
	s, err := New(Config{MinDelta: 0.3, MaxDelta: 0.6, MinDTE: 14, MaxDTE: 45, OptimalDTE: 30})
	require.NoError(t, err)

	chain := market.Chain{
		Underlying: "XYZ",
		Spot:       100,
		Contracts: []market.Contract{
			{Symbol: "ATM", Strike: 100, Delta: 0.45, DTE: 30},
			{Symbol: "FAROTM", Strike: 80, Delta: 0.45, DTE: 30},
		},
	}
	best, cands, err := s.Select(chain, criteria.NewContext())
	require.NoError(t, err)
	assert.Equal(t, "ATM", best.Contract.Symbol)

	for _, c := range cands {
		if c.Contract.Symbol == "FAROTM" {
			// 偏离 20% 超出 10% 封顶，距离分归零
			assert.InDelta(t, 0, c.StrikeScore, 1e-9)
		}
	}
}

func TestGateExcludesCandidatesBeforeScoring(t *testing.T) {
	mgr := criteria.NewManager()
	crit, err := criteria.NewDeltaCriterion(0.4, 0.5, 1.0)
	require.NoError(t, err)
	require.NoError(t, mgr.Add(crit))

	s, err := New(Config{MinDelta: 0.3, MaxDelta: 0.6, MinDTE: 14, MaxDTE: 45, OptimalDTE: 30})
	require.NoError(t, err)
	s.WithGate(mgr)

	base := criteria.NewContext()
	base.Volatility = 0.2

	chain := market.Chain{
		Underlying: "XYZ",
		Spot:       100,
		Contracts: []market.Contract{
			{Symbol: "PASSES", Strike: 100, Delta: 0.45, DTE: 30},
			{Symbol: "GATED", Strike: 100, Delta: 0.35, DTE: 30},
		},
	}
	best, cands, err := s.Select(chain, base)
	require.NoError(t, err)
	assert.Len(t, cands, 1)
	assert.Equal(t, "PASSES", best.Contract.Symbol)
}

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{MinDelta: 0.6, MaxDelta: 0.3, MinDTE: 14, MaxDTE: 45})
	assert.Error(t, err)

	_, err = New(Config{MinDelta: 0.3, MaxDelta: 0.6, MinDTE: 45, MaxDTE: 14})
	assert.Error(t, err)
}

func TestWindowNarrowsHardBounds(t *testing.T) {
	s, err := New(Config{MinDelta: 0.25, MaxDelta: 0.75, MinDTE: 14, MaxDTE: 45, OptimalDTE: 30})
	require.NoError(t, err)

	chain := market.Chain{
		Underlying: "XYZ",
		Spot:       100,
		Contracts: []market.Contract{
			{Symbol: "LOW", Strike: 100, Delta: 0.28, DTE: 30},
			{Symbol: "MID", Strike: 100, Delta: 0.45, DTE: 30},
			{Symbol: "LATE", Strike: 100, Delta: 0.45, DTE: 44},
		},
	}

	// 无窗口时三张都在硬边界内
	_, cands, err := s.Select(chain, criteria.NewContext())
	require.NoError(t, err)
	assert.Len(t, cands, 3)

	// 窗口收窄 delta 与 DTE，LOW 和 LATE 出局
	best, cands, err := s.SelectInWindow(chain, criteria.NewContext(), Window{
		DeltaRange: [2]float64{0.3, 0.6},
		DTERange:   [2]int{11, 42},
	})
	require.NoError(t, err)
	assert.Len(t, cands, 1)
	assert.Equal(t, "MID", best.Contract.Symbol)
}

func TestWindowNeverWidensBounds(t *testing.T) {
	s, err := New(Config{MinDelta: 0.3, MaxDelta: 0.6, MinDTE: 14, MaxDTE: 45, OptimalDTE: 30})
	require.NoError(t, err)

	chain := market.Chain{
		Underlying: "XYZ",
		Spot:       100,
		Contracts: []market.Contract{
			{Symbol: "OUT", Strike: 100, Delta: 0.7, DTE: 30},
			{Symbol: "IN", Strike: 100, Delta: 0.5, DTE: 30},
		},
	}
	// 窗口比配置更宽，过滤仍按配置硬边界执行
	best, cands, err := s.SelectInWindow(chain, criteria.NewContext(), Window{
		DeltaRange: [2]float64{0.1, 0.9},
		DTERange:   [2]int{7, 60},
	})
	require.NoError(t, err)
	assert.Len(t, cands, 1)
	assert.Equal(t, "IN", best.Contract.Symbol)
}

func TestDisjointWindowFallsBackToConfig(t *testing.T) {
	s, err := New(Config{MinDelta: 0.3, MaxDelta: 0.6, MinDTE: 14, MaxDTE: 45, OptimalDTE: 30})
	require.NoError(t, err)

	best, cands, err := s.SelectInWindow(testChain(), criteria.NewContext(), Window{
		DeltaRange: [2]float64{0.8, 0.95},
		DTERange:   [2]int{50, 60},
	})
	require.NoError(t, err)
	assert.Len(t, cands, 1)
	assert.Equal(t, "XYZ-100-P", best.Contract.Symbol)
}
