package app

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"premia/internal/analysis"
	"premia/internal/criteria"
	"premia/internal/engine"
	"premia/internal/market"
	"premia/internal/risk"
	"premia/internal/selector"
)

func testManager(t *testing.T, min, max float64) *criteria.Manager {
	t.Helper()
	crit, err := criteria.NewDeltaCriterion(min, max, 1.0)
	require.NoError(t, err)
	mgr := criteria.NewManager()
	require.NoError(t, mgr.Add(crit))
	return mgr
}

func newWiredEngine(t *testing.T, mgr *criteria.Manager) *wiredEngine {
	t.Helper()
	analyzer := analysis.NewAnalyzer(analysis.Config{RSIPeriod: 5, MAPeriod: 10, VolLookback: 5})
	sel, err := selector.New(selector.Config{MinDelta: 0.25, MaxDelta: 0.75, MinDTE: 14, MaxDTE: 45, OptimalDTE: 30})
	require.NoError(t, err)
	sel.WithGate(mgr)
	eng, err := engine.New(analyzer, sel, mgr, risk.NewManager(risk.Config{ConsecutiveLossLimit: 1000}))
	require.NoError(t, err)
	return &wiredEngine{Engine: eng, store: nil}
}

func adapterSnapshot() market.Snapshot {
	prices := make([]float64, 80)
	prices[0] = 100
	for i := 1; i < len(prices); i++ {
		prices[i] = prices[i-1] * 1.001
	}
	return market.Snapshot{
		Symbol: "XYZ",
		Prices: prices,
		Chain: market.Chain{
			Underlying: "XYZ",
			Spot:       108,
			Contracts: []market.Contract{
				{Symbol: "XYZ-108-P", Strike: 108, Delta: 0.45, DTE: 30, OpenInterest: 700},
			},
		},
		Portfolio: market.Portfolio{TotalValue: 10_000_000, MarginFree: 1_000_000},
	}
}

// 并发打评估、成交回报与状态查询：串行化后状态计数必须精确。
func TestConcurrentRequestsAreSerialized(t *testing.T) {
	w := newWiredEngine(t, testManager(t, 0.25, 0.75))
	snap := adapterSnapshot()

	const evals = 8
	const outcomes = 40

	var wg sync.WaitGroup
	for i := 0; i < evals; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.Evaluate(context.Background(), snap)
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < outcomes; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			pnl := 100.0
			if n%2 == 0 {
				pnl = -100.0
			}
			_, err := w.RecordTradeOutcome(context.Background(), pnl, "")
			assert.NoError(t, err)
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.RiskMetrics()
		}()
	}
	wg.Wait()

	met := w.RiskMetrics()
	assert.Equal(t, outcomes, met.TradeCount)
	assert.InDelta(t, 0.5, met.WinRate, 1e-9)
}

// 档案切换只能发生在周期间隙，切换后立即以新约束评估。
func TestSwapCriteriaBetweenCycles(t *testing.T) {
	w := newWiredEngine(t, testManager(t, 0.25, 0.75))
	snap := adapterSnapshot()

	d, err := w.Evaluate(context.Background(), snap)
	require.NoError(t, err)
	assert.True(t, d.Trade)

	// 新档案把唯一候选 (delta 0.45) 挡在区间外
	w.SwapCriteria(testManager(t, 0.5, 0.6))

	d, err = w.Evaluate(context.Background(), snap)
	require.NoError(t, err)
	assert.False(t, d.Trade)

	w.SwapCriteria(testManager(t, 0.25, 0.75))
	d, err = w.Evaluate(context.Background(), snap)
	require.NoError(t, err)
	assert.True(t, d.Trade)
}
