package risk

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"premia/internal/market"
)

func testRequest() SizeRequest {
	return SizeRequest{
		Contract:           market.Contract{Symbol: "XYZ-45-P", Strike: 45, Delta: 0.3, DTE: 30},
		UnderlyingPrice:    50,
		PortfolioValue:     1_000_000,
		MarginFree:         100_000,
		CurrentVolatility:  0.2,
		BaselineVolatility: 0.2,
	}
}

func TestKellyFraction(t *testing.T) {
	assert.InDelta(t, 0.4, KellyFraction(0.6, 100, 50, 0.1, 0.5), 1e-9)
	// 负期望夹到下限
	assert.InDelta(t, 0.1, KellyFraction(0.3, 50, 100, 0.1, 0.5), 1e-9)
	// 高期望夹到上限
	assert.InDelta(t, 0.5, KellyFraction(0.9, 200, 10, 0.1, 0.5), 1e-9)
	// avg_win 为零走下限，不除零
	assert.InDelta(t, 0.1, KellyFraction(0.5, 0, 100, 0.1, 0.5), 1e-9)
}

func TestKellyFallbackWithShortHistory(t *testing.T) {
	m := NewManager(Config{})
	m.RecordTradeOutcome(120)
	m.RecordTradeOutcome(80)

	res := m.SizePosition(testRequest())
	assert.InDelta(t, 0.1, res.Kelly, 1e-9, "回退值应为 MaxPositionSize/2")
	assert.NotEmpty(t, res.Reasons)

	found := false
	for _, r := range res.Reasons {
		if strings.Contains(r, "fallback") {
			found = true
		}
	}
	assert.True(t, found, "reasons 应解释保守回退")
}

func TestVolatilityAdjustmentMonotone(t *testing.T) {
	m := NewManager(Config{})

	req := testRequest()
	req.CurrentVolatility = 0.35 // > 1.5x baseline
	high := m.SizePosition(req).VolFactor

	req.CurrentVolatility = 0.2
	normal := m.SizePosition(req).VolFactor

	req.CurrentVolatility = 0.05 // < 0.5x baseline
	low := m.SizePosition(req).VolFactor

	assert.InDelta(t, 0.7, high, 1e-9)
	assert.InDelta(t, 1.0, normal, 1e-9)
	assert.InDelta(t, 1.2, low, 1e-9)
	assert.True(t, high <= normal && normal <= low)
}

func TestConsecutiveLossBreaker(t *testing.T) {
	clock := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	m := NewManager(Config{ConsecutiveLossLimit: 3, Cooldown: 24 * time.Hour}).
		WithClock(func() time.Time { return clock })

	m.RecordTradeOutcome(-100)
	m.RecordTradeOutcome(-50)
	assert.Equal(t, BreakerActive, m.BreakerState())

	m.RecordTradeOutcome(-75)
	assert.Equal(t, BreakerPaused, m.BreakerState())

	res := m.SizePosition(testRequest())
	assert.Equal(t, 0, res.Contracts)
	assert.True(t, res.Paused)
	assert.NotEmpty(t, res.Reasons)

	// 暂停期间盈利清零连亏计数，但不自动恢复
	m.RecordTradeOutcome(200)
	assert.Equal(t, BreakerPaused, m.BreakerState())
	assert.Equal(t, 0, m.Metrics().ConsecutiveLosses)

	// 冷却期满后恢复交易
	clock = clock.Add(25 * time.Hour)
	res = m.SizePosition(testRequest())
	assert.Equal(t, BreakerActive, m.BreakerState())
	assert.False(t, res.Paused)
	assert.Greater(t, res.Contracts, 0)
}

func TestDrawdownBreaker(t *testing.T) {
	m := NewManager(Config{MaxDrawdown: 0.15})
	m.UpdatePortfolioValue(100_000)

	req := testRequest()
	req.PortfolioValue = 80_000 // 20% 回撤
	res := m.SizePosition(req)
	assert.Equal(t, 0, res.Contracts)
	assert.True(t, res.Paused)
	assert.Equal(t, BreakerPaused, m.BreakerState())

	// 回撤收敛到恢复线以下（5% < 15% * 0.5）即恢复
	req.PortfolioValue = 95_000
	res = m.SizePosition(req)
	assert.Equal(t, BreakerActive, m.BreakerState())
	assert.False(t, res.Paused)
}

func TestInvalidPortfolioValue(t *testing.T) {
	m := NewManager(Config{})
	req := testRequest()
	req.PortfolioValue = 0
	res := m.SizePosition(req)
	assert.Equal(t, 0, res.Contracts)
	assert.NotEmpty(t, res.Reasons)

	req.PortfolioValue = -5
	res = m.SizePosition(req)
	assert.Equal(t, 0, res.Contracts)
	assert.NotEmpty(t, res.Reasons)
}

func TestPeakValueMonotone(t *testing.T) {
	m := NewManager(Config{MaxDrawdown: 0.5})
	m.UpdatePortfolioValue(100_000)
	m.UpdatePortfolioValue(120_000)
	m.UpdatePortfolioValue(90_000)

	met := m.Metrics()
	assert.InDelta(t, 120_000, met.PeakValue, 1e-9)
	assert.InDelta(t, 90_000, met.LastValue, 1e-9)
	assert.InDelta(t, 0.25, met.Drawdown, 1e-9)
}

func TestSizingLegs(t *testing.T) {
	m := NewManager(Config{})
	res := m.SizePosition(testRequest())

	// maxLoss = (45 - 25) * 100 = 2000, 风险预算 20000 => 风险腿 10 张，
	// kelly 腿 = floor(10 * 0.1) = 1 张，取最小
	assert.Equal(t, 1, res.Contracts)
	assert.NotEmpty(t, res.Reasons)
}

func TestManualReset(t *testing.T) {
	m := NewManager(Config{ConsecutiveLossLimit: 2})
	m.RecordTradeOutcome(-10)
	m.RecordTradeOutcome(-10)
	assert.Equal(t, BreakerPaused, m.BreakerState())

	m.Reset()
	assert.Equal(t, BreakerActive, m.BreakerState())
	assert.Equal(t, 0, m.Metrics().ConsecutiveLosses)
}

func TestSeedHistory(t *testing.T) {
	m := NewManager(Config{ConsecutiveLossLimit: 3})
	at := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	m.SeedHistory([]TradeOutcome{
		{PnL: 100, ClosedAt: at},
		{PnL: -50, ClosedAt: at.Add(time.Hour)},
		{PnL: -60, ClosedAt: at.Add(2 * time.Hour)},
		{PnL: -70, ClosedAt: at.Add(3 * time.Hour)},
	})
	assert.Equal(t, 4, m.Metrics().TradeCount)
	assert.Equal(t, BreakerPaused, m.BreakerState())
}
