package risk

import (
	"fmt"
	"time"

	"premia/internal/logger"
	"premia/internal/market"
)

const (
	contractMultiplier = 100
	marginRate         = 0.2
)

// Config 风险参数。零值字段在 NewManager 中回退到保守默认。
type Config struct {
	MaxPortfolioRisk     float64       `mapstructure:"max_portfolio_risk"`
	MaxDrawdown          float64       `mapstructure:"max_drawdown"`
	MaxPositionSize      float64       `mapstructure:"max_position_size"`
	ConsecutiveLossLimit int           `mapstructure:"consecutive_loss_limit"`
	MinTradeHistory      int           `mapstructure:"min_trade_history"`
	KellyFloor           float64       `mapstructure:"kelly_floor"`
	KellyCap             float64       `mapstructure:"kelly_cap"`
	VolDampingRatio      float64       `mapstructure:"vol_damping_ratio"`
	VolDampingFactor     float64       `mapstructure:"vol_damping_factor"`
	VolBoostFactor       float64       `mapstructure:"vol_boost_factor"`
	Cooldown             time.Duration `mapstructure:"cooldown"`
	RecoveryFraction     float64       `mapstructure:"recovery_fraction"`
}

func (c Config) withDefaults() Config {
	if c.MaxPortfolioRisk <= 0 {
		c.MaxPortfolioRisk = 0.02
	}
	if c.MaxDrawdown <= 0 {
		c.MaxDrawdown = 0.15
	}
	if c.MaxPositionSize <= 0 {
		c.MaxPositionSize = 0.20
	}
	if c.ConsecutiveLossLimit <= 0 {
		c.ConsecutiveLossLimit = 3
	}
	if c.MinTradeHistory <= 0 {
		c.MinTradeHistory = 5
	}
	if c.KellyFloor <= 0 {
		c.KellyFloor = 0.1
	}
	if c.KellyCap <= 0 {
		c.KellyCap = 0.5
	}
	if c.VolDampingRatio <= 0 {
		c.VolDampingRatio = 1.5
	}
	if c.VolDampingFactor <= 0 {
		c.VolDampingFactor = 0.7
	}
	if c.VolBoostFactor <= 0 {
		c.VolBoostFactor = 1.2
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 24 * time.Hour
	}
	if c.RecoveryFraction <= 0 {
		c.RecoveryFraction = 0.5
	}
	return c
}

// SizeRequest 一次头寸规模计算的输入。
type SizeRequest struct {
	Contract           market.Contract
	UnderlyingPrice    float64
	PortfolioValue     float64
	MarginFree         float64
	CurrentVolatility  float64
	BaselineVolatility float64
}

// SizeResult 头寸规模计算的输出。Reasons 永远非空，拒绝必须可解释。
type SizeResult struct {
	Contracts int      `json:"contracts"`
	Fraction  float64  `json:"fraction"`
	Kelly     float64  `json:"kelly"`
	VolFactor float64  `json:"vol_factor"`
	Paused    bool     `json:"paused"`
	Reasons   []string `json:"reasons"`
}

// Manager 将交易信号转换为受限头寸规模，并通过熔断器闸断交易。
// 非并发安全：调用方保证同一时刻至多一个决策周期在执行。
type Manager struct {
	cfg   Config
	state state
	now   func() time.Time
}

// NewManager 构造风险管理器。
func NewManager(cfg Config) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:   cfg,
		state: state{breaker: newBreaker(cfg.Cooldown, cfg.RecoveryFraction)},
		now:   time.Now,
	}
}

// WithClock 注入时钟，测试冷却恢复用。
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// Config 返回生效后的风险参数。
func (m *Manager) Config() Config { return m.cfg }

// KellyFraction 按历史战绩计算 Kelly 比例并夹在 [floor, cap] 内。
// avg_win 为零时直接走保守回退，绝不除零。
func KellyFraction(winRate, avgWin, avgLoss, floor, cap float64) float64 {
	if avgWin <= 0 {
		return floor
	}
	f := (winRate*avgWin - (1-winRate)*avgLoss) / avgWin
	if f < floor {
		return floor
	}
	if f > cap {
		return cap
	}
	return f
}

// kellyLeg 返回 (kelly 比例, 是否使用了保守回退)。
func (m *Manager) kellyLeg() (float64, bool) {
	if len(m.state.history) < m.cfg.MinTradeHistory {
		return m.cfg.MaxPositionSize / 2, true
	}
	avgWin := m.state.avgWin()
	if avgWin == 0 {
		return m.cfg.MaxPositionSize / 2, true
	}
	return KellyFraction(m.state.winRate(), avgWin, m.state.avgLoss(),
		m.cfg.KellyFloor, m.cfg.KellyCap), false
}

// volFactor 波动率调节因子：显著高于基线打折，显著低于基线小幅放大。
func (m *Manager) volFactor(current, baseline float64) float64 {
	if baseline <= 0 || current <= 0 {
		return 1.0
	}
	switch {
	case current > baseline*m.cfg.VolDampingRatio:
		return m.cfg.VolDampingFactor
	case current < baseline*0.5:
		return m.cfg.VolBoostFactor
	default:
		return 1.0
	}
}

// SizePosition 计算可开合约张数。熔断暂停或组合净值非法时恒为 0。
func (m *Manager) SizePosition(req SizeRequest) SizeResult {
	now := m.now()

	if req.PortfolioValue <= 0 {
		return SizeResult{
			Contracts: 0,
			Paused:    m.state.breaker.state == BreakerPaused,
			Reasons:   []string{fmt.Sprintf("invalid portfolio value %.2f, sizing refused", req.PortfolioValue)},
		}
	}

	drawdown := m.state.observeValue(req.PortfolioValue)
	if drawdown > m.cfg.MaxDrawdown {
		m.state.breaker.pause(CauseDrawdown, now)
	}
	m.state.breaker.maybeResume(now, drawdown, m.cfg.MaxDrawdown)

	if m.state.breaker.state == BreakerPaused {
		return SizeResult{
			Contracts: 0,
			Paused:    true,
			Reasons:   []string{"circuit breaker paused: " + m.state.breaker.cause.String()},
		}
	}

	var reasons []string
	kelly, fallback := m.kellyLeg()
	if fallback {
		reasons = append(reasons, fmt.Sprintf(
			"insufficient trade history (%d/%d), conservative kelly fallback %.3f",
			len(m.state.history), m.cfg.MinTradeHistory, kelly))
	} else {
		reasons = append(reasons, fmt.Sprintf("kelly fraction %.3f (win rate %.2f)", kelly, m.state.winRate()))
	}

	volFactor := m.volFactor(req.CurrentVolatility, req.BaselineVolatility)
	if volFactor != 1.0 {
		reasons = append(reasons, fmt.Sprintf(
			"volatility adjustment x%.2f (current %.3f vs baseline %.3f)",
			volFactor, req.CurrentVolatility, req.BaselineVolatility))
	}
	adjusted := kelly * volFactor

	fraction := adjusted
	if fraction > m.cfg.MaxPositionSize {
		fraction = m.cfg.MaxPositionSize
		reasons = append(reasons, fmt.Sprintf("capped by max position size %.2f", m.cfg.MaxPositionSize))
	}

	perContractLoss := maxLossPerContract(req.Contract.Strike, req.UnderlyingPrice)
	margin := marginPerContract(req.Contract.Strike)

	riskBudget := req.PortfolioValue * m.cfg.MaxPortfolioRisk
	riskContracts := contractsFor(riskBudget, perContractLoss)
	if perContractLoss == 0 {
		// 最坏情形下仍无内在价值的深虚值合约，风险腿不设限，由保证金与仓位上限兜底。
		riskContracts = int(^uint(0) >> 1)
	}

	conservative := contractsFor(req.PortfolioValue*m.cfg.MaxPositionSize, margin)
	if conservative < 1 {
		conservative = 1
	}
	marginContracts := conservative
	if req.MarginFree > 0 {
		marginContracts = contractsFor(req.MarginFree, margin)
	}

	kellyContracts := int(float64(riskContracts) * adjusted)
	if perContractLoss == 0 {
		kellyContracts = int(float64(conservative) * adjusted)
	}

	contracts := riskContracts
	if marginContracts < contracts {
		contracts = marginContracts
	}
	if kellyContracts < contracts {
		contracts = kellyContracts
	}
	if conservative < contracts {
		contracts = conservative
	}

	if contracts <= 0 {
		reasons = append(reasons, "portfolio risk caps allow no contracts")
		return SizeResult{Contracts: 0, Fraction: fraction, Kelly: kelly, VolFactor: volFactor, Reasons: reasons}
	}

	reasons = append(reasons, fmt.Sprintf(
		"sized %d contracts (risk leg %d, margin leg %d, kelly leg %d)",
		contracts, riskContracts, marginContracts, kellyContracts))
	return SizeResult{Contracts: contracts, Fraction: fraction, Kelly: kelly, VolFactor: volFactor, Reasons: reasons}
}

// RecordTradeOutcome 记录一笔平仓结果：盈利清零连亏计数，亏损累加并在
// 达到上限时触发熔断。必须按平仓时间顺序调用。
func (m *Manager) RecordTradeOutcome(pnl float64) {
	now := m.now()
	m.state.history = append(m.state.history, TradeOutcome{PnL: pnl, ClosedAt: now})
	if pnl < 0 {
		m.state.consecutiveLosses++
		if m.state.consecutiveLosses >= m.cfg.ConsecutiveLossLimit {
			m.state.breaker.pause(CauseLossStreak, now)
		}
	} else {
		m.state.consecutiveLosses = 0
	}
	logger.Debugf("trade outcome recorded pnl=%.2f consecutive_losses=%d breaker=%s",
		pnl, m.state.consecutiveLosses, m.state.breaker.state)
}

// SeedHistory 启动时回放历史成交（外层应用从持久层恢复状态用）。
func (m *Manager) SeedHistory(outcomes []TradeOutcome) {
	for _, t := range outcomes {
		m.state.history = append(m.state.history, t)
		if t.PnL < 0 {
			m.state.consecutiveLosses++
			if m.state.consecutiveLosses >= m.cfg.ConsecutiveLossLimit {
				m.state.breaker.pause(CauseLossStreak, t.ClosedAt)
			}
		} else {
			m.state.consecutiveLosses = 0
		}
	}
}

// UpdatePortfolioValue 周期外的净值观测入口（如盘后净值推送）。
func (m *Manager) UpdatePortfolioValue(v float64) {
	if v <= 0 {
		return
	}
	drawdown := m.state.observeValue(v)
	if drawdown > m.cfg.MaxDrawdown {
		m.state.breaker.pause(CauseDrawdown, m.now())
	}
}

// Reset 手动复位熔断器（外部运维入口）。
func (m *Manager) Reset() {
	m.state.breaker.resume("manual reset")
	m.state.consecutiveLosses = 0
}

// BreakerState 返回当前熔断状态。
func (m *Manager) BreakerState() BreakerState { return m.state.breaker.state }

// Metrics 返回风险状态快照。
func (m *Manager) Metrics() Metrics {
	met := Metrics{
		TradeCount:        len(m.state.history),
		WinRate:           m.state.winRate(),
		AvgWin:            m.state.avgWin(),
		AvgLoss:           m.state.avgLoss(),
		PeakValue:         m.state.peakValue,
		LastValue:         m.state.lastValue,
		Drawdown:          drawdownOf(m.state.peakValue, m.state.lastValue),
		ConsecutiveLosses: m.state.consecutiveLosses,
		BreakerState:      m.state.breaker.state,
		Breaker:           m.state.breaker.state.String(),
	}
	if m.state.breaker.state == BreakerPaused {
		met.PauseCause = m.state.breaker.cause.String()
	}
	return met
}
