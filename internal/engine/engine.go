// 中文说明：
// engine 串联一次完整决策周期：
// 行情快照 -> 市场分析 -> 选约（含逐候选闸门）-> 准入裁决 -> 头寸规模 -> Decision。
// 周期内同步执行，同一 Engine 实例同一时刻至多一个周期在跑。
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"premia/internal/analysis"
	"premia/internal/criteria"
	"premia/internal/decision"
	"premia/internal/logger"
	"premia/internal/market"
	"premia/internal/risk"
	"premia/internal/selector"
)

// Sink 决策落库接口，nil 表示不做持久化。
type Sink interface {
	SaveDecision(ctx context.Context, d decision.Decision) error
}

// Engine 决策引擎。
type Engine struct {
	analyzer *analysis.Analyzer
	selector *selector.Selector
	manager  *criteria.Manager
	risk     *risk.Manager
	sink     Sink
	now      func() time.Time
}

// New 构造引擎，四个核心组件都必须非 nil。
func New(a *analysis.Analyzer, s *selector.Selector, m *criteria.Manager, r *risk.Manager) (*Engine, error) {
	if a == nil || s == nil || m == nil || r == nil {
		return nil, fmt.Errorf("engine 依赖不完整")
	}
	return &Engine{analyzer: a, selector: s, manager: m, risk: r, now: time.Now}, nil
}

// WithSink 挂接决策落库。
func (e *Engine) WithSink(sink Sink) *Engine {
	e.sink = sink
	return e
}

// WithClock 注入时钟，仅测试使用。
func (e *Engine) WithClock(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
	}
	return e
}

// Risk 暴露风险管理器，供成交回报与状态查询入口使用。
func (e *Engine) Risk() *risk.Manager { return e.risk }

// Criteria 暴露准入管理器，供查询当前约束集使用。
func (e *Engine) Criteria() *criteria.Manager { return e.manager }

// SetCriteria 替换准入管理器并同步选约闸门（档案热更新入口）。
// 只能在两个决策周期之间调用，周期内的串行化由外层保证。
func (e *Engine) SetCriteria(m *criteria.Manager) {
	if m == nil {
		return
	}
	e.manager = m
	e.selector.WithGate(m)
}

// Evaluate 执行一次完整决策周期并返回决策记录。
// 数据不足、无合格合约、闸门拒绝与风险归零都表达为不交易的 Decision，
// 仅结构性问题（决策自检失败）作为 error 返回。
func (e *Engine) Evaluate(ctx context.Context, snap market.Snapshot) (decision.Decision, error) {
	traceID := uuid.NewString()
	symbol := snap.NormalizedSymbol()
	logger.Infof("decision cycle start trace=%s symbol=%s prices=%d contracts=%d",
		traceID, symbol, len(snap.Prices), len(snap.Chain.Contracts))

	view, err := e.analyzer.Analyze(snap.Prices)
	if err != nil {
		var ide *analysis.InsufficientDataError
		if errors.As(err, &ide) {
			return e.noTrade(ctx, traceID, symbol, view.Regime, 0,
				[]string{fmt.Sprintf("market analysis unavailable: %v", err)})
		}
		return decision.Decision{}, fmt.Errorf("market analysis: %w", err)
	}

	base := e.baseContext(view)

	window := selector.Window{
		DeltaRange: view.RecommendedDeltaRange,
		DTERange:   view.RecommendedDTERange,
	}
	best, cands, err := e.selector.SelectInWindow(snap.Chain, base, window)
	if err != nil {
		if errors.Is(err, selector.ErrNoEligibleContract) {
			return e.noTrade(ctx, traceID, symbol, view.Regime, 0,
				[]string{"no contract passed hard filter and gate"})
		}
		return decision.Decision{}, fmt.Errorf("contract selection: %w", err)
	}
	logger.Debugf("selected %s among %d candidates score=%.3f trace=%s",
		best.Contract.Symbol, len(cands), best.Score, traceID)

	full := base.WithContract(best.Contract, snap.Chain.Spot)
	full.Timestamp = e.now()
	verdict := e.manager.Decide(full)

	rationale := make([]string, 0, len(verdict.Evaluations)+5)
	rationale = append(rationale, fmt.Sprintf("regime %s window: delta %.2f-%.2f, dte %d-%d",
		view.Regime, window.DeltaRange[0], window.DeltaRange[1], window.DTERange[0], window.DTERange[1]))
	for _, ev := range verdict.Evaluations {
		rationale = append(rationale, fmt.Sprintf("[%s] %s: %s", ev.Result, ev.Criterion, ev.Message))
	}
	rationale = append(rationale, verdict.Summary)

	if !verdict.Allowed {
		return e.noTrade(ctx, traceID, symbol, view.Regime, verdict.Score, rationale)
	}

	sized := e.risk.SizePosition(risk.SizeRequest{
		Contract:           best.Contract,
		UnderlyingPrice:    snap.Chain.Spot,
		PortfolioValue:     snap.Portfolio.TotalValue,
		MarginFree:         snap.Portfolio.MarginFree,
		CurrentVolatility:  view.Volatility,
		BaselineVolatility: view.BaselineVolatility,
	})
	rationale = append(rationale, sized.Reasons...)

	if sized.Contracts <= 0 {
		return e.noTrade(ctx, traceID, symbol, view.Regime, verdict.Score, rationale)
	}

	ct := best.Contract
	d := decision.Decision{
		TraceID:   traceID,
		Symbol:    symbol,
		Trade:     true,
		Contract:  &ct,
		Contracts: sized.Contracts,
		Fraction:  sized.Fraction,
		Score:     verdict.Score,
		Regime:    view.Regime,
		Rationale: rationale,
		DecidedAt: e.now(),
	}
	if err := decision.Validate(&d); err != nil {
		return decision.Decision{}, fmt.Errorf("decision self-check: %w", err)
	}
	e.persist(ctx, d)
	logger.Infof("decision trace=%s symbol=%s trade=true contract=%s size=%d score=%.3f",
		traceID, symbol, ct.Symbol, sized.Contracts, verdict.Score)
	return d, nil
}

// baseContext 把市场视图折到本周期的共享上下文，合约相关字段留空。
func (e *Engine) baseContext(view analysis.View) criteria.Context {
	ctx := criteria.NewContext()
	ctx.Volatility = view.Volatility
	ctx.MarketRegime = view.Regime
	ctx.RSI = view.RSI
	ctx.TrendDirection = view.TrendDirection
	ctx.TrendStrength = view.TrendStrength
	return ctx
}

func (e *Engine) noTrade(ctx context.Context, traceID, symbol string, regime market.Regime, score float64, rationale []string) (decision.Decision, error) {
	if len(rationale) == 0 {
		rationale = []string{"no rationale recorded"}
	}
	d := decision.Decision{
		TraceID:   traceID,
		Symbol:    symbol,
		Trade:     false,
		Score:     score,
		Regime:    regime,
		Rationale: rationale,
		DecidedAt: e.now(),
	}
	if err := decision.Validate(&d); err != nil {
		return decision.Decision{}, fmt.Errorf("decision self-check: %w", err)
	}
	e.persist(ctx, d)
	logger.Infof("decision trace=%s symbol=%s trade=false: %s", traceID, symbol, rationale[len(rationale)-1])
	return d, nil
}

func (e *Engine) persist(ctx context.Context, d decision.Decision) {
	if e.sink == nil {
		return
	}
	if err := e.sink.SaveDecision(ctx, d); err != nil {
		logger.Errorf("save decision trace=%s: %v", d.TraceID, err)
	}
}
