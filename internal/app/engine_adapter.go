package app

import (
	"context"
	"sync"
	"time"

	"premia/internal/criteria"
	"premia/internal/decision"
	"premia/internal/engine"
	"premia/internal/logger"
	"premia/internal/market"
	"premia/internal/risk"
	"premia/internal/store/gormstore"
)

// wiredEngine 在引擎之上叠加两件事：
// 1. 串行化。HTTP 层并发进来的评估、成交回报与复位都走同一把锁，
//    保证同一时刻至多一个决策周期在跑，RiskState 不被并发改写。
// 2. 持久化。成交回报先进 RiskManager，再落战绩与风险快照；
//    快照落库失败只告警，不阻塞回报。
type wiredEngine struct {
	mu sync.Mutex
	*engine.Engine
	store *gormstore.GormStore
}

func (w *wiredEngine) Evaluate(ctx context.Context, snap market.Snapshot) (decision.Decision, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Engine.Evaluate(ctx, snap)
}

func (w *wiredEngine) RecordTradeOutcome(ctx context.Context, pnl float64, note string) (risk.Metrics, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Risk().RecordTradeOutcome(pnl)
	met := w.Risk().Metrics()
	if w.store != nil {
		if err := w.store.RecordOutcome(ctx, risk.TradeOutcome{PnL: pnl, ClosedAt: time.Now()}, note); err != nil {
			return met, err
		}
		if err := w.store.SaveRiskSnapshot(ctx, met); err != nil {
			logger.Warnf("save risk snapshot: %v", err)
		}
	}
	return met, nil
}

func (w *wiredEngine) RiskMetrics() risk.Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Risk().Metrics()
}

func (w *wiredEngine) ResetRisk() risk.Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Risk().Reset()
	return w.Risk().Metrics()
}

// SwapCriteria 在周期间隙替换准入管理器（档案热更新回调用）。
func (w *wiredEngine) SwapCriteria(m *criteria.Manager) {
	if m == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Engine.SetCriteria(m)
}
