package risk

import "time"

// 中文说明：
// RiskState 由 Manager 独占持有：成交历史、峰值净值、连亏计数与熔断状态。
// 外部只能通过 Manager 的方法读写，持久化由外层应用负责。

// TradeOutcome 单笔已平仓交易结果。
type TradeOutcome struct {
	PnL      float64   `json:"pnl"`
	ClosedAt time.Time `json:"closed_at"`
}

type state struct {
	history           []TradeOutcome
	peakValue         float64
	lastValue         float64
	consecutiveLosses int
	breaker           breaker
}

// observeValue 记录最新净值并单调更新峰值，返回当前回撤。
func (s *state) observeValue(v float64) float64 {
	s.lastValue = v
	if v > s.peakValue {
		s.peakValue = v
	}
	return drawdownOf(s.peakValue, v)
}

func (s *state) winRate() float64 {
	if len(s.history) == 0 {
		return 0
	}
	wins := 0
	for _, t := range s.history {
		if t.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(s.history))
}

func (s *state) avgWin() float64 {
	var sum float64
	n := 0
	for _, t := range s.history {
		if t.PnL > 0 {
			sum += t.PnL
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func (s *state) avgLoss() float64 {
	var sum float64
	n := 0
	for _, t := range s.history {
		if t.PnL < 0 {
			sum += -t.PnL
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Metrics 风险状态快照，供监控与持久化使用。
type Metrics struct {
	TradeCount        int          `json:"trade_count"`
	WinRate           float64      `json:"win_rate"`
	AvgWin            float64      `json:"avg_win"`
	AvgLoss           float64      `json:"avg_loss"`
	PeakValue         float64      `json:"peak_value"`
	LastValue         float64      `json:"last_value"`
	Drawdown          float64      `json:"drawdown"`
	ConsecutiveLosses int          `json:"consecutive_losses"`
	BreakerState      BreakerState `json:"-"`
	Breaker           string       `json:"breaker"`
	PauseCause        string       `json:"pause_cause,omitempty"`
}
