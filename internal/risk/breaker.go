package risk

import (
	"time"

	"premia/internal/logger"
)

// BreakerState 熔断器状态。
type BreakerState int

const (
	BreakerActive BreakerState = iota
	BreakerPaused
)

func (s BreakerState) String() string {
	switch s {
	case BreakerActive:
		return "ACTIVE"
	case BreakerPaused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

// PauseCause 触发熔断的原因。恢复条件按原因区分：
// 回撤触发的暂停可随回撤收敛提前恢复，连亏触发的暂停只能等冷却或手动复位。
type PauseCause int

const (
	CauseNone PauseCause = iota
	CauseDrawdown
	CauseLossStreak
)

func (c PauseCause) String() string {
	switch c {
	case CauseDrawdown:
		return "max drawdown exceeded"
	case CauseLossStreak:
		return "consecutive loss limit reached"
	default:
		return "none"
	}
}

type breaker struct {
	state    BreakerState
	cause    PauseCause
	pausedAt time.Time

	cooldown         time.Duration
	recoveryFraction float64
}

func newBreaker(cooldown time.Duration, recoveryFraction float64) breaker {
	if recoveryFraction <= 0 || recoveryFraction >= 1 {
		recoveryFraction = 0.5
	}
	return breaker{state: BreakerActive, cooldown: cooldown, recoveryFraction: recoveryFraction}
}

func (b *breaker) pause(cause PauseCause, now time.Time) {
	if b.state == BreakerPaused {
		return
	}
	b.state = BreakerPaused
	b.cause = cause
	b.pausedAt = now
	logger.Warnf("risk breaker %s -> %s (%s)", BreakerActive, BreakerPaused, cause)
}

func (b *breaker) resume(reason string) {
	if b.state == BreakerActive {
		return
	}
	b.state = BreakerActive
	b.cause = CauseNone
	b.pausedAt = time.Time{}
	logger.Infof("risk breaker %s -> %s (%s)", BreakerPaused, BreakerActive, reason)
}

// maybeResume 按策略检查恢复条件：冷却期满，或回撤触发的暂停已收敛到阈值的恢复线以下。
func (b *breaker) maybeResume(now time.Time, drawdown, maxDrawdown float64) {
	if b.state == BreakerActive {
		return
	}
	if b.cooldown > 0 && now.Sub(b.pausedAt) >= b.cooldown {
		b.resume("cooldown elapsed")
		return
	}
	if b.cause == CauseDrawdown && drawdown < maxDrawdown*b.recoveryFraction {
		b.resume("drawdown recovered")
	}
}
