// 中文说明：
// selector 在期权链上挑选单个最优合约：先按 delta/DTE 硬边界过滤，
// 可选地让 criteria.Manager 对每个候选做一次 AND 闸门预检，
// 再按行权价距离、delta 贴近度与 DTE 贴近度的加权得分排序取最优。
package selector

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"premia/internal/criteria"
	"premia/internal/logger"
	"premia/internal/market"
)

// ErrNoEligibleContract 表示硬过滤与闸门之后候选集为空。
var ErrNoEligibleContract = errors.New("no eligible contract in chain")

const (
	strikeWeight = 0.4
	deltaWeight  = 0.4
	dteWeight    = 0.2

	// 行权价偏离标的超过 10% 后距离分直接归零。
	maxStrikeDistance = 0.1
)

// Config 选约参数。
type Config struct {
	MinDelta   float64 `mapstructure:"min_delta"`
	MaxDelta   float64 `mapstructure:"max_delta"`
	MinDTE     int     `mapstructure:"min_dte"`
	MaxDTE     int     `mapstructure:"max_dte"`
	OptimalDTE int     `mapstructure:"optimal_dte"`
}

func (c Config) withDefaults() Config {
	if c.MinDelta == 0 && c.MaxDelta == 0 {
		c.MinDelta, c.MaxDelta = 0.25, 0.75
	}
	if c.MaxDTE == 0 {
		c.MinDTE, c.MaxDTE = 14, 45
	}
	if c.OptimalDTE <= 0 {
		c.OptimalDTE = 30
	}
	return c
}

func (c Config) validate() error {
	if c.MinDelta < 0 || c.MaxDelta > 1 || c.MinDelta >= c.MaxDelta {
		return fmt.Errorf("delta 区间非法: [%.3f, %.3f]", c.MinDelta, c.MaxDelta)
	}
	if c.MinDTE < 0 || c.MinDTE > c.MaxDTE {
		return fmt.Errorf("dte 区间非法: [%d, %d]", c.MinDTE, c.MaxDTE)
	}
	return nil
}

// Candidate 单个候选合约及其拆项得分，按选约调用临时生成。
type Candidate struct {
	Contract    market.Contract `json:"contract"`
	StrikeScore float64         `json:"strike_score"`
	DeltaScore  float64         `json:"delta_score"`
	DTEScore    float64         `json:"dte_score"`
	Score       float64         `json:"score"`
}

// Window 单周期的建议边界（来自市场分析），与配置硬边界取交集后参与过滤。
// 零值维度表示该维度不收窄。
type Window struct {
	DeltaRange [2]float64
	DTERange   [2]int
}

// Selector 按硬边界加权得分选约，可选挂接 criteria.Manager 做逐候选闸门。
type Selector struct {
	cfg  Config
	gate *criteria.Manager
}

// New 构造选约器。
func New(cfg Config) (*Selector, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Selector{cfg: cfg}, nil
}

// WithGate 挂接闸门管理器，nil 表示不做逐候选预检。
func (s *Selector) WithGate(m *criteria.Manager) *Selector {
	s.gate = m
	return s
}

// Config 返回生效后的选约参数。
func (s *Selector) Config() Config { return s.cfg }

func inBounds(cfg Config, ct market.Contract) bool {
	d := math.Abs(ct.Delta)
	if d < cfg.MinDelta || d > cfg.MaxDelta {
		return false
	}
	return ct.DTE >= cfg.MinDTE && ct.DTE <= cfg.MaxDTE
}

// effectiveConfig 把周期窗口叠加到配置硬边界上。交集为空的维度回退到
// 配置边界：建议窗口只收窄候选集，绝不放宽也绝不清空。
func (s *Selector) effectiveConfig(w Window) Config {
	eff := s.cfg
	if w.DeltaRange[1] > 0 {
		lo := math.Max(eff.MinDelta, w.DeltaRange[0])
		hi := math.Min(eff.MaxDelta, w.DeltaRange[1])
		if lo < hi {
			eff.MinDelta, eff.MaxDelta = lo, hi
		} else {
			logger.Debugf("delta window [%.2f, %.2f] disjoint from configured bounds, ignoring",
				w.DeltaRange[0], w.DeltaRange[1])
		}
	}
	if w.DTERange[1] > 0 {
		lo := max(eff.MinDTE, w.DTERange[0])
		hi := min(eff.MaxDTE, w.DTERange[1])
		if lo <= hi {
			eff.MinDTE, eff.MaxDTE = lo, hi
		} else {
			logger.Debugf("dte window [%d, %d] disjoint from configured bounds, ignoring",
				w.DTERange[0], w.DTERange[1])
		}
	}
	return eff
}

func (s *Selector) score(ct market.Contract, spot float64) Candidate {
	c := Candidate{Contract: ct}

	if spot > 0 {
		dist := math.Abs(ct.Strike-spot) / spot
		if dist > maxStrikeDistance {
			dist = maxStrikeDistance
		}
		c.StrikeScore = clamp01(1 - dist/maxStrikeDistance)
	}

	mid := (s.cfg.MinDelta + s.cfg.MaxDelta) / 2
	if mid > 0 {
		c.DeltaScore = clamp01(1 - math.Abs(math.Abs(ct.Delta)-mid)/mid)
	}

	opt := float64(s.cfg.OptimalDTE)
	c.DTEScore = clamp01(1 - math.Abs(float64(ct.DTE)-opt)/opt)

	c.Score = strikeWeight*c.StrikeScore + deltaWeight*c.DeltaScore + dteWeight*c.DTEScore
	return c
}

// Select 返回最优合约。候选集为空时返回 ErrNoEligibleContract。
// base 是本周期的共享市场上下文，闸门预检时按候选合约逐个派生。
func (s *Selector) Select(chain market.Chain, base criteria.Context) (Candidate, []Candidate, error) {
	return s.SelectInWindow(chain, base, Window{})
}

// SelectInWindow 在配置硬边界与周期建议窗口的交集内选约。
// 得分公式仍以配置边界为基准，窗口只影响过滤。
func (s *Selector) SelectInWindow(chain market.Chain, base criteria.Context, w Window) (Candidate, []Candidate, error) {
	eff := s.effectiveConfig(w)
	var cands []Candidate
	for _, ct := range chain.Contracts {
		if !inBounds(eff, ct) {
			continue
		}
		if s.gate != nil {
			ctx := base.WithContract(ct, chain.Spot)
			allowed, _, summary := s.gate.ShouldTrade(ctx)
			if !allowed {
				logger.Debugf("candidate %s rejected by gate: %s", ct.Symbol, summary)
				continue
			}
		}
		cands = append(cands, s.score(ct, chain.Spot))
	}
	if len(cands) == 0 {
		return Candidate{}, nil, ErrNoEligibleContract
	}

	opt := s.cfg.OptimalDTE
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		di := abs(cands[i].Contract.DTE - opt)
		dj := abs(cands[j].Contract.DTE - opt)
		if di != dj {
			return di < dj
		}
		return cands[i].Contract.OpenInterest > cands[j].Contract.OpenInterest
	})
	return cands[0], cands, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
