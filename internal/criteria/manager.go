package criteria

import (
	"fmt"
	"strings"
)

// 中文说明：
// Manager 聚合一组 criterion 产出单一交易许可。规则是硬 AND 门：
// 任意一个 FAIL 即否决，加权得分仅在全部通过时才有意义。
// Add/Remove 只允许在两次评估之间调用，评估过程中不做并发保护。

// Manager 管理一组 criterion 并聚合评估结论。
type Manager struct {
	criteria []Criterion
}

// Verdict 一次聚合评估的完整结论。
type Verdict struct {
	Allowed     bool
	Score       float64
	Summary     string
	Evaluations []Evaluation
	Errors      []string
}

// NewManager 构造 Manager，nil 条目被忽略。
func NewManager(criteria ...Criterion) *Manager {
	m := &Manager{}
	for _, c := range criteria {
		if c != nil {
			m.criteria = append(m.criteria, c)
		}
	}
	return m
}

// Add 追加 criterion；同名已存在时返回错误，避免重复计权。
func (m *Manager) Add(c Criterion) error {
	if c == nil {
		return fmt.Errorf("criteria manager: nil criterion")
	}
	for _, existing := range m.criteria {
		if existing.Name() == c.Name() {
			return fmt.Errorf("criteria manager: criterion %s 已存在", c.Name())
		}
	}
	m.criteria = append(m.criteria, c)
	return nil
}

// Remove 按名称移除 criterion，返回是否命中。
func (m *Manager) Remove(name string) bool {
	for i, c := range m.criteria {
		if c.Name() == name {
			m.criteria = append(m.criteria[:i], m.criteria[i+1:]...)
			return true
		}
	}
	return false
}

// Criteria 返回当前 criterion 列表的副本。
func (m *Manager) Criteria() []Criterion {
	out := make([]Criterion, len(m.criteria))
	copy(out, m.criteria)
	return out
}

// RequiredFields 汇总全部 criterion 的必需字段（去重，保持首次出现顺序）。
func (m *Manager) RequiredFields() []Field {
	seen := make(map[Field]struct{})
	var out []Field
	for _, c := range m.criteria {
		for _, f := range c.RequiredFields() {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// ValidateContext 校验上下文范围与必需字段，返回全部问题。
func (m *Manager) ValidateContext(ctx Context) []string {
	errs := ctx.Validate()
	for _, f := range m.RequiredFields() {
		if !ctx.FieldSet(f) {
			errs = append(errs, fmt.Sprintf("required field '%s' is missing", f))
		}
	}
	return errs
}

// EvaluateAll 逐个评估全部 criterion。上下文非法时不调用任何 criterion，
// 直接对每个 criterion 产出 FAIL 评估（fail closed）。
func (m *Manager) EvaluateAll(ctx Context) []Evaluation {
	if errs := m.ValidateContext(ctx); len(errs) > 0 {
		out := make([]Evaluation, 0, len(m.criteria))
		msg := "context validation failed: " + strings.Join(errs, ", ")
		for _, c := range m.criteria {
			out = append(out, Evaluation{
				Criterion: c.Name(),
				Result:    ResultFail,
				Score:     0,
				Message:   msg,
				Details:   map[string]any{"validation_errors": errs},
			})
		}
		return out
	}
	out := make([]Evaluation, 0, len(m.criteria))
	for _, c := range m.criteria {
		out = append(out, c.Evaluate(ctx))
	}
	return out
}

// Decide 聚合评估并产出 Verdict。
func (m *Manager) Decide(ctx Context) Verdict {
	if len(m.criteria) == 0 {
		return Verdict{Allowed: true, Score: 1.0, Summary: "no constraints configured"}
	}

	if errs := m.ValidateContext(ctx); len(errs) > 0 {
		return Verdict{
			Allowed: false,
			Score:   0,
			Summary: "context validation failed: " + strings.Join(errs, ", "),
			Errors:  errs,
		}
	}

	evals := make([]Evaluation, 0, len(m.criteria))
	var failed []string
	for _, c := range m.criteria {
		ev := c.Evaluate(ctx)
		evals = append(evals, ev)
		if ev.Result == ResultFail {
			failed = append(failed, ev.Message)
		}
	}

	if len(failed) > 0 {
		return Verdict{
			Allowed:     false,
			Score:       0,
			Summary:     "trade blocked by: " + strings.Join(failed, ", "),
			Evaluations: evals,
		}
	}

	var totalWeight, weightedSum float64
	for i, c := range m.criteria {
		totalWeight += c.Weight()
		weightedSum += evals[i].Score * c.Weight()
	}
	score := 0.0
	if totalWeight > 0 {
		score = clamp01(weightedSum / totalWeight)
	}
	return Verdict{
		Allowed:     true,
		Score:       score,
		Summary:     fmt.Sprintf("trade allowed by %d criteria with score %.3f", len(evals), score),
		Evaluations: evals,
	}
}

// ShouldTrade 以 (allowed, score, summary) 三元组形式返回聚合结论。
func (m *Manager) ShouldTrade(ctx Context) (bool, float64, string) {
	v := m.Decide(ctx)
	return v.Allowed, v.Score, v.Summary
}

// Summary 返回当前配置的可读摘要。
func (m *Manager) Summary() string {
	if len(m.criteria) == 0 {
		return "no criteria configured"
	}
	var b strings.Builder
	b.WriteString("trading criteria:\n")
	for _, c := range m.criteria {
		names := make([]string, 0, len(c.RequiredFields()))
		for _, f := range c.RequiredFields() {
			names = append(names, string(f))
		}
		fmt.Fprintf(&b, "  - %s (weight: %.2f, requires: [%s])\n",
			c.Name(), c.Weight(), strings.Join(names, ", "))
	}
	return b.String()
}
