package criteria

// Result 单个 criterion 的评估结论。
type Result int

const (
	ResultPass Result = iota
	ResultFail
	ResultWarn
)

func (r Result) String() string {
	switch r {
	case ResultPass:
		return "PASS"
	case ResultFail:
		return "FAIL"
	case ResultWarn:
		return "WARN"
	default:
		return "UNKNOWN"
	}
}

// Evaluation 单个 criterion 的评估输出。
// 约定：PASS 时 Score 有效且落在 [0,1]；FAIL 时 Score 为 0（除非该 criterion 明确定义部分得分）。
type Evaluation struct {
	Criterion string         `json:"criterion"`
	Result    Result         `json:"result"`
	Score     float64        `json:"score"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// Criterion 评估契约：无状态、构造后不可变，可跨周期复用。
type Criterion interface {
	// Name 返回唯一名称，同名 criterion 在 Manager 内互斥。
	Name() string
	// Weight 返回聚合权重，构造时保证 > 0。
	Weight() float64
	// RequiredFields 声明评估所依赖的上下文字段。
	RequiredFields() []Field
	// Evaluate 对给定上下文评估，不得修改上下文。
	Evaluate(ctx Context) Evaluation
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
