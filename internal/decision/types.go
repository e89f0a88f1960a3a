// 中文说明：
// decision 定义一次完整决策周期的最终产物与其结构校验。
// Decision 是审计日志与 HTTP 层的稳定契约，理由列表永远非空。
package decision

import (
	"fmt"
	"strings"
	"time"

	"premia/internal/market"
)

// Decision 单次评估的最终结论。
type Decision struct {
	TraceID   string           `json:"trace_id"`
	Symbol    string           `json:"symbol"`
	Trade     bool             `json:"trade"`
	Contract  *market.Contract `json:"contract,omitempty"`
	Contracts int              `json:"contracts"`
	Fraction  float64          `json:"fraction"`
	Score     float64          `json:"score"`
	Regime    market.Regime    `json:"regime"`
	Rationale []string         `json:"rationale"`
	DecidedAt time.Time        `json:"decided_at"`
}

// Validate 校验决策记录的内部一致性。
func Validate(d *Decision) error {
	if d == nil {
		return fmt.Errorf("decision 为空")
	}
	if strings.TrimSpace(d.Symbol) == "" {
		return fmt.Errorf("symbol 必填")
	}
	if len(d.Rationale) == 0 {
		return fmt.Errorf("rationale 不能为空")
	}
	for i, r := range d.Rationale {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("rationale#%d 为空白", i+1)
		}
	}
	if d.Score < 0 || d.Score > 1 {
		return fmt.Errorf("score %.4f 超出 [0,1]", d.Score)
	}
	if d.Trade {
		if d.Contract == nil {
			return fmt.Errorf("可交易决策必须给出合约")
		}
		if d.Contracts <= 0 {
			return fmt.Errorf("可交易决策需 contracts>0")
		}
	} else if d.Contracts != 0 {
		return fmt.Errorf("不交易决策 contracts 应为 0")
	}
	return nil
}
