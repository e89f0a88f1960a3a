package criteria

import (
	"fmt"
	"strings"
	"time"

	"premia/internal/market"
	"premia/internal/pkg/convert"
)

// 中文说明：
// Context 是所有 criterion 共享的评估上下文：市场分析结果 + 合约字段的合并快照。
// 每个决策周期构造一个新实例，校验通过后视为只读，下游仅以值传递消费。

// Field 标识 Context 中可被 criterion 声明为必需的字段。
type Field string

const (
	FieldDelta           Field = "delta"
	FieldDTE             Field = "dte"
	FieldStrike          Field = "strike"
	FieldUnderlyingPrice Field = "underlying_price"
	FieldVolatility      Field = "volatility"
	FieldMarketRegime    Field = "market_regime"
	FieldRSI             Field = "rsi"
	FieldTrendDirection  Field = "trend_direction"
	FieldTrendStrength   Field = "trend_strength"
)

// Context 单次评估的完整输入。
type Context struct {
	Delta           float64
	DTE             int
	Strike          float64
	UnderlyingPrice float64

	Volatility     float64
	MarketRegime   market.Regime
	RSI            float64
	TrendDirection market.TrendDirection
	TrendStrength  float64

	Contract  *market.Contract
	Timestamp time.Time
}

// NewContext 返回带默认市场字段的空上下文（RSI 中值、中性趋势）。
// 合约与市场字段由调用方按周期逐步填充。
func NewContext() Context {
	return Context{
		MarketRegime:   market.RegimeUnknown,
		RSI:            50.0,
		TrendDirection: market.TrendNeutral,
		TrendStrength:  0.5,
	}
}

// WithContract 返回填充了合约字段的副本，原上下文不变。
func (c Context) WithContract(ct market.Contract, underlyingPrice float64) Context {
	out := c
	out.Delta = ct.Delta
	out.DTE = ct.DTE
	out.Strike = ct.Strike
	out.UnderlyingPrice = underlyingPrice
	cc := ct
	out.Contract = &cc
	return out
}

// Validate 校验字段取值范围与必填字段，返回全部问题（空切片表示通过）。
func (c Context) Validate() []string {
	var errs []string

	if c.Delta == 0 {
		errs = append(errs, "delta is required")
	}
	if c.DTE == 0 {
		errs = append(errs, "dte is required")
	}
	if c.UnderlyingPrice == 0 {
		errs = append(errs, "underlying price is required")
	}
	if c.Strike == 0 {
		errs = append(errs, "strike price is required")
	}

	if c.Delta < 0 || c.Delta > 1 {
		errs = append(errs, fmt.Sprintf("delta %.4f out of range [0,1]", c.Delta))
	}
	if c.DTE < 0 {
		errs = append(errs, fmt.Sprintf("dte %d must be non-negative", c.DTE))
	}
	if c.UnderlyingPrice < 0 {
		errs = append(errs, "underlying price must be non-negative")
	}
	if c.Strike < 0 {
		errs = append(errs, "strike price must be non-negative")
	}
	if c.Volatility < 0 || c.Volatility > 2 {
		errs = append(errs, fmt.Sprintf("volatility %.4f out of range [0,2]", c.Volatility))
	}
	if c.RSI < 0 || c.RSI > 100 {
		errs = append(errs, fmt.Sprintf("rsi %.2f out of range [0,100]", c.RSI))
	}
	if c.TrendStrength < 0 || c.TrendStrength > 1 {
		errs = append(errs, fmt.Sprintf("trend strength %.4f out of range [0,1]", c.TrendStrength))
	}
	return errs
}

// FieldSet 判断字段是否已被填充（零值哨兵语义，与原始校验口径一致）。
func (c Context) FieldSet(f Field) bool {
	switch f {
	case FieldDelta:
		return c.Delta != 0
	case FieldDTE:
		return c.DTE != 0
	case FieldStrike:
		return c.Strike != 0
	case FieldUnderlyingPrice:
		return c.UnderlyingPrice != 0
	case FieldVolatility:
		return c.Volatility != 0
	case FieldMarketRegime:
		return c.MarketRegime != market.RegimeUnknown && c.MarketRegime != ""
	case FieldRSI:
		return c.RSI >= 0 && c.RSI <= 100
	case FieldTrendDirection:
		return c.TrendDirection.Valid()
	case FieldTrendStrength:
		return c.TrendStrength >= 0 && c.TrendStrength <= 1
	default:
		return false
	}
}

// FromMap 兼容旧式 map 上下文的显式转换入口（v1 字段命名）。
// 未识别的键会被忽略，数值统一软转换。
func FromMap(data map[string]any) Context {
	ctx := NewContext()
	for key, raw := range data {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "delta":
			ctx.Delta = convert.ToFloat64(raw)
		case "dte":
			ctx.DTE = convert.ToInt(raw)
		case "strike":
			ctx.Strike = convert.ToFloat64(raw)
		case "underlying_price":
			ctx.UnderlyingPrice = convert.ToFloat64(raw)
		case "volatility":
			ctx.Volatility = convert.ToFloat64(raw)
		case "market_regime":
			if s, ok := raw.(string); ok {
				ctx.MarketRegime = market.ParseRegime(s)
			}
		case "rsi":
			ctx.RSI = convert.ToFloat64(raw)
		case "trend_direction":
			if s, ok := raw.(string); ok {
				ctx.TrendDirection = market.TrendDirection(strings.ToLower(s))
			}
		case "trend_strength":
			ctx.TrendStrength = convert.ToFloat64(raw)
		}
	}
	return ctx
}
