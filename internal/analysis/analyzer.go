package analysis

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"premia/internal/market"
)

// 中文说明：
// Analyzer 将标的价格历史转换为市场分析视图：RSI、趋势、年化波动率与 regime 分类。
// 全部计算为固定窗口上的纯算术，不持有任何跨周期状态。

const tradingDaysPerYear = 252

// Config 描述分析所需的窗口与阈值参数。
type Config struct {
	RSIPeriod    int     `mapstructure:"rsi_period"`
	MAPeriod     int     `mapstructure:"ma_period"`
	VolLookback  int     `mapstructure:"vol_lookback"`
	TrendEpsilon float64 `mapstructure:"trend_epsilon"`
	VolThreshold float64 `mapstructure:"volatility_threshold"`
}

func (c Config) withDefaults() Config {
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = 14
	}
	if c.MAPeriod <= 0 {
		c.MAPeriod = 50
	}
	if c.VolLookback <= 0 {
		c.VolLookback = 20
	}
	if c.TrendEpsilon <= 0 {
		c.TrendEpsilon = 0.02
	}
	if c.VolThreshold <= 0 {
		c.VolThreshold = 0.4
	}
	return c
}

// MinHistory 返回完整分析所需的最小价格条数。
func (c Config) MinHistory() int {
	c = c.withDefaults()
	need := c.MAPeriod
	if n := c.RSIPeriod + 1; n > need {
		need = n
	}
	if n := c.VolLookback + 1; n > need {
		need = n
	}
	return need
}

// InsufficientDataError 指标计算历史不足。
type InsufficientDataError struct {
	Indicator string
	Need      int
	Have      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data (need %d, have %d)", e.Indicator, e.Need, e.Have)
}

// View 一次市场分析的完整输出。
type View struct {
	LastPrice          float64               `json:"last_price"`
	MovingAverage      float64               `json:"moving_average"`
	RSI                float64               `json:"rsi"`
	Volatility         float64               `json:"volatility"`
	BaselineVolatility float64               `json:"baseline_volatility"`
	VolBucket          market.VolBucket      `json:"vol_bucket"`
	TrendDirection     market.TrendDirection `json:"trend_direction"`
	TrendStrength      float64               `json:"trend_strength"`
	Regime             market.Regime         `json:"regime"`

	RecommendedDeltaRange [2]float64 `json:"recommended_delta_range"`
	RecommendedDTERange   [2]int     `json:"recommended_dte_range"`
}

// Analyzer 市场分析器。
type Analyzer struct {
	cfg Config
}

// NewAnalyzer 构造 Analyzer，零值参数回退到默认窗口。
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg.withDefaults()}
}

// Config 返回生效后的配置。
func (a *Analyzer) Config() Config { return a.cfg }

// ComputeRSI 计算 Wilder 平滑 RSI，返回值落在 [0,100]。
func (a *Analyzer) ComputeRSI(prices []float64, period int) (float64, error) {
	if period <= 0 {
		period = a.cfg.RSIPeriod
	}
	if len(prices) < period+1 {
		return 0, &InsufficientDataError{Indicator: "rsi", Need: period + 1, Have: len(prices)}
	}
	series := sanitizeSeries(talib.Rsi(prices, period))
	rsi := lastValid(series)
	if rsi < 0 {
		rsi = 0
	}
	if rsi > 100 {
		rsi = 100
	}
	return rsi, nil
}

// ComputeVolatility 计算滚动窗口上对数收益标准差的年化值。
func (a *Analyzer) ComputeVolatility(prices []float64, lookback int) (float64, error) {
	if lookback <= 0 {
		lookback = a.cfg.VolLookback
	}
	if len(prices) < lookback+1 {
		return 0, &InsufficientDataError{Indicator: "volatility", Need: lookback + 1, Have: len(prices)}
	}
	returns, err := logReturns(prices)
	if err != nil {
		return 0, err
	}
	series := sanitizeSeries(talib.StdDev(returns, lookback, 1.0))
	return lastValid(series) * math.Sqrt(tradingDaysPerYear), nil
}

// baselineVolatility 全历史对数收益标准差的年化值，作为波动率基线。
func (a *Analyzer) baselineVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	series := sanitizeSeries(talib.StdDev(returns, len(returns), 1.0))
	return lastValid(series) * math.Sqrt(tradingDaysPerYear)
}

// ClassifyTrend 比较最新价与均线：偏离超过 epsilon 判定方向，强度为归一化偏离度。
func (a *Analyzer) ClassifyTrend(lastPrice, ma float64) (market.TrendDirection, float64) {
	if ma <= 0 {
		return market.TrendNeutral, 0
	}
	strength := math.Min(1, math.Abs(lastPrice-ma)/ma)
	switch {
	case lastPrice > ma*(1+a.cfg.TrendEpsilon):
		return market.TrendBullish, strength
	case lastPrice < ma*(1-a.cfg.TrendEpsilon):
		return market.TrendBearish, strength
	default:
		return market.TrendNeutral, strength
	}
}

// ClassifyVolBucket 波动率分档：严格高于阈值为 high，严格低于阈值一半为 low，其余 normal。
func (a *Analyzer) ClassifyVolBucket(vol, threshold float64) market.VolBucket {
	if threshold <= 0 {
		threshold = a.cfg.VolThreshold
	}
	switch {
	case vol > threshold:
		return market.VolHigh
	case vol < threshold*0.5:
		return market.VolLow
	default:
		return market.VolNormal
	}
}

// ClassifyRegime 趋势 × 波动率档位 → 九宫格 regime。
func (a *Analyzer) ClassifyRegime(trend market.TrendDirection, vol, threshold float64) market.Regime {
	return market.RegimeOf(trend, a.ClassifyVolBucket(vol, threshold))
}

// Analyze 对价格历史做完整分析。历史不足时返回 InsufficientDataError，
// 同时给出中性兜底视图，调用方按策略选择降级或直接放弃本周期。
func (a *Analyzer) Analyze(prices []float64) (View, error) {
	if need := a.cfg.MinHistory(); len(prices) < need {
		return NeutralView(), &InsufficientDataError{Indicator: "analysis", Need: need, Have: len(prices)}
	}

	lastPrice := prices[len(prices)-1]
	maSeries := sanitizeSeries(talib.Sma(prices, a.cfg.MAPeriod))
	ma := lastValid(maSeries)

	rsi, err := a.ComputeRSI(prices, a.cfg.RSIPeriod)
	if err != nil {
		return NeutralView(), err
	}
	vol, err := a.ComputeVolatility(prices, a.cfg.VolLookback)
	if err != nil {
		return NeutralView(), err
	}
	returns, err := logReturns(prices)
	if err != nil {
		return NeutralView(), err
	}

	trend, strength := a.ClassifyTrend(lastPrice, ma)
	bucket := a.ClassifyVolBucket(vol, a.cfg.VolThreshold)
	regime := market.RegimeOf(trend, bucket)

	view := View{
		LastPrice:          lastPrice,
		MovingAverage:      ma,
		RSI:                rsi,
		Volatility:         vol,
		BaselineVolatility: a.baselineVolatility(returns),
		VolBucket:          bucket,
		TrendDirection:     trend,
		TrendStrength:      strength,
		Regime:             regime,
	}
	view.RecommendedDeltaRange = recommendedDeltaRange(regime, bucket)
	view.RecommendedDTERange = recommendedDTERange(bucket)
	return view, nil
}

// NeutralView 历史不足时的兜底视图：中性 regime、RSI 中值、常规波动。
func NeutralView() View {
	return View{
		RSI:                   50,
		Volatility:            0.2,
		BaselineVolatility:    0.2,
		VolBucket:             market.VolNormal,
		TrendDirection:        market.TrendNeutral,
		TrendStrength:         0.5,
		Regime:                market.RegimeNeutralNormalVol,
		RecommendedDeltaRange: [2]float64{0.25, 0.75},
		RecommendedDTERange:   [2]int{14, 45},
	}
}

func logReturns(prices []float64) ([]float64, error) {
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			return nil, fmt.Errorf("non-positive price at index %d", i)
		}
		out = append(out, math.Log(prices[i]/prices[i-1]))
	}
	return out, nil
}

// recommendedDeltaRange 按 regime 与波动档位平移基础 delta 区间。
func recommendedDeltaRange(regime market.Regime, bucket market.VolBucket) [2]float64 {
	lo, hi := 0.25, 0.75
	switch bucket {
	case market.VolHigh:
		lo += 0.1
		hi += 0.1
	case market.VolLow:
		lo -= 0.05
		hi -= 0.05
	}
	switch regime {
	case market.RegimeBullishLowVol, market.RegimeBullishNormalVol, market.RegimeBullishHighVol:
		lo += 0.05
		hi += 0.05
	}
	clamp := func(v float64) float64 { return math.Max(0.1, math.Min(0.9, v)) }
	return [2]float64{clamp(lo), clamp(hi)}
}

// recommendedDTERange 按波动档位平移基础 DTE 区间。
func recommendedDTERange(bucket market.VolBucket) [2]int {
	lo, hi := 14, 45
	switch bucket {
	case market.VolHigh:
		lo += 7
		hi += 7
	case market.VolLow:
		lo -= 3
		hi -= 3
	}
	if lo < 7 {
		lo = 7
	}
	if hi < 21 {
		hi = 21
	}
	return [2]int{lo, hi}
}

func sanitizeSeries(src []float64) []float64 {
	out := make([]float64, 0, len(src))
	for _, v := range src {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i]
		}
	}
	return 0
}
