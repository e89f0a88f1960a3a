package market

import (
	"strings"
	"time"
)

// 中文说明：
// 本文件定义决策核心消费的外部输入快照：标的价格历史、期权链与账户组合。
// 数据由外部采集方提供，这里只做结构约定，不负责抓取与清洗。

// Contract 单个期权合约条目（期权链成员）。
type Contract struct {
	Symbol       string  `json:"symbol"`
	Strike       float64 `json:"strike"`
	Delta        float64 `json:"delta"`
	DTE          int     `json:"dte"`
	ImpliedVol   float64 `json:"implied_vol,omitempty"`
	OpenInterest float64 `json:"open_interest,omitempty"`
	Bid          float64 `json:"bid,omitempty"`
	Ask          float64 `json:"ask,omitempty"`
}

// Chain 期权链：同一标的、同一时刻的全部候选合约。
type Chain struct {
	Underlying string     `json:"underlying"`
	Spot       float64    `json:"spot"`
	Contracts  []Contract `json:"contracts"`
}

// Portfolio 账户组合快照。
type Portfolio struct {
	TotalValue    float64 `json:"total_value"`
	Cash          float64 `json:"cash"`
	MarginFree    float64 `json:"margin_free,omitempty"`
	OpenPositions int     `json:"open_positions,omitempty"`
}

// Snapshot 一次决策周期的完整输入。
type Snapshot struct {
	Symbol    string    `json:"symbol"`
	Prices    []float64 `json:"prices"`
	Chain     Chain     `json:"chain"`
	Portfolio Portfolio `json:"portfolio"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// LastPrice 返回价格历史的最新值，空序列返回 0。
func (s Snapshot) LastPrice() float64 {
	if len(s.Prices) == 0 {
		return 0
	}
	return s.Prices[len(s.Prices)-1]
}

// NormalizedSymbol 统一使用大写无空格的标的代码。
func (s Snapshot) NormalizedSymbol() string {
	return strings.ToUpper(strings.TrimSpace(s.Symbol))
}
