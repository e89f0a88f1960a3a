package risk

import (
	"math"

	"github.com/shopspring/decimal"
)

// 资金相关算术统一走 decimal，避免边界比较受浮点误差影响。

var (
	decZero    = decimal.Zero
	decHalf    = decimal.NewFromFloat(0.5)
	decHundred = decimal.NewFromInt(contractMultiplier)
)

func decFromFloat(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decZero
	}
	return decimal.NewFromFloat(v)
}

func decToFloat(v decimal.Decimal) float64 {
	f, _ := v.Float64()
	return f
}

// maxLossPerContract 卖出认沽的每合约最大亏损估计：
// 采用标的腰斩（50% 下跌）的现实化最坏情形，而非直接归零。
func maxLossPerContract(strike, underlyingPrice float64) float64 {
	worstCase := decFromFloat(underlyingPrice).Mul(decHalf)
	intrinsic := decFromFloat(strike).Sub(worstCase)
	if intrinsic.Cmp(decZero) <= 0 {
		return 0
	}
	return decToFloat(intrinsic.Mul(decHundred))
}

// marginPerContract 卖出认沽的每合约保证金占用估计（行权价的 20%）。
func marginPerContract(strike float64) float64 {
	return decToFloat(decFromFloat(strike).Mul(decHundred).Mul(decFromFloat(marginRate)))
}

// drawdownOf 相对峰值的回撤比例；峰值非正时返回 0。
func drawdownOf(peak, current float64) float64 {
	p := decFromFloat(peak)
	if p.Cmp(decZero) <= 0 {
		return 0
	}
	dd := p.Sub(decFromFloat(current)).Div(p)
	if dd.Cmp(decZero) < 0 {
		return 0
	}
	return decToFloat(dd)
}

// contractsFor 按风险预算与单张风险计算可开张数（向下取整）。
func contractsFor(budget, perContract float64) int {
	pc := decFromFloat(perContract)
	if pc.Cmp(decZero) <= 0 {
		return 0
	}
	return int(decFromFloat(budget).Div(pc).IntPart())
}
