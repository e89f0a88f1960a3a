package market

import "strings"

// 中文说明：
// 市场状态（regime）为趋势方向 × 波动率档位的九宫格枚举，
// 由 analysis 包分类产出，criteria 包在白名单判定时消费。

// TrendDirection 趋势方向。
type TrendDirection string

const (
	TrendBullish TrendDirection = "bullish"
	TrendBearish TrendDirection = "bearish"
	TrendNeutral TrendDirection = "neutral"
)

// Valid 判断趋势方向是否为已知取值。
func (d TrendDirection) Valid() bool {
	switch d {
	case TrendBullish, TrendBearish, TrendNeutral:
		return true
	default:
		return false
	}
}

// VolBucket 波动率档位。
type VolBucket string

const (
	VolLow    VolBucket = "low"
	VolNormal VolBucket = "normal"
	VolHigh   VolBucket = "high"
)

// Regime 市场状态枚举。
type Regime string

const (
	RegimeUnknown Regime = "unknown"

	RegimeBullishLowVol    Regime = "bullish_low_vol"
	RegimeBullishNormalVol Regime = "bullish_normal_vol"
	RegimeBullishHighVol   Regime = "bullish_high_vol"
	RegimeBearishLowVol    Regime = "bearish_low_vol"
	RegimeBearishNormalVol Regime = "bearish_normal_vol"
	RegimeBearishHighVol   Regime = "bearish_high_vol"
	RegimeNeutralLowVol    Regime = "neutral_low_vol"
	RegimeNeutralNormalVol Regime = "neutral_normal_vol"
	RegimeNeutralHighVol   Regime = "neutral_high_vol"
)

var regimeTable = map[TrendDirection]map[VolBucket]Regime{
	TrendBullish: {VolLow: RegimeBullishLowVol, VolNormal: RegimeBullishNormalVol, VolHigh: RegimeBullishHighVol},
	TrendBearish: {VolLow: RegimeBearishLowVol, VolNormal: RegimeBearishNormalVol, VolHigh: RegimeBearishHighVol},
	TrendNeutral: {VolLow: RegimeNeutralLowVol, VolNormal: RegimeNeutralNormalVol, VolHigh: RegimeNeutralHighVol},
}

// RegimeOf 返回趋势 × 波动率档位对应的 regime；未知输入返回 RegimeUnknown。
func RegimeOf(trend TrendDirection, vol VolBucket) Regime {
	row, ok := regimeTable[trend]
	if !ok {
		return RegimeUnknown
	}
	r, ok := row[vol]
	if !ok {
		return RegimeUnknown
	}
	return r
}

// ParseRegime 解析字符串形式的 regime（大小写不敏感），未知取值返回 RegimeUnknown。
func ParseRegime(s string) Regime {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, row := range regimeTable {
		for _, r := range row {
			if string(r) == s {
				return r
			}
		}
	}
	return RegimeUnknown
}
