package decision

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ValidateSnapshotJSON 对入站行情快照做结构校验，先于反序列化执行，
// 保证坏负载在进入决策周期前被拒绝并给出可读错误。
func ValidateSnapshotJSON(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("json 内容为空")
	}
	if !gjson.Valid(raw) {
		return fmt.Errorf("json 格式无效")
	}
	root := gjson.Parse(raw)
	if !root.IsObject() {
		return fmt.Errorf("根节点必须是 JSON 对象")
	}

	if strings.TrimSpace(root.Get("symbol").String()) == "" {
		return fmt.Errorf("symbol 必填")
	}

	prices := root.Get("prices")
	if !prices.Exists() || !prices.IsArray() {
		return fmt.Errorf("prices 需为数值数组")
	}
	if len(prices.Array()) == 0 {
		return fmt.Errorf("prices 数组为空")
	}
	var badPrice error
	prices.ForEach(func(_, v gjson.Result) bool {
		if v.Type != gjson.Number || v.Float() <= 0 {
			badPrice = fmt.Errorf("prices 含非正数或非数值元素")
			return false
		}
		return true
	})
	if badPrice != nil {
		return badPrice
	}

	chain := root.Get("chain")
	if chain.Exists() {
		if err := validateChainNode(chain); err != nil {
			return err
		}
	}

	if pf := root.Get("portfolio"); pf.Exists() {
		if !pf.IsObject() {
			return fmt.Errorf("portfolio 需为对象")
		}
		if pf.Get("total_value").Float() <= 0 {
			return fmt.Errorf("portfolio.total_value 需 >0")
		}
	}
	return nil
}

func validateChainNode(chain gjson.Result) error {
	if !chain.IsObject() {
		return fmt.Errorf("chain 需为对象")
	}
	contracts := chain.Get("contracts")
	if !contracts.Exists() || !contracts.IsArray() {
		return fmt.Errorf("chain.contracts 需为数组")
	}
	idx := 0
	var schemaErr error
	contracts.ForEach(func(_, ct gjson.Result) bool {
		idx++
		if !ct.IsObject() {
			schemaErr = fmt.Errorf("合约#%d 需为对象", idx)
			return false
		}
		if ct.Get("strike").Float() <= 0 {
			schemaErr = fmt.Errorf("合约#%d strike 需 >0", idx)
			return false
		}
		if !ct.Get("delta").Exists() {
			schemaErr = fmt.Errorf("合约#%d 缺少 delta", idx)
			return false
		}
		if ct.Get("dte").Int() < 0 {
			schemaErr = fmt.Errorf("合约#%d dte 需 >=0", idx)
			return false
		}
		return true
	})
	return schemaErr
}
