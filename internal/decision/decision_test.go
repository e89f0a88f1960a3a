package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"premia/internal/market"
)

func TestValidateDecision(t *testing.T) {
	ok := &Decision{
		TraceID: "t-1", Symbol: "XYZ", Trade: true,
		Contract:  &market.Contract{Symbol: "XYZ-100-P", Strike: 100, Delta: 0.45, DTE: 30},
		Contracts: 2, Fraction: 0.1, Score: 0.8,
		Rationale: []string{"delta within range", "sized 2 contracts"},
	}
	assert.NoError(t, Validate(ok))

	noTrade := &Decision{Symbol: "XYZ", Rationale: []string{"blocked"}}
	assert.NoError(t, Validate(noTrade))

	assert.Error(t, Validate(nil))
	assert.Error(t, Validate(&Decision{Symbol: "XYZ"}), "理由列表不能为空")
	assert.Error(t, Validate(&Decision{Symbol: "XYZ", Trade: true, Rationale: []string{"x"}}))
	assert.Error(t, Validate(&Decision{Symbol: "XYZ", Score: 1.5, Rationale: []string{"x"}}))
	assert.Error(t, Validate(&Decision{Symbol: "XYZ", Contracts: 3, Rationale: []string{"x"}}))
}

func TestValidateSnapshotJSON(t *testing.T) {
	good := `{
		"symbol": "XYZ",
		"prices": [95, 96, 97, 98, 99, 100],
		"chain": {"contracts": [{"strike": 100, "delta": 0.45, "dte": 30}]},
		"portfolio": {"total_value": 100000}
	}`
	assert.NoError(t, ValidateSnapshotJSON(good))

	cases := map[string]string{
		"空内容":        ``,
		"非法 json":    `{`,
		"根非对象":       `[1,2,3]`,
		"缺 symbol":   `{"prices":[1,2]}`,
		"prices 非数组": `{"symbol":"XYZ","prices":"abc"}`,
		"prices 为空":  `{"symbol":"XYZ","prices":[]}`,
		"prices 含负数": `{"symbol":"XYZ","prices":[100,-5]}`,
		"合约缺 delta":  `{"symbol":"XYZ","prices":[100],"chain":{"contracts":[{"strike":100,"dte":30}]}}`,
		"合约 strike":  `{"symbol":"XYZ","prices":[100],"chain":{"contracts":[{"strike":0,"delta":0.3,"dte":30}]}}`,
		"组合净值":       `{"symbol":"XYZ","prices":[100],"portfolio":{"total_value":0}}`,
	}
	for name, raw := range cases {
		assert.Error(t, ValidateSnapshotJSON(raw), name)
	}
}
