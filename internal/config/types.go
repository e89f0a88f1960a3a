package config

import (
	"strings"

	"premia/internal/analysis"
	"premia/internal/criteria"
	"premia/internal/risk"
	"premia/internal/selector"
)

// Config 是 premia 的主配置载体。
type Config struct {
	App      AppConfig       `mapstructure:"app"`
	Analysis analysis.Config `mapstructure:"analysis"`
	Criteria CriteriaConfig  `mapstructure:"criteria"`
	Selector selector.Config `mapstructure:"selector"`
	Risk     risk.Config     `mapstructure:"risk"`
}

type AppConfig struct {
	Env             string `mapstructure:"env"`
	LogLevel        string `mapstructure:"log_level"`
	HTTPAddr        string `mapstructure:"http_addr"`
	LogPath         string `mapstructure:"log_path"`
	DecisionLogPath string `mapstructure:"decision_log_path"`
	StorePath       string `mapstructure:"store_path"`
}

// CriteriaConfig 声明准入条件来源：内置/文件档案名，或内联的自定义条件列表。
type CriteriaConfig struct {
	Preset      string          `mapstructure:"preset"`
	Custom      []criteria.Spec `mapstructure:"custom"`
	PresetsPath string          `mapstructure:"presets_path"`
}

// Inline 判断是否使用内联条件列表。
func (c CriteriaConfig) Inline() bool {
	return len(c.Custom) > 0
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
