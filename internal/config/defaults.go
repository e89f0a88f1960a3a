package config

// 默认值常量
const (
	defaultAppEnv         = "dev"
	defaultAppLogLevel    = "info"
	defaultAppHTTPAddr    = ":9985"
	defaultAppLogPath     = "data/logs/premia.log"
	defaultDecisionLog    = "data/db/decisions.db"
	defaultStorePath      = "data/db/premia.db"
	defaultCriteriaPreset = "conservative"
	defaultPresetsPath    = "configs/criteria_presets.yaml"
)

// applyDefaults 为所有子配置应用默认值。
// Analysis/Selector/Risk 的零值回退在各自构造器内完成，这里只处理应用层字段。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Criteria.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.decision_log_path", &a.DecisionLogPath, defaultDecisionLog),
		stringFieldDefault("app.store_path", &a.StorePath, defaultStorePath),
	)
}

func (c *CriteriaConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("criteria.presets_path", &c.PresetsPath, defaultPresetsPath),
	)
	if !c.Inline() {
		applyFieldDefaults(keys,
			stringFieldDefault("criteria.preset", &c.Preset, defaultCriteriaPreset),
		)
	}
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && *target == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
