package config

import (
	"fmt"
	"strings"

	"premia/internal/criteria"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Criteria.validate(); err != nil {
		return err
	}
	if err := validateRisk(c); err != nil {
		return err
	}
	return nil
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

func (a *AppConfig) validate() error {
	if !validLogLevels[strings.ToLower(a.LogLevel)] {
		return fmt.Errorf("app.log_level 非法: %s", a.LogLevel)
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr 不能为空")
	}
	return nil
}

func (c *CriteriaConfig) validate() error {
	if c.Inline() && strings.TrimSpace(c.Preset) != "" {
		return fmt.Errorf("criteria.preset 与 criteria.custom 只能二选一")
	}
	if c.Inline() {
		// 加载期干跑一次工厂，未知类型或权重非法直接报错
		if _, err := criteria.BuildManager(c.Custom); err != nil {
			return fmt.Errorf("criteria.custom: %w", err)
		}
	}
	return nil
}

func validateRisk(c *Config) error {
	r := c.Risk
	if r.MaxPortfolioRisk < 0 || r.MaxPortfolioRisk > 1 {
		return fmt.Errorf("risk.max_portfolio_risk 超出 [0,1]")
	}
	if r.MaxDrawdown < 0 || r.MaxDrawdown > 1 {
		return fmt.Errorf("risk.max_drawdown 超出 [0,1]")
	}
	if r.MaxPositionSize < 0 || r.MaxPositionSize > 1 {
		return fmt.Errorf("risk.max_position_size 超出 [0,1]")
	}
	if r.ConsecutiveLossLimit < 0 {
		return fmt.Errorf("risk.consecutive_loss_limit 需 >=0")
	}
	if r.KellyFloor < 0 || r.KellyCap > 1 || (r.KellyCap > 0 && r.KellyFloor > r.KellyCap) {
		return fmt.Errorf("risk.kelly_floor/kelly_cap 区间非法")
	}
	return nil
}
