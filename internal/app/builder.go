package app

import (
	"context"
	"fmt"
	"os"

	"premia/internal/analysis"
	"premia/internal/config"
	"premia/internal/criteria"
	"premia/internal/engine"
	"premia/internal/logger"
	"premia/internal/presets"
	"premia/internal/risk"
	"premia/internal/selector"
	"premia/internal/store/decisionlog"
	"premia/internal/store/gormstore"
	apihttp "premia/internal/transport/http"
)

func build(cfg *config.Config) (*App, error) {
	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}
	manager, err := buildCriteriaManager(cfg, registry)
	if err != nil {
		return nil, err
	}

	analyzer := analysis.NewAnalyzer(cfg.Analysis)

	sel, err := selector.New(cfg.Selector)
	if err != nil {
		return nil, fmt.Errorf("selector: %w", err)
	}
	sel.WithGate(manager)

	riskMgr := risk.NewManager(cfg.Risk)

	store, err := gormstore.New(cfg.App.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if outcomes, err := store.Outcomes(context.Background()); err != nil {
		logger.Warnf("replay trade history failed: %v", err)
	} else if len(outcomes) > 0 {
		riskMgr.SeedHistory(outcomes)
		logger.Infof("replayed %d trade outcomes, breaker=%s", len(outcomes), riskMgr.BreakerState())
	}

	logs, err := decisionlog.New(cfg.App.DecisionLogPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open decision log: %w", err)
	}
	// 两份库落在同一文件时共享 gorm 的连接，避免双 WAL 句柄竞争。
	if cfg.App.DecisionLogPath == cfg.App.StorePath {
		sqlDB, err := store.SQLDB()
		if err == nil {
			err = logs.UseExternalDB(sqlDB)
		}
		if err != nil {
			logs.Close()
			store.Close()
			return nil, fmt.Errorf("share store connection: %w", err)
		}
	}

	eng, err := engine.New(analyzer, sel, manager, riskMgr)
	if err != nil {
		logs.Close()
		store.Close()
		return nil, err
	}
	eng.WithSink(logs)

	wired := &wiredEngine{Engine: eng, store: store}

	// 档案文件热更新：按配置的档案名重建 manager 并在周期间隙换入。
	if !cfg.Criteria.Inline() && cfg.Criteria.Preset != "" {
		preset := cfg.Criteria.Preset
		registry.OnChange(func(presets.Snapshot) {
			mgr, err := registry.Manager(preset)
			if err != nil {
				logger.Errorf("criteria preset %q rebuild failed, keeping previous: %v", preset, err)
				return
			}
			wired.SwapCriteria(mgr)
			logger.Infof("criteria preset %q reloaded", preset)
		})
	}

	srv, err := apihttp.NewServer(apihttp.ServerConfig{
		Addr:     cfg.App.HTTPAddr,
		Engine:   wired,
		Logs:     logs,
		Registry: registry,
	})
	if err != nil {
		logs.Close()
		store.Close()
		return nil, err
	}

	return &App{cfg: cfg, engine: eng, http: srv, logs: logs, store: store}, nil
}

func buildRegistry(cfg *config.Config) (*presets.Registry, error) {
	path := cfg.Criteria.PresetsPath
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			// 文件不存在时只用内置档案
			logger.Debugf("presets file %s not found, using built-ins only", path)
			path = ""
		}
	}
	registry, err := presets.NewRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("presets registry: %w", err)
	}
	return registry, nil
}

func buildCriteriaManager(cfg *config.Config, registry *presets.Registry) (*criteria.Manager, error) {
	if cfg.Criteria.Inline() {
		mgr, err := criteria.BuildManager(cfg.Criteria.Custom)
		if err != nil {
			return nil, fmt.Errorf("criteria.custom: %w", err)
		}
		logger.Infof("criteria: %s", mgr.Summary())
		return mgr, nil
	}
	mgr, err := registry.Manager(cfg.Criteria.Preset)
	if err != nil {
		return nil, fmt.Errorf("criteria preset %q: %w", cfg.Criteria.Preset, err)
	}
	logger.Infof("criteria preset %q: %s", cfg.Criteria.Preset, mgr.Summary())
	return mgr, nil
}
