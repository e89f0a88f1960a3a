// 中文说明：
// app 负责应用级编排：加载配置 -> 初始化依赖 -> 启动 HTTP 服务。
// 决策周期由外部调用方通过 /api/evaluate 触发，app 不内置调度器。
package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"premia/internal/config"
	"premia/internal/engine"
	"premia/internal/logger"
	"premia/internal/store/decisionlog"
	"premia/internal/store/gormstore"
	apihttp "premia/internal/transport/http"
)

// App 应用对象。
type App struct {
	cfg    *config.Config
	engine *engine.Engine
	http   *apihttp.Server
	logs   *decisionlog.Store
	store  *gormstore.GormStore
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return build(cfg)
}

// Engine 暴露决策引擎（测试/回放用）。
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}

// Run 启动 HTTP 服务并阻塞到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.close()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("http server listening on %s", a.http.Addr())
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

func (a *App) close() {
	if a.logs != nil {
		if err := a.logs.Close(); err != nil {
			logger.Errorf("close decision log: %v", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Errorf("close store: %v", err)
		}
	}
}
