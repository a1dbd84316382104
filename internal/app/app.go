package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"sibyl/internal/agent"
	"sibyl/internal/config"
	"sibyl/internal/logger"
	"sibyl/internal/scheduler"
	"sibyl/internal/store/runlog"
	"sibyl/internal/track"
	statushttp "sibyl/internal/transport/http/status"
)

// App 负责应用级编排：加载配置→初始化依赖→启动调度与状态服务。
type App struct {
	cfg *config.Config

	service   *agent.Service
	scheduler *scheduler.IntervalScheduler
	poller    *track.Poller
	httpSrv   *statushttp.Server
	runlog    *runlog.Store

	bootstrap *agent.Bootstrapper
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return build(cfg)
}

// Run blocks until the context is cancelled or a component fails. The
// scheduler and the status HTTP server run side by side; in-flight status
// polls get drained on the way out.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}

	if a.bootstrap != nil {
		if err := a.bootstrap.Ensure(ctx); err != nil {
			return err
		}
	}

	group, ctx := errgroup.WithContext(ctx)

	if a.httpSrv != nil {
		group.Go(func() error {
			if err := a.httpSrv.Start(ctx); err != nil {
				return fmt.Errorf("status http server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		a.scheduler.Start(ctx, func() { a.service.RunOnce(ctx) })
		return nil
	})

	err := group.Wait()
	a.poller.Wait()
	if a.runlog != nil {
		_ = a.runlog.Close()
	}
	return err
}

// Service exposes the pipeline service (for testing and replay harnesses).
func (a *App) Service() *agent.Service {
	if a == nil {
		return nil
	}
	return a.service
}
