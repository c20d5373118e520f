package app

import (
	"context"
	"fmt"
	"io"

	"ytdash/internal/config"
	"ytdash/internal/dataset/loader"
	"ytdash/internal/logger"
	dashboardhttp "ytdash/internal/transport/http/dashboard"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→加载数据集→启动 HTTP 与文件监听。
type App struct {
	cfg       *config.Config
	loader    *loader.Loader
	http      *dashboardhttp.Server
	closer    io.Closer
	watchPath string
	Summary   *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动 HTTP 服务；开启 watch 时同时监听 CSV 变化。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.http == nil {
		return fmt.Errorf("http server not initialized")
	}
	defer a.Close()

	if a.Summary != nil {
		a.Summary.Print()
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("dashboard http server error: %w", err)
		}
		return nil
	})
	if a.watchPath != "" {
		group.Go(func() error {
			return a.loader.Watch(ctx, a.watchPath)
		})
	}
	return group.Wait()
}

// Close 释放数据源持有的资源（SQLite 连接）。
func (a *App) Close() error {
	if a == nil || a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// Loader exposes the dataset loader (for tests and embedding).
func (a *App) Loader() *loader.Loader {
	if a == nil {
		return nil
	}
	return a.loader
}

// Server exposes the dashboard HTTP server.
func (a *App) Server() *dashboardhttp.Server {
	if a == nil {
		return nil
	}
	return a.http
}
