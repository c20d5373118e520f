package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"ytdash/internal/chart"
	"ytdash/internal/config"
	"ytdash/internal/dataset"
	"ytdash/internal/dataset/loader"
	"ytdash/internal/logger"
	"ytdash/internal/store/sqlite"
	dashboardhttp "ytdash/internal/transport/http/dashboard"
)

type AppBuilder struct {
	cfg *config.Config

	sourceFn func(config.DatasetConfig) (dataset.Source, io.Closer, error)
	loaderFn func(context.Context, dataset.Source) (*loader.Loader, error)
	httpFn   func(*config.Config, dashboardhttp.TableProvider) (*dashboardhttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

// WithSource 替换数据源（测试用）。
func WithSource(src dataset.Source) AppBuilderOption {
	return func(b *AppBuilder) {
		b.sourceFn = func(config.DatasetConfig) (dataset.Source, io.Closer, error) {
			return src, nil, nil
		}
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:      cfg,
		sourceFn: buildSource,
		loaderFn: loader.New,
		httpFn:   buildDashboardHTTPServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	src, closer, err := b.sourceFn(cfg.Dataset)
	if err != nil {
		return nil, err
	}
	cleanup := func() {
		if closer != nil {
			_ = closer.Close()
		}
	}

	ld, err := b.loaderFn(ctx, src)
	if err != nil {
		cleanup()
		return nil, err
	}
	table := ld.Table()
	logger.Infof("✓ 数据集已加载: %d 行, %d 个频道 (%s)", table.Len(), len(table.Channels()), src.Name())

	server, err := b.httpFn(cfg, ld)
	if err != nil {
		cleanup()
		return nil, err
	}
	ld.Subscribe(func(loader.Snapshot) { server.Metrics().ObserveReload(nil) })
	ld.OnReloadError(func(err error) { server.Metrics().ObserveReload(err) })

	watchPath := ""
	if cfg.Dataset.Watch && !cfg.Dataset.UsesSQLite() {
		watchPath = cfg.Dataset.CSVPath
	}
	return &App{
		cfg:       cfg,
		loader:    ld,
		http:      server,
		closer:    closer,
		watchPath: watchPath,
		Summary:   buildSummary(cfg, src.Name(), table),
	}, nil
}

// buildSource 根据 dataset.source 选择 CSV 文件或 SQLite 镜像。
func buildSource(cfg config.DatasetConfig) (dataset.Source, io.Closer, error) {
	if !cfg.UsesSQLite() {
		return dataset.CSVSource{Path: cfg.CSVPath}, nil, nil
	}
	st, err := sqlite.NewSqliteStore(cfg.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite store failed: %w", err)
	}
	return sqlite.DatasetSource{Store: st, Path: cfg.SQLitePath}, st, nil
}

func chartOptions(cfg config.DashboardConfig) chart.Options {
	return chart.Options{
		Width:       cfg.ChartWidth,
		Height:      cfg.ChartHeight,
		Theme:       cfg.Theme,
		AssetsHost:  cfg.AssetsHost,
		TrendWindow: cfg.TrendWindow,
	}
}

func buildDashboardHTTPServer(cfg *config.Config, tables dashboardhttp.TableProvider) (*dashboardhttp.Server, error) {
	dash := cfg.Dashboard
	timeout := time.Duration(dash.SnapshotTimeout) * time.Second
	serverCfg := dashboardhttp.ServerConfig{
		Addr:              cfg.App.HTTPAddr,
		Title:             dash.Title,
		Tables:            tables,
		Chart:             chartOptions(dash),
		SnapshotPerMinute: dash.SnapshotPerMinute,
		SnapshotTimeout:   timeout,
	}
	if dash.SnapshotEnabled {
		// 两张图并排，额外留出边距。
		serverCfg.Snapshot = chart.NewSnapshotter(dash.ChartWidth*2+64, dash.ChartHeight+96, timeout)
	}
	return dashboardhttp.NewServer(serverCfg)
}
