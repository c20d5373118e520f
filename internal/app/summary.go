package app

import (
	"fmt"
	"strings"

	"ytdash/internal/config"
	"ytdash/internal/dataset"
)

type StartupSummary struct {
	Env      string
	Addr     string
	Dataset  DatasetSummary
	Charts   ChartSummary
	Snapshot bool
}

type DatasetSummary struct {
	Source   string
	Rows     int
	Channels []string
	MinYear  int
	MaxYear  int
	Watch    bool
}

type ChartSummary struct {
	Theme       string
	Width       int
	Height      int
	TrendWindow int
}

func buildSummary(cfg *config.Config, source string, table *dataset.Table) *StartupSummary {
	minYear, maxYear, _ := table.YearBounds()
	return &StartupSummary{
		Env:  cfg.App.Env,
		Addr: cfg.App.HTTPAddr,
		Dataset: DatasetSummary{
			Source:   source,
			Rows:     table.Len(),
			Channels: table.Channels(),
			MinYear:  minYear,
			MaxYear:  maxYear,
			Watch:    cfg.Dataset.Watch && !cfg.Dataset.UsesSQLite(),
		},
		Charts: ChartSummary{
			Theme:       cfg.Dashboard.Theme,
			Width:       cfg.Dashboard.ChartWidth,
			Height:      cfg.Dashboard.ChartHeight,
			TrendWindow: cfg.Dashboard.TrendWindow,
		},
		Snapshot: cfg.Dashboard.SnapshotEnabled,
	}
}

// String 渲染启动摘要文本。
func (s *StartupSummary) String() string {
	var b strings.Builder
	title := "启动配置摘要 (STARTUP SUMMARY)"
	fmt.Fprintln(&b, strings.Repeat("=", 80))
	fmt.Fprintf(&b, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(&b, strings.Repeat("=", 80))

	fmt.Fprintln(&b, "[服务 (SERVER)]")
	fmt.Fprintf(&b, "  环境: %s\n", orDash(s.Env))
	fmt.Fprintf(&b, "  监听: %s\n", orDash(s.Addr))
	fmt.Fprintf(&b, "  截图: %s\n", onOff(s.Snapshot))
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[数据集 (DATASET)]")
	fmt.Fprintf(&b, "  来源: %s\n", orDash(s.Dataset.Source))
	fmt.Fprintf(&b, "  行数: %d\n", s.Dataset.Rows)
	fmt.Fprintf(&b, "  频道: %s\n", formatList(s.Dataset.Channels))
	fmt.Fprintf(&b, "  年份: %d - %d\n", s.Dataset.MinYear, s.Dataset.MaxYear)
	fmt.Fprintf(&b, "  热加载: %s\n", onOff(s.Dataset.Watch))
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[图表 (CHARTS)]")
	fmt.Fprintf(&b, "  主题: %s\n", orDash(s.Charts.Theme))
	fmt.Fprintf(&b, "  尺寸: %dx%d\n", s.Charts.Width, s.Charts.Height)
	if s.Charts.TrendWindow > 1 {
		fmt.Fprintf(&b, "  趋势线: %d-post average\n", s.Charts.TrendWindow)
	} else {
		fmt.Fprintln(&b, "  趋势线: off")
	}
	fmt.Fprintln(&b, strings.Repeat("=", 80))
	return b.String()
}

func (s *StartupSummary) Print() {
	fmt.Print(s.String())
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
