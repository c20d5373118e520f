package config

import "strings"

// Config 是 ytdash 的主配置载体。
type Config struct {
	App       AppConfig       `toml:"app"`
	Dataset   DatasetConfig   `toml:"dataset"`
	Dashboard DashboardConfig `toml:"dashboard"`
}

type AppConfig struct {
	Env       string `toml:"env"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogPath   string `toml:"log_path"`
	HTTPAddr  string `toml:"http_addr"`
}

// 数据源类型。
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

// DatasetConfig 描述频道统计数据从哪里加载。
type DatasetConfig struct {
	Source     string `toml:"source"`      // "csv" | "sqlite"
	CSVPath    string `toml:"csv_path"`    // source=csv 时读取；ytdash-import 的默认输入
	SQLitePath string `toml:"sqlite_path"` // source=sqlite 时读取；ytdash-import 的输出
	Watch      bool   `toml:"watch"`       // 仅 csv：文件变化后自动重新加载
}

// UsesSQLite reports whether the server reads the table from the SQLite mirror.
func (d DatasetConfig) UsesSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(d.Source), SourceSQLite)
}

// DashboardConfig 控制页面与图表渲染。
type DashboardConfig struct {
	Title             string `toml:"title"`
	Theme             string `toml:"theme"`
	ChartWidth        int    `toml:"chart_width"`
	ChartHeight       int    `toml:"chart_height"`
	TrendWindow       int    `toml:"trend_window"` // >1 时叠加移动平均线
	AssetsHost        string `toml:"assets_host"`
	SnapshotEnabled   bool   `toml:"snapshot_enabled"`
	SnapshotPerMinute int    `toml:"snapshot_per_minute"`
	SnapshotTimeout   int    `toml:"snapshot_timeout_seconds"`
}

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

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
