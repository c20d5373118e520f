package config

import "strings"

// 默认值常量
const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppLogFormat      = "text"
	defaultAppHTTPAddr       = ":8501"
	defaultDatasetSource     = SourceCSV
	defaultDatasetCSV        = "my_data.csv"
	defaultDatasetSQLite     = "data/ytdash.db"
	defaultDashboardTitle    = "YouTube Analytics"
	defaultDashboardTheme    = "westeros"
	defaultChartWidth        = 640
	defaultChartHeight       = 420
	defaultSnapshotPerMinute = 6
	defaultSnapshotTimeout   = 20
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Dataset.applyDefaults(keys)
	c.Dashboard.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (d *DatasetConfig) applyDefaults(keys keySet) {
	if d == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("dataset.source", &d.Source, defaultDatasetSource),
		stringFieldDefault("dataset.csv_path", &d.CSVPath, defaultDatasetCSV),
		stringFieldDefault("dataset.sqlite_path", &d.SQLitePath, defaultDatasetSQLite),
	)
	d.Source = strings.ToLower(strings.TrimSpace(d.Source))
}

func (d *DashboardConfig) applyDefaults(keys keySet) {
	if d == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("dashboard.title", &d.Title, defaultDashboardTitle),
		stringFieldDefault("dashboard.theme", &d.Theme, defaultDashboardTheme),
		fieldDefault{
			key:   "dashboard.chart_width",
			need:  func() bool { return d.ChartWidth <= 0 },
			apply: func() { d.ChartWidth = defaultChartWidth },
		},
		fieldDefault{
			key:   "dashboard.chart_height",
			need:  func() bool { return d.ChartHeight <= 0 },
			apply: func() { d.ChartHeight = defaultChartHeight },
		},
		fieldDefault{
			key:   "dashboard.snapshot_per_minute",
			need:  func() bool { return d.SnapshotPerMinute <= 0 },
			apply: func() { d.SnapshotPerMinute = defaultSnapshotPerMinute },
		},
		fieldDefault{
			key:   "dashboard.snapshot_timeout_seconds",
			need:  func() bool { return d.SnapshotTimeout <= 0 },
			apply: func() { d.SnapshotTimeout = defaultSnapshotTimeout },
		},
	)
	if d.TrendWindow < 0 {
		d.TrendWindow = 0
	}
}

// Helper functions

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
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
