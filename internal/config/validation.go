package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Dataset.validate(); err != nil {
		return err
	}
	if err := c.Dashboard.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogFormat)) {
	case "", "text", "json":
	default:
		return fmt.Errorf("app.log_format must be text or json, got %q", a.LogFormat)
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	return nil
}

func (d *DatasetConfig) validate() error {
	switch d.Source {
	case SourceCSV:
		if strings.TrimSpace(d.CSVPath) == "" {
			return fmt.Errorf("dataset.csv_path cannot be empty when source=csv")
		}
	case SourceSQLite:
		if strings.TrimSpace(d.SQLitePath) == "" {
			return fmt.Errorf("dataset.sqlite_path cannot be empty when source=sqlite")
		}
		if d.Watch {
			return fmt.Errorf("dataset.watch only supports source=csv")
		}
	default:
		return fmt.Errorf("dataset.source must be csv or sqlite, got %q", d.Source)
	}
	return nil
}

func (d *DashboardConfig) validate() error {
	if d.ChartWidth <= 0 || d.ChartHeight <= 0 {
		return fmt.Errorf("dashboard chart size must be positive (got %dx%d)", d.ChartWidth, d.ChartHeight)
	}
	if d.TrendWindow == 1 {
		return fmt.Errorf("dashboard.trend_window must be 0 (off) or >= 2")
	}
	return nil
}
