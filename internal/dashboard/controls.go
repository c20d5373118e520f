// Package dashboard 把选择条件映射为图表数据与格式化均值，不做任何 IO。
package dashboard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ytdash/internal/dataset"
	"ytdash/internal/metric"
)

var (
	ErrUnknownChannel = errors.New("unknown channel")
	ErrYearOutOfRange = errors.New("year out of range")
	ErrInvalidYear    = errors.New("invalid year")
)

// Selection 是侧边栏三个控件的取值。
type Selection struct {
	Channel string        `json:"channel"`
	Metric  metric.Metric `json:"metric"`
	Year    int           `json:"year"`
}

func (s Selection) Query() dataset.Query {
	return dataset.Query{Channel: s.Channel, Year: s.Year}
}

// MetricOption 是指标选择器的一项。
type MetricOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Controls 描述控件的可选范围与默认值。
type Controls struct {
	Channels       []string       `json:"channels"`
	DefaultChannel string         `json:"default_channel"`
	Metrics        []MetricOption `json:"metrics"`
	DefaultMetric  metric.Metric  `json:"default_metric"`
	MinYear        int            `json:"min_year"`
	MaxYear        int            `json:"max_year"`
	DefaultYear    int            `json:"default_year"`
}

// NewControls 根据数据表生成控件：频道按首次出现顺序，默认第一个；年份默认最大值。
func NewControls(t *dataset.Table) (Controls, error) {
	minYear, maxYear, ok := t.YearBounds()
	if !ok {
		return Controls{}, dataset.ErrEmptyDataset
	}
	channels := t.Channels()
	metrics := make([]MetricOption, 0, len(metric.All()))
	for _, m := range metric.All() {
		metrics = append(metrics, MetricOption{ID: m.ID(), Label: m.Label()})
	}
	return Controls{
		Channels:       channels,
		DefaultChannel: channels[0],
		Metrics:        metrics,
		DefaultMetric:  metric.Default,
		MinYear:        minYear,
		MaxYear:        maxYear,
		DefaultYear:    maxYear,
	}, nil
}

// Default 返回页面首次打开时的选择。
func (c Controls) Default() Selection {
	return Selection{Channel: c.DefaultChannel, Metric: c.DefaultMetric, Year: c.DefaultYear}
}

// Validate 检查选择是否落在控件范围内。
func (c Controls) Validate(sel Selection) error {
	if !containsString(c.Channels, sel.Channel) {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, sel.Channel)
	}
	if !sel.Metric.Valid() {
		return fmt.Errorf("%w: %d", metric.ErrUnknownMetric, int(sel.Metric))
	}
	if sel.Year < c.MinYear || sel.Year > c.MaxYear {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrYearOutOfRange, sel.Year, c.MinYear, c.MaxYear)
	}
	return nil
}

// ParseSelection 解析查询参数，空值取默认，随后校验。
func (c Controls) ParseSelection(channel, metricID, year string) (Selection, error) {
	sel := c.Default()
	if v := strings.TrimSpace(channel); v != "" {
		sel.Channel = v
	}
	if v := strings.TrimSpace(metricID); v != "" {
		m, err := metric.Parse(v)
		if err != nil {
			return Selection{}, err
		}
		sel.Metric = m
	}
	if v := strings.TrimSpace(year); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return Selection{}, fmt.Errorf("%w: %q", ErrInvalidYear, v)
		}
		sel.Year = y
	}
	if err := c.Validate(sel); err != nil {
		return Selection{}, err
	}
	return sel, nil
}

// ParseSelection 基于数据表当前的控件范围解析一次请求的选择。
func ParseSelection(t *dataset.Table, channel, metricID, year string) (Selection, error) {
	controls, err := NewControls(t)
	if err != nil {
		return Selection{}, err
	}
	return controls.ParseSelection(channel, metricID, year)
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
