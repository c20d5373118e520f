// Package metric 定义仪表盘可选的四个指标及其展示格式。
package metric

import (
	"errors"
	"fmt"
	"strings"
)

// Metric 是封闭的指标枚举，零值不是合法指标。
type Metric int

const (
	ViewCount Metric = iota + 1
	LikeCount
	CommentCount
	Engagement
)

// Default 是指标选择器的缺省值。
const Default = ViewCount

var ErrUnknownMetric = errors.New("unknown metric")

type descriptor struct {
	id    string
	label string
	rate  bool
}

var descriptors = map[Metric]descriptor{
	ViewCount:    {id: "view_count", label: "Views"},
	LikeCount:    {id: "like_count", label: "Likes"},
	CommentCount: {id: "comment_count", label: "Comments"},
	Engagement:   {id: "engagement", label: "Engagement Rate", rate: true},
}

// All 按选择器顺序返回全部指标。
func All() []Metric {
	return []Metric{ViewCount, LikeCount, CommentCount, Engagement}
}

// Parse 将 CSV 列名/查询参数解析为指标。
func Parse(id string) (Metric, error) {
	key := strings.ToLower(strings.TrimSpace(id))
	for _, m := range All() {
		if descriptors[m].id == key {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, id)
}

func (m Metric) Valid() bool {
	_, ok := descriptors[m]
	return ok
}

// ID 返回指标标识（即 CSV 列名）。
func (m Metric) ID() string {
	if d, ok := descriptors[m]; ok {
		return d.id
	}
	return ""
}

// Label 返回面向用户的名称。
func (m Metric) Label() string {
	if d, ok := descriptors[m]; ok {
		return d.label
	}
	return ""
}

// IsRate reports whether the metric is a fraction rendered as a percentage.
func (m Metric) IsRate() bool {
	return descriptors[m].rate
}

func (m Metric) String() string {
	if id := m.ID(); id != "" {
		return id
	}
	return fmt.Sprintf("metric(%d)", int(m))
}

func (m Metric) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMetric, int(m))
	}
	return []byte(m.ID()), nil
}

func (m *Metric) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
