// Package dataset 持有频道统计数据的只读内存表，以及筛选、分组与均值查询。
package dataset

import (
	"time"

	"ytdash/internal/metric"
)

// ContentKind 区分常规视频与 Shorts。
type ContentKind int

const (
	KindVideo ContentKind = iota
	KindShort
)

func (k ContentKind) String() string {
	if k == KindShort {
		return "short"
	}
	return "video"
}

// Label 是图表标题使用的复数名称。
func (k ContentKind) Label() string {
	if k == KindShort {
		return "Shorts"
	}
	return "Videos"
}

func (k ContentKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Record 是 CSV 中的一行频道统计。
type Record struct {
	Channel    string    `json:"channel_name"`
	Year       int       `json:"year"`
	Published  time.Time `json:"published"`
	Short      bool      `json:"short"`
	Title      string    `json:"title"`
	Views      int64     `json:"view_count"`
	Likes      int64     `json:"like_count"`
	Comments   int64     `json:"comment_count"`
	Engagement float64   `json:"engagement"`
}

func (r Record) Kind() ContentKind {
	if r.Short {
		return KindShort
	}
	return KindVideo
}

// Value 返回指定指标的数值，非法指标返回 0。
func (r Record) Value(m metric.Metric) float64 {
	switch m {
	case metric.ViewCount:
		return float64(r.Views)
	case metric.LikeCount:
		return float64(r.Likes)
	case metric.CommentCount:
		return float64(r.Comments)
	case metric.Engagement:
		return r.Engagement
	default:
		return 0
	}
}
