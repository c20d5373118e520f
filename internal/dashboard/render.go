package dashboard

import (
	"fmt"

	"ytdash/internal/dataset"
	"ytdash/internal/metric"
)

// Panel 是一张折线图及其下方的均值文字。
type Panel struct {
	Kind        dataset.ContentKind `json:"kind"`
	Title       string              `json:"title"`
	Points      []dataset.Point     `json:"points"`
	Average     dataset.Average     `json:"average"`
	AverageText string              `json:"average_text"`
}

// Empty reports whether the panel has no points to plot.
func (p Panel) Empty() bool {
	return len(p.Points) == 0
}

// View 是一次渲染的完整结果。
type View struct {
	Selection Selection `json:"selection"`
	Label     string    `json:"label"`
	Videos    Panel     `json:"videos"`
	Shorts    Panel     `json:"shorts"`
	Controls  Controls  `json:"controls"`
}

// Panel 按内容类型取对应面板。
func (v View) Panel(kind dataset.ContentKind) Panel {
	if kind == dataset.KindShort {
		return v.Shorts
	}
	return v.Videos
}

// Render 是仪表盘的纯函数入口：每次控件变化都以相同输入得到相同输出。
func Render(t *dataset.Table, sel Selection) (View, error) {
	controls, err := NewControls(t)
	if err != nil {
		return View{}, err
	}
	if err := controls.Validate(sel); err != nil {
		return View{}, err
	}
	videos, shorts := t.Filter(sel.Query()).Partition()
	return View{
		Selection: sel,
		Label:     sel.Metric.Label(),
		Videos:    buildPanel(dataset.KindVideo, videos, sel),
		Shorts:    buildPanel(dataset.KindShort, shorts, sel),
		Controls:  controls,
	}, nil
}

func buildPanel(kind dataset.ContentKind, subset dataset.Subset, sel Selection) Panel {
	avg := subset.Average(sel.Metric)
	return Panel{
		Kind:        kind,
		Title:       fmt.Sprintf("%s over time (%s)", sel.Metric.Label(), kind.Label()),
		Points:      subset.Series(sel.Metric),
		Average:     avg,
		AverageText: AverageText(sel.Metric, avg),
	}
}

// AverageText 生成图表下方的文字，例如 "Average Views: 1.5M"。
func AverageText(m metric.Metric, avg dataset.Average) string {
	return fmt.Sprintf("Average %s: %s", m.Label(), avg.Format(m))
}
