// Package chart 使用 go-echarts 将仪表盘面板渲染为 HTML 折线图。
package chart

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"ytdash/internal/dashboard"
	"ytdash/internal/dataset"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	talib "github.com/markcheno/go-talib"
)

const (
	colorVideo     = "#ef4444"
	colorShort     = "#3b82f6"
	colorTrend     = "#fbbf24"
	colorTextMuted = "#9ca3af"

	dateLayout = "2006-01-02"
)

// Options 控制图表尺寸、主题与趋势线。
type Options struct {
	Width       int
	Height      int
	Theme       string
	AssetsHost  string
	TrendWindow int
}

func (o Options) initialization(title string) opts.Initialization {
	init := opts.Initialization{
		PageTitle: title,
		Theme:     o.Theme,
		Width:     fmt.Sprintf("%dpx", o.Width),
		Height:    fmt.Sprintf("%dpx", o.Height),
	}
	if o.AssetsHost != "" {
		init.AssetsHost = o.AssetsHost
	}
	return init
}

// NewPanelChart 构建单个面板的折线图：横轴为发布日期，悬停显示视频标题。
func NewPanelChart(view dashboard.View, kind dataset.ContentKind, o Options) *charts.Line {
	panel := view.Panel(kind)
	subtitle := panel.AverageText
	if panel.Empty() {
		subtitle = fmt.Sprintf("No %s for %s in %d", kind.Label(), view.Selection.Channel, view.Selection.Year)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.initialization(panel.Title)),
		charts.WithTitleOpts(opts.Title{
			Title:         panel.Title,
			Subtitle:      subtitle,
			SubtitleStyle: &opts.TextStyle{Color: colorTextMuted},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(o.TrendWindow > 1), Bottom: "0"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "category",
			Name: "Published",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:  view.Label,
			Scale: opts.Bool(true),
		}),
	)

	color := colorVideo
	if kind == dataset.KindShort {
		color = colorShort
	}
	values := make([]float64, len(panel.Points))
	for i, p := range panel.Points {
		values[i] = p.Value
	}
	line.SetXAxis(xAxis(panel.Points))
	line.AddSeries(view.Label, seriesData(panel.Points),
		charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: 2}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
	)
	if trend := Trend(values, o.TrendWindow); trend != nil {
		line.AddSeries(fmt.Sprintf("%d-post average", o.TrendWindow), toLineData(trend),
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorTrend, Width: 2, Type: "dashed"}),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)
	}
	return line
}

// RenderPanel 输出单个面板的完整 HTML 页面。
func RenderPanel(w io.Writer, view dashboard.View, kind dataset.ContentKind, o Options) error {
	return NewPanelChart(view, kind, o).Render(w)
}

// RenderPage 将视频与 Shorts 两张图并排渲染到同一页面（用于截图）。
func RenderPage(view dashboard.View, o Options) ([]byte, error) {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.PageTitle = fmt.Sprintf("%s %d %s", view.Selection.Channel, view.Selection.Year, view.Label)
	page.AddCharts(
		NewPanelChart(view, dataset.KindVideo, o),
		NewPanelChart(view, dataset.KindShort, o),
	)
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Trend 计算简单移动平均；窗口不足或关闭时返回 nil，前 window-1 个点为 NaN。
func Trend(values []float64, window int) []float64 {
	if window < 2 || len(values) < window {
		return nil
	}
	sma := talib.Sma(values, window)
	out := make([]float64, len(values))
	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sma[i]
	}
	return out
}

func xAxis(points []dataset.Point) []string {
	x := make([]string, len(points))
	for i, p := range points {
		x[i] = p.Published.UTC().Format(dateLayout)
	}
	return x
}

func seriesData(points []dataset.Point) []opts.LineData {
	data := make([]opts.LineData, len(points))
	for i, p := range points {
		data[i] = opts.LineData{Name: p.Title, Value: p.Value}
	}
	return data
}

func toLineData(series []float64) []opts.LineData {
	line := make([]opts.LineData, len(series))
	for i, v := range series {
		if math.IsNaN(v) {
			line[i] = opts.LineData{Value: nil}
			continue
		}
		line[i] = opts.LineData{Value: round(v, 4)}
	}
	return line
}

func round(val float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}
