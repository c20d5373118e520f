package dashboardhttp

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"ytdash/internal/chart"
	"ytdash/internal/dashboard"
	"ytdash/internal/dataset"
	"ytdash/internal/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

var errNoDataset = errors.New("dataset not loaded")

type handler struct {
	title    string
	tables   TableProvider
	chart    chart.Options
	snapshot SnapshotRenderer
	timeout  time.Duration
	limiter  *rate.Limiter
	metrics  *Metrics
}

func (h *handler) register(router *gin.Engine) {
	router.GET("/", h.handlePage)
	router.GET("/charts/:kind", h.handleChart)
	router.GET("/healthz", h.handleHealth)

	api := router.Group("/api")
	api.GET("/dashboard", h.handleDashboard)
	api.GET("/controls", h.handleControls)
	api.GET("/snapshot.png", h.handleSnapshot)
}

// pagePanel 是模板中一张图表 iframe 的数据。
type pagePanel struct {
	Kind        string
	Title       string
	AverageText string
}

type pageData struct {
	Title       string
	Source      string
	LoadedAt    string
	Notice      string
	Query       template.URL
	Width       int
	FrameHeight int
	View        dashboard.View
	Controls    dashboard.Controls
	Panels      []pagePanel
}

// handlePage 渲染整页；非法选择回退到默认值并给出提示。
func (h *handler) handlePage(c *gin.Context) {
	table := h.tables.Table()
	if table == nil {
		c.String(http.StatusServiceUnavailable, errNoDataset.Error())
		return
	}
	controls, err := dashboard.NewControls(table)
	if err != nil {
		c.String(http.StatusServiceUnavailable, err.Error())
		return
	}
	notice := ""
	sel, err := controls.ParseSelection(c.Query("channel"), c.Query("metric"), c.Query("year"))
	if err != nil {
		notice = "Invalid selection (" + err.Error() + "), showing defaults."
		sel = controls.Default()
	}
	view, err := h.render(table, sel)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	panels := make([]pagePanel, 0, 2)
	for _, p := range []dashboard.Panel{view.Videos, view.Shorts} {
		panels = append(panels, pagePanel{Kind: chartPath(p.Kind), Title: p.Title, AverageText: p.AverageText})
	}
	c.HTML(http.StatusOK, "index.html", pageData{
		Title:       h.title,
		Source:      table.Source(),
		LoadedAt:    table.LoadedAt().Format(time.RFC3339),
		Notice:      notice,
		Query:       template.URL(selectionQuery(sel)),
		Width:       h.chart.Width,
		FrameHeight: h.chart.Height + 20,
		View:        view,
		Controls:    controls,
		Panels:      panels,
	})
}

func (h *handler) handleChart(c *gin.Context) {
	kind, ok := parseChartKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown chart " + strconv.Quote(c.Param("kind"))})
		return
	}
	view, ok := h.viewFromQuery(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := chart.RenderPanel(&buf, view, kind, h.chart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *handler) handleDashboard(c *gin.Context) {
	view, ok := h.viewFromQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handler) handleControls(c *gin.Context) {
	table := h.tables.Table()
	if table == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errNoDataset.Error()})
		return
	}
	controls, err := dashboard.NewControls(table)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, controls)
}

func (h *handler) handleSnapshot(c *gin.Context) {
	if h.snapshot == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot disabled"})
		return
	}
	if !h.limiter.Allow() {
		h.metrics.SnapshotsTotal.WithLabelValues("throttled").Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "snapshot rate limit exceeded"})
		return
	}
	view, ok := h.viewFromQuery(c)
	if !ok {
		return
	}
	page, err := chart.RenderPage(view, h.chart)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	png, err := h.snapshot.PNG(ctx, page)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chart.ErrSnapshotUnavailable) {
			status = http.StatusServiceUnavailable
		}
		h.metrics.SnapshotsTotal.WithLabelValues("error").Inc()
		logger.Warnf("snapshot failed: %v", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	h.metrics.SnapshotsTotal.WithLabelValues("ok").Inc()
	c.Data(http.StatusOK, "image/png", png)
}

func (h *handler) handleHealth(c *gin.Context) {
	table := h.tables.Table()
	if table == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"rows":      table.Len(),
		"source":    table.Source(),
		"loaded_at": table.LoadedAt().Format(time.RFC3339),
	})
}

// viewFromQuery 解析查询参数并渲染；失败时已写出 400 响应。
func (h *handler) viewFromQuery(c *gin.Context) (dashboard.View, bool) {
	table := h.tables.Table()
	if table == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errNoDataset.Error()})
		return dashboard.View{}, false
	}
	sel, err := dashboard.ParseSelection(table, c.Query("channel"), c.Query("metric"), c.Query("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return dashboard.View{}, false
	}
	view, err := h.render(table, sel)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return dashboard.View{}, false
	}
	return view, true
}

func (h *handler) render(table *dataset.Table, sel dashboard.Selection) (dashboard.View, error) {
	start := time.Now()
	view, err := dashboard.Render(table, sel)
	h.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	return view, err
}

func selectionQuery(sel dashboard.Selection) string {
	v := url.Values{}
	v.Set("channel", sel.Channel)
	v.Set("metric", sel.Metric.ID())
	v.Set("year", strconv.Itoa(sel.Year))
	return v.Encode()
}

func chartPath(kind dataset.ContentKind) string {
	if kind == dataset.KindShort {
		return "shorts"
	}
	return "videos"
}

func parseChartKind(raw string) (dataset.ContentKind, bool) {
	switch raw {
	case "videos", "video":
		return dataset.KindVideo, true
	case "shorts", "short":
		return dataset.KindShort, true
	default:
		return dataset.KindVideo, false
	}
}
