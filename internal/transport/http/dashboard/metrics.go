package dashboardhttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the dashboard server.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	RenderDuration   prometheus.Histogram
	ReloadsTotal     *prometheus.CounterVec
	SnapshotsTotal   *prometheus.CounterVec
	DatasetRows      prometheus.GaugeFunc
}

// NewMetrics registers all collectors on reg.
func NewMetrics(reg *prometheus.Registry, tables TableProvider) *Metrics {
	m := &Metrics{registry: reg}
	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytdash_http_requests_total",
			Help: "Total HTTP requests, by route, method and status.",
		},
		[]string{"route", "method", "status"},
	)
	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ytdash_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by route and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	m.RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ytdash_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)
	m.RenderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ytdash_render_duration_seconds",
			Help:    "Duration of dashboard renders.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		},
	)
	m.ReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytdash_dataset_reloads_total",
			Help: "Dataset reload attempts, by result.",
		},
		[]string{"result"},
	)
	m.SnapshotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytdash_snapshots_total",
			Help: "PNG snapshot requests, by result.",
		},
		[]string{"result"},
	)
	m.DatasetRows = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ytdash_dataset_rows",
			Help: "Number of rows in the active dataset snapshot.",
		},
		func() float64 {
			if tables == nil || tables.Table() == nil {
				return 0
			}
			return float64(tables.Table().Len())
		},
	)
	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.RenderDuration,
		m.ReloadsTotal,
		m.SnapshotsTotal,
		m.DatasetRows,
	)
	return m
}

// ObserveReload records the outcome of a dataset reload.
func (m *Metrics) ObserveReload(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ReloadsTotal.WithLabelValues(result).Inc()
}

// Middleware records request counts and durations. Routes are labelled by
// their registered pattern so path parameters do not explode cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.RequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
		m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
