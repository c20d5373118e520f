package dashboardhttp

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"ytdash/internal/chart"
	"ytdash/internal/dataset"
	"ytdash/internal/logger"
	webassets "ytdash/internal/transport/web"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const (
	defaultAddr       = ":8501"
	requestIDHeader   = "X-Request-ID"
	requestIDKey      = "request_id"
	defaultPerMinute  = 6
	shutdownGraceTime = 5 * time.Second
)

// TableProvider 返回当前生效的数据表快照，热加载后会返回新表。
type TableProvider interface {
	Table() *dataset.Table
}

// SnapshotRenderer 把图表页面截图为 PNG。
type SnapshotRenderer interface {
	PNG(ctx context.Context, html []byte) ([]byte, error)
}

// Server 提供仪表盘页面、图表与 JSON 接口。
type Server struct {
	addr    string
	router  *gin.Engine
	metrics *Metrics
}

// ServerConfig 描述仪表盘 HTTP 服务依赖。
type ServerConfig struct {
	Addr   string
	Title  string
	Tables TableProvider
	Chart  chart.Options

	// Snapshot 为 nil 时 /api/snapshot.png 返回 404。
	Snapshot          SnapshotRenderer
	SnapshotPerMinute int
	SnapshotTimeout   time.Duration

	// Registry 为空时使用独立的新 registry，避免测试间重复注册。
	Registry *prometheus.Registry
}

// NewServer 构建仪表盘 HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Tables == nil {
		return nil, errors.New("dashboard http server requires a table provider")
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.SnapshotPerMinute <= 0 {
		cfg.SnapshotPerMinute = defaultPerMinute
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	metrics := NewMetrics(cfg.Registry, cfg.Tables)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(), metrics.Middleware())

	if err := loadTemplates(router); err != nil {
		return nil, err
	}
	if err := serveStatic(router); err != nil {
		return nil, err
	}

	h := &handler{
		title:    cfg.Title,
		tables:   cfg.Tables,
		chart:    cfg.Chart,
		snapshot: cfg.Snapshot,
		timeout:  cfg.SnapshotTimeout,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.SnapshotPerMinute)), cfg.SnapshotPerMinute),
		metrics:  metrics,
	}
	h.register(router)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return &Server{addr: cfg.Addr, router: router, metrics: metrics}, nil
}

func loadTemplates(router *gin.Engine) error {
	tmpl, err := template.New("dashboard").ParseFS(webassets.Templates, "templates/*.html")
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)
	return nil
}

func serveStatic(router *gin.Engine) error {
	sub, err := fs.Sub(webassets.Static, "static")
	if err != nil {
		return err
	}
	router.StaticFS("/static", http.FS(sub))
	return nil
}

// requestID 透传或生成请求 ID，并写回响应头。
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger 以 debug 级别记录每个请求。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s id=%s", method, fullPath, status, client, dur, c.GetString(requestIDKey))
	}
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler 暴露路由，便于测试与嵌入。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics 返回服务的 Prometheus 指标。
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("✓ Dashboard listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownGraceTime)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
