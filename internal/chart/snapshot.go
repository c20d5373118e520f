package chart

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

var ErrSnapshotUnavailable = errors.New("headless browser unavailable")

// Snapshotter 通过 headless Chrome 将图表 HTML 截图为 PNG。
type Snapshotter struct {
	Timeout time.Duration
	Width   int
	Height  int

	probe    func(context.Context) error
	mu       sync.Mutex
	probed   bool
	probeErr error
}

const defaultSnapshotTimeout = 20 * time.Second

func NewSnapshotter(width, height int, timeout time.Duration) *Snapshotter {
	if timeout <= 0 {
		timeout = defaultSnapshotTimeout
	}
	return &Snapshotter{Timeout: timeout, Width: width, Height: height, probe: probeChrome}
}

func probeChrome(ctx context.Context) error {
	browserCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	return chromedp.Run(browserCtx)
}

// Available 首次调用时探测 Chrome 是否可用，结果会被缓存。
// 探测与请求的取消解耦；超时或取消类错误不缓存，下次重新探测。
func (s *Snapshotter) Available(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.probed {
		return s.probeErr
	}
	probe := s.probe
	if probe == nil {
		probe = probeChrome
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultSnapshotTimeout
	}
	probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	err := probe(probeCtx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrSnapshotUnavailable, err)
	}
	s.probed = true
	if err != nil {
		s.probeErr = errors.Join(ErrSnapshotUnavailable, err)
	}
	return s.probeErr
}

// PNG 渲染 html 并返回整页截图。
func (s *Snapshotter) PNG(ctx context.Context, html []byte) ([]byte, error) {
	if err := s.Available(ctx); err != nil {
		return nil, err
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, s.Timeout)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(s.Width), int64(s.Height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// echarts 初始化带动画，稍等再截图。
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 100),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}
