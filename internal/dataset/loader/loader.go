package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"ytdash/internal/dataset"
	"ytdash/internal/logger"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 300 * time.Millisecond

// Snapshot 对外暴露的只读数据表快照。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Table    *dataset.Table
}

// ChangeListener 在数据表替换后被调用。
type ChangeListener func(Snapshot)

// Loader 持有当前数据表，并可监听 CSV 文件变化整体替换。
type Loader struct {
	src      dataset.Source
	debounce time.Duration

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
	onError   func(error)
}

// New 立即从 src 加载一次；加载失败直接返回错误。
func New(ctx context.Context, src dataset.Source) (*Loader, error) {
	if src == nil {
		return nil, fmt.Errorf("dataset loader requires source")
	}
	l := &Loader{src: src, debounce: defaultDebounce}
	if err := l.Reload(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Table 返回当前数据表。
func (l *Loader) Table() *dataset.Table {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot.Table
}

func (l *Loader) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot
}

// Subscribe 注册监听器，仅在后续 reload 成功时回调。
func (l *Loader) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

// OnReloadError 注册 Watch 中 reload 失败时的回调。
func (l *Loader) OnReloadError(fn func(error)) {
	l.mu.Lock()
	l.onError = fn
	l.mu.Unlock()
}

// Reload 重新加载数据源；失败时保留旧快照。
func (l *Loader) Reload(ctx context.Context) error {
	table, err := l.src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dataset failed (%s): %w", l.src.Name(), err)
	}
	l.mu.Lock()
	l.snapshot = Snapshot{
		Version:  l.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Table:    table,
	}
	snap := l.snapshot
	listeners := append([]ChangeListener(nil), l.listeners...)
	l.mu.Unlock()
	logger.Infof("dataset loaded v%d: %d rows, %d channels from %s", snap.Version, table.Len(), len(table.Channels()), l.src.Name())
	for _, fn := range listeners {
		notify(fn, snap)
	}
	return nil
}

func notify(fn ChangeListener, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("dataset listener panic: %v", r)
		}
	}()
	fn(snap)
}

// Watch 监听 path 所在目录，文件变化后去抖并重新加载，直到 ctx 取消。
func (l *Loader) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create dataset watcher failed: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	// 监听目录而非文件本身，编辑器常以 rename 方式保存。
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch dataset dir failed: %w", err)
	}
	logger.Infof("watching dataset %s for changes", target)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != target {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(l.debounce)
			} else {
				timer.Reset(l.debounce)
			}
			pending = timer.C
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("dataset watcher error: %v", werr)
		case <-pending:
			pending = nil
			if err := l.Reload(ctx); err != nil {
				logger.Errorf("dataset reload failed, keeping v%d: %v", l.Snapshot().Version, err)
				l.mu.RLock()
				onError := l.onError
				l.mu.RUnlock()
				if onError != nil {
					onError(err)
				}
			}
		}
	}
}
