package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig 热更新配置
type WatcherConfig struct {
	Enabled      bool          // 是否启用热更新
	CooldownTime time.Duration // 冷却时间，避免编辑器多次写入触发连环重载
}

// DefaultWatcherConfig 默认热更新配置
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		Enabled:      true,
		CooldownTime: 2 * time.Second,
	}
}

// Watcher 监听配置文件变化，成功解析并通过校验后回调新配置。
// 解析失败的写入只记录不生效，运行中的配置保持不变。
type Watcher struct {
	cfg     WatcherConfig
	path    string
	watcher *fsnotify.Watcher

	mu         sync.Mutex
	lastReload time.Time

	onUpdate func(AppConfig)
	onError  func(error)

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewWatcher 创建配置监听器
func NewWatcher(path string, cfg WatcherConfig, onUpdate func(AppConfig), onError func(error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		cfg:      cfg,
		path:     path,
		watcher:  fw,
		onUpdate: onUpdate,
		onError:  onError,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}, nil
}

// Start 启动监听
func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.Enabled {
		close(w.doneChan)
		return nil
	}
	if err := w.watcher.Add(w.path); err != nil {
		return fmt.Errorf("watch config file: %w", err)
	}
	go w.watch(ctx)
	return nil
}

// Stop 停止监听
func (w *Watcher) Stop() error {
	select {
	case <-w.stopChan:
	default:
		close(w.stopChan)
	}

	select {
	case <-w.doneChan:
	case <-time.After(time.Second):
	}
	return w.watcher.Close()
}

// LastReloadTime 获取最后一次成功重载的时间
func (w *Watcher) LastReloadTime() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastReload
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneChan)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				w.handleChange()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

func (w *Watcher) handleChange() {
	w.mu.Lock()
	if time.Since(w.lastReload) < w.cfg.CooldownTime {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	cfg, err := Load(w.path)
	if err != nil {
		w.reportError(fmt.Errorf("reload rejected: %w", err))
		return
	}

	w.mu.Lock()
	w.lastReload = time.Now()
	w.mu.Unlock()

	if w.onUpdate != nil {
		w.onUpdate(cfg)
	}
}

func (w *Watcher) reportError(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}
