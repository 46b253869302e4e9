package alert

import (
	"fmt"
	"sync"
	"time"
)

// 告警级别
const (
	LevelInfo     = "INFO"
	LevelWarning  = "WARNING"
	LevelError    = "ERROR"
	LevelCritical = "CRITICAL"
)

// Alert 执行引擎的告警事件：风控拒绝、紧急停止、母单失败等。
type Alert struct {
	Level     string
	Message   string
	OrderID   string
	Timestamp time.Time
	Fields    map[string]interface{}
}

// Channel 告警通道接口
type Channel interface {
	Send(alert Alert) error
	Name() string
}

// Throttler 按 key 限流，避免同一母单的连环风控拒绝刷屏。
type Throttler struct {
	mu       sync.Mutex
	lastSent map[string]time.Time
	interval time.Duration
}

// NewThrottler 创建限流器
func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{
		lastSent: make(map[string]time.Time),
		interval: interval,
	}
}

// Allow 检查是否允许发送
func (t *Throttler) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if last, ok := t.lastSent[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.lastSent[key] = now
	return true
}

// Clear 清空限流记录
func (t *Throttler) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSent = make(map[string]time.Time)
}

// Manager 告警管理器，把事件扇出到所有通道。
type Manager struct {
	mu       sync.RWMutex
	channels []Channel
	throttle *Throttler
}

// NewManager 创建告警管理器
func NewManager(throttleInterval time.Duration, channels ...Channel) *Manager {
	return &Manager{
		channels: channels,
		throttle: NewThrottler(throttleInterval),
	}
}

// AddChannel 添加告警通道
func (m *Manager) AddChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
}

// Send 发送告警。限流以 级别+母单+消息 为粒度，同一母单的
// 重复事件在限流窗口内只发一次。
func (m *Manager) Send(a Alert) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	key := a.Level + ":" + a.OrderID + ":" + a.Message
	if !m.throttle.Allow(key) {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var lastErr error
	sent := 0
	for _, ch := range m.channels {
		if err := ch.Send(a); err != nil {
			lastErr = fmt.Errorf("channel %s: %w", ch.Name(), err)
		} else {
			sent++
		}
	}
	if sent == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

// RiskReject 风控拒绝切片
func (m *Manager) RiskReject(orderID, reason string) {
	_ = m.Send(Alert{
		Level:   LevelWarning,
		Message: "slice rejected by risk check",
		OrderID: orderID,
		Fields:  map[string]interface{}{"reason": reason},
	})
}

// OrderFailed 母单失败
func (m *Manager) OrderFailed(orderID, cause string) {
	_ = m.Send(Alert{
		Level:   LevelCritical,
		Message: "order failed",
		OrderID: orderID,
		Fields:  map[string]interface{}{"cause": cause},
	})
}
