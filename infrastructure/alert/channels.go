package alert

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// LogChannel 把告警写到标准日志。
type LogChannel struct {
	logger *log.Logger
	name   string
}

// NewLogChannel 创建日志告警通道
func NewLogChannel(name string, output *os.File) *LogChannel {
	if output == nil {
		output = os.Stdout
	}
	return &LogChannel{
		logger: log.New(output, "[ALERT] ", log.LstdFlags),
		name:   name,
	}
}

// Send 实现 Channel 接口
func (c *LogChannel) Send(a Alert) error {
	msg := fmt.Sprintf("[%s] %s", a.Level, a.Message)
	if a.OrderID != "" {
		msg += " order=" + a.OrderID
	}
	for k, v := range a.Fields {
		msg += fmt.Sprintf(" %s=%v", k, v)
	}
	c.logger.Println(msg)
	return nil
}

// Name 实现 Channel 接口
func (c *LogChannel) Name() string { return c.name }

// MockChannel 测试用通道，记录收到的告警。
type MockChannel struct {
	mu        sync.Mutex
	name      string
	alerts    []Alert
	shouldErr bool
}

// NewMockChannel 创建模拟通道
func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

// Send 实现 Channel 接口
func (c *MockChannel) Send(a Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shouldErr {
		return fmt.Errorf("mock error")
	}
	c.alerts = append(c.alerts, a)
	return nil
}

// Name 实现 Channel 接口
func (c *MockChannel) Name() string { return c.name }

// Alerts 返回收到的全部告警
func (c *MockChannel) Alerts() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Alert, len(c.alerts))
	copy(out, c.alerts)
	return out
}

// Count 返回收到的告警数量
func (c *MockChannel) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}

// SetShouldError 控制 Send 是否返回错误
func (c *MockChannel) SetShouldError(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldErr = v
}
