package engine

import "time"

// Clock 抽象时间来源，测试里替换成可控时钟压缩执行窗口。
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// NewRealClock 返回真实时钟。
func NewRealClock() Clock { return realClock{} }
