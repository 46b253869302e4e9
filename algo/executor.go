package algo

import (
	"math"
	"time"

	"algo-engine-go/market"
	"algo-engine-go/order"
)

// Context 单次切片决策的输入。调度循环在每次唤醒时组装，
// 执行器只读不写。
type Context struct {
	Snapshot   market.Snapshot
	Conditions market.Conditions

	Executed  float64
	Remaining float64

	Elapsed        time.Duration // 自窗口开始的已用时间
	Horizon        time.Duration // 整个执行窗口长度
	Interval       int           // 当前切片序号（0 起）
	TotalIntervals int

	ArrivalPrice   float64
	BenchmarkPrice float64

	RiskViolations int // 本单累计的风控拒绝次数
}

// Decision 执行器的切片决策。Quantity 为 0 表示本次不下单，
// 只等待 Wait 后再评估。
type Decision struct {
	Quantity   float64
	LimitPrice float64
	Wait       time.Duration
}

// Executor 把母单的剩余数量切成下一笔子单。
// 实现可以持有自己的状态（如 POV 的成交量基线），但只被
// 所属母单的调度 goroutine 调用，无需加锁。
type Executor interface {
	Name() Type
	NextSlice(ord order.View, ec Context) (Decision, error)
}

// adjustForConditions 按市场状态缩放切片数量：高波动或薄流动性
// 收缩，低波动且深流动性放大。结果不小于 1、不超过剩余量。
func adjustForConditions(qty, remaining float64, c market.Conditions) float64 {
	factor := 1.0
	switch c.Volatility {
	case market.VolHigh:
		factor *= 0.7
	case market.VolLow:
		factor *= 1.1
	}
	switch c.Liquidity {
	case market.LiqThin:
		factor *= 0.8
	case market.LiqDeep:
		factor *= 1.2
	}
	if c.Spread == market.SpreadWide {
		factor *= 0.9
	}

	adjusted := qty * factor
	if adjusted > remaining {
		adjusted = remaining
	}
	if adjusted < 1 && remaining >= 1 {
		adjusted = 1
	}
	if adjusted > remaining {
		adjusted = remaining
	}
	return adjusted
}

// passivePrice 按激进度在本方与对手方之间取限价。
// aggression=0 贴本方报价，=1 穿越到对手方。
func passivePrice(side order.Side, snap market.Snapshot, aggression float64) float64 {
	spread := snap.Price.Ask - snap.Price.Bid
	if spread < 0 {
		spread = 0
	}
	if side == order.SideBuy {
		return snap.Price.Bid + aggression*spread
	}
	return snap.Price.Ask - aggression*spread
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
