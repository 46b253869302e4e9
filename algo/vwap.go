package algo

import (
	"fmt"
	"math"

	"algo-engine-go/order"
)

// VWAPExecutor 按日内 U 型成交量轮廓切分：开盘与收盘附近的区间
// 分配更大的权重，单切片不超过预期区间成交量乘以参与率上限。
type VWAPExecutor struct {
	params VWAPParams
}

// NewVWAPExecutor 创建 VWAP 执行器
func NewVWAPExecutor(p VWAPParams) *VWAPExecutor {
	return &VWAPExecutor{params: p}
}

// Name 实现 Executor 接口
func (e *VWAPExecutor) Name() Type { return TypeVWAP }

// NextSlice 实现 Executor 接口
func (e *VWAPExecutor) NextSlice(ord order.View, ec Context) (Decision, error) {
	if ec.TotalIntervals <= 0 {
		return Decision{}, fmt.Errorf("vwap: schedule has no intervals")
	}
	if ec.Remaining <= 0 {
		return Decision{}, nil
	}

	weight := profileWeight(ec.Interval, ec.TotalIntervals)
	qty := ord.TotalQuantity * weight
	if ec.Interval >= ec.TotalIntervals-1 {
		qty = ec.Remaining
	}

	qty = adjustForConditions(qty, ec.Remaining, ec.Conditions)

	// 参与率上限在条件调节之后收口：切片在任何市场状态下都
	// 不超过预期区间成交量的给定比例
	expected := expectedIntervalVolume(ec)
	if expected > 0 {
		limit := expected * e.params.MaxParticipationRate
		if qty > limit {
			qty = limit
		}
	}

	// 限价锚定在滚动 VWAP 上，激进度决定向对手方靠多近；
	// 滚动 VWAP 未形成时退回母单的基准价
	anchor := ec.Snapshot.Price.VWAP
	if anchor <= 0 {
		anchor = ec.BenchmarkPrice
	}
	if anchor <= 0 {
		anchor = ec.Snapshot.Mid()
	}
	var price float64
	if ord.Side == order.SideBuy {
		price = anchor + e.params.Aggression*math.Max(0, ec.Snapshot.Price.Ask-anchor)
	} else {
		price = anchor - e.params.Aggression*math.Max(0, anchor-ec.Snapshot.Price.Bid)
	}

	return Decision{
		Quantity:   qty,
		LimitPrice: price,
		Wait:       ord.Schedule.IntervalDuration,
	}, nil
}

// profileWeight 返回第 i 个区间在 U 型轮廓下的权重，
// 全部区间的权重之和为 1。
func profileWeight(interval, total int) float64 {
	if total <= 1 {
		return 1
	}
	// 基线 0.75，两端加成至 1.25，再整体归一化
	raw := make([]float64, total)
	sum := 0.0
	for i := 0; i < total; i++ {
		x := 2*float64(i)/float64(total-1) - 1 // [-1, 1]
		raw[i] = 0.75 + 0.5*x*x
		sum += raw[i]
	}
	return raw[interval] / sum
}

// expectedIntervalVolume 估计一个排程区间内的市场成交量：
// 行情源按 tick 累计平均成交量，区间时长按 tick 间隔折算。
func expectedIntervalVolume(ec Context) float64 {
	avg := ec.Snapshot.Volume.Average
	if avg <= 0 || ec.TotalIntervals <= 0 {
		return 0
	}
	secs := ec.Horizon.Seconds() / float64(ec.TotalIntervals)
	if secs < 1 {
		secs = 1
	}
	return avg * secs
}
