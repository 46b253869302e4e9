package algo

import (
	"time"

	"algo-engine-go/order"
)

// POV 的重估周期。
const povInterval = 30 * time.Second

// POVExecutor 跟踪市场实际成交量的固定比例。执行器记录上次
// 唤醒时的累计成交量基线，切片 = 目标参与率 × 区间内市场增量
// （剔除本单自己的成交，否则参与率会随自身成交膨胀）。
type POVExecutor struct {
	params POVParams

	primed       bool
	lastTotal    float64 // 上次唤醒时的市场累计成交量
	lastExecuted float64 // 上次唤醒时本单已执行数量
}

// NewPOVExecutor 创建 POV 执行器
func NewPOVExecutor(p POVParams) *POVExecutor {
	return &POVExecutor{params: p}
}

// Name 实现 Executor 接口
func (e *POVExecutor) Name() Type { return TypePOV }

// NextSlice 实现 Executor 接口
func (e *POVExecutor) NextSlice(ord order.View, ec Context) (Decision, error) {
	cur := ec.Snapshot.Volume.Total
	wait := povInterval
	if d := ord.Schedule.IntervalDuration; d > 0 && d < wait {
		wait = d
	}

	if !e.primed {
		// 首个周期只建立基线，不下单
		e.primed = true
		e.lastTotal = cur
		e.lastExecuted = ec.Executed
		return Decision{Wait: wait}, nil
	}

	delta := cur - e.lastTotal
	own := ec.Executed - e.lastExecuted
	marketDelta := delta - own
	if marketDelta < 0 {
		marketDelta = 0
	}
	e.lastTotal = cur
	e.lastExecuted = ec.Executed

	if ec.Remaining <= 0 {
		return Decision{}, nil
	}

	qty := marketDelta * e.params.TargetRate
	if qty > ec.Remaining {
		qty = ec.Remaining
	}
	if qty < 1 {
		// 周期内市场几乎没有成交，等下一个周期
		return Decision{Wait: wait}, nil
	}

	return Decision{
		Quantity:   qty,
		LimitPrice: passivePrice(ord.Side, ec.Snapshot, 1),
		Wait:       wait,
	}, nil
}
