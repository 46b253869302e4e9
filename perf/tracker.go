package perf

import (
	"sync"
	"sync/atomic"

	"algo-engine-go/order"
)

// orderStats 单个母单的数量加权累计。
type orderStats struct {
	volumeAtStart float64 // 开始执行时的市场累计成交量
	execQty       float64
	wSlippage     float64 // slippage × qty 的累计
	wImpact       float64
}

// Summary 引擎级执行质量汇总。
type Summary struct {
	Submitted int64
	Active    int64
	Completed int64
	Cancelled int64
	Failed    int64

	SuccessRate     float64 // completed / submitted
	TotalVolume     float64
	AvgSlippageBps  float64 // 数量加权
	AvgImpactBps    float64
	AvgShortfallBps float64
}

// Tracker 跟踪每个母单和引擎整体的执行质量。
// 每笔成交后重算母单的数量加权指标并写回聚合根。
type Tracker struct {
	submitted atomic.Int64
	completed atomic.Int64
	cancelled atomic.Int64
	failed    atomic.Int64

	mu     sync.Mutex
	orders map[string]*orderStats

	totalVolume  float64
	gSlippage    float64 // 全局 slippage × qty 累计
	gImpact      float64
	gShortfall   float64 // 终态时按执行数量加权累入
	gTermVolume  float64 // 已终态订单的执行数量合计
}

// NewTracker 创建绩效跟踪器
func NewTracker() *Tracker {
	return &Tracker{orders: make(map[string]*orderStats)}
}

// Track 注册一个新提交的母单。volumeAtStart 是此刻的市场累计
// 成交量，用于之后计算参与率。
func (t *Tracker) Track(orderID string, volumeAtStart float64) {
	t.submitted.Add(1)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.orders[orderID] = &orderStats{volumeAtStart: volumeAtStart}
}

// RecordFill 把一笔成交并入母单的数量加权指标并写回聚合根。
// marketVolume 是成交时刻的市场累计成交量。
func (t *Tracker) RecordFill(ord *order.Order, qty, slippageBps, impactBps, marketVolume float64) {
	t.mu.Lock()
	st, ok := t.orders[ord.ID()]
	if !ok {
		st = &orderStats{volumeAtStart: marketVolume}
		t.orders[ord.ID()] = st
	}
	st.execQty += qty
	st.wSlippage += slippageBps * qty
	st.wImpact += impactBps * qty

	t.totalVolume += qty
	t.gSlippage += slippageBps * qty
	t.gImpact += impactBps * qty

	avgSlip := st.wSlippage / st.execQty
	avgImp := st.wImpact / st.execQty
	participation := 0.0
	if traded := marketVolume - st.volumeAtStart; traded > 0 {
		participation = st.execQty / traded
	}
	t.mu.Unlock()

	v := ord.Snapshot()
	ord.UpdatePerformance(order.Performance{
		SlippageBps:       avgSlip,
		ImpactBps:         avgImp,
		ShortfallBps:      ShortfallBps(v.Side, v.AveragePrice, v.ArrivalPrice),
		ParticipationRate: participation,
	})
}

// OnTerminal 记录母单进入终态，缺口按执行数量并入全局均值。
func (t *Tracker) OnTerminal(ord *order.Order) {
	v := ord.Snapshot()
	switch v.Status {
	case order.StatusCompleted:
		t.completed.Add(1)
	case order.StatusCancelled:
		t.cancelled.Add(1)
	case order.StatusFailed:
		t.failed.Add(1)
	default:
		return
	}

	if v.ExecutedQuantity <= 0 {
		return
	}
	sf := ShortfallBps(v.Side, v.AveragePrice, v.ArrivalPrice)
	t.mu.Lock()
	t.gShortfall += sf * v.ExecutedQuantity
	t.gTermVolume += v.ExecutedQuantity
	t.mu.Unlock()
}

// Forget 释放母单的跟踪状态（终态后调用）。
func (t *Tracker) Forget(orderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.orders, orderID)
}

// Stats 返回引擎级汇总。
func (t *Tracker) Stats() Summary {
	sub := t.submitted.Load()
	com := t.completed.Load()
	can := t.cancelled.Load()
	fail := t.failed.Load()

	s := Summary{
		Submitted: sub,
		Active:    sub - com - can - fail,
		Completed: com,
		Cancelled: can,
		Failed:    fail,
	}
	if sub > 0 {
		s.SuccessRate = float64(com) / float64(sub)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	s.TotalVolume = t.totalVolume
	if t.totalVolume > 0 {
		s.AvgSlippageBps = t.gSlippage / t.totalVolume
		s.AvgImpactBps = t.gImpact / t.totalVolume
	}
	if t.gTermVolume > 0 {
		s.AvgShortfallBps = t.gShortfall / t.gTermVolume
	}
	return s
}

// ShortfallBps 相对到达价的执行缺口（基点），买单均价越高、
// 卖单均价越低，缺口越大。
func ShortfallBps(side order.Side, avgPrice, arrivalPrice float64) float64 {
	if arrivalPrice <= 0 || avgPrice <= 0 {
		return 0
	}
	dir := 1.0
	if side == order.SideSell {
		dir = -1.0
	}
	return dir * (avgPrice - arrivalPrice) / arrivalPrice * 10_000
}
