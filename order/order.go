package order

import (
	"fmt"
	"sync"
	"time"
)

// Side 交易方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Type 订单类型
type Type string

const (
	TypeMarket Type = "MARKET"
	TypeLimit  Type = "LIMIT"
)

// Status 母单生命周期状态，只允许单向推进。
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

// ChildStatus 子单状态
type ChildStatus string

const (
	ChildPending   ChildStatus = "PENDING"
	ChildSubmitted ChildStatus = "SUBMITTED"
	ChildFilled    ChildStatus = "FILLED"
	ChildCancelled ChildStatus = "CANCELLED"
	ChildRejected  ChildStatus = "REJECTED"
)

// Schedule 执行排程：时间窗口与切片预算。
type Schedule struct {
	StartTime        time.Time
	EndTime          time.Time
	Intervals        int
	IntervalDuration time.Duration
}

// RiskControls 母单级风控上限。
type RiskControls struct {
	MaxSlippageBps       float64
	MaxImpactBps         float64
	MaxParticipationRate float64
	MaxPriceDeviation    float64 // 相对到达价的最大偏离比例
	EmergencyStop        bool    // 触发后整单转入 FAILED
}

// Performance 执行质量指标（数量加权的滚动均值）。
type Performance struct {
	SlippageBps       float64
	ImpactBps         float64
	ShortfallBps      float64
	ParticipationRate float64
	Commission        float64
}

// ChildOrder 子单记录，仅归属于其母单。
type ChildOrder struct {
	ID           string
	SliceIndex   int
	Quantity     float64
	Price        float64
	ScheduledAt  time.Time
	Status       ChildStatus
	FillQuantity float64
	AveragePrice float64
	Commission   float64
	Reason       string // 拒绝/取消原因
}

// View 是母单的只读快照，跨goroutine传递时使用。
type View struct {
	ID            string
	ParentID      string
	Symbol        string
	Side          Side
	Type          Type
	TotalQuantity float64
	LimitPrice    float64
	TimeInForce   string

	Algo     string
	Schedule Schedule
	Status   Status

	ExecutedQuantity  float64
	RemainingQuantity float64
	AveragePrice      float64

	Performance Performance
	Risk        RiskControls

	ArrivalPrice   float64
	BenchmarkPrice float64

	Children  []ChildOrder
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Order 算法母单聚合根。所有变更都在自身互斥锁内完成；
// 调度循环是唯一的写入方，读取方通过 Snapshot 拿值拷贝。
type Order struct {
	mu sync.RWMutex

	id            string
	parentID      string
	symbol        string
	side          Side
	typ           Type
	totalQuantity float64
	limitPrice    float64
	timeInForce   string

	algo     string
	schedule Schedule
	status   Status

	executedQuantity float64
	averagePrice     float64

	perf Performance
	risk RiskControls

	arrivalPrice   float64
	benchmarkPrice float64

	children  []ChildOrder
	lastError string
	createdAt time.Time
	updatedAt time.Time

	sm *StateMachine
}

// Spec 创建母单所需的全部参数。
type Spec struct {
	ParentID      string
	Symbol        string
	Side          Side
	Type          Type
	TotalQuantity float64
	LimitPrice    float64
	TimeInForce   string
	Algo          string
	Schedule      Schedule
	Risk          RiskControls
	ArrivalPrice  float64
	Benchmark     float64
}

// New 创建 PENDING 状态的母单。
func New(spec Spec) *Order {
	now := time.Now()
	return &Order{
		id:             NewID("algo"),
		parentID:       spec.ParentID,
		symbol:         spec.Symbol,
		side:           spec.Side,
		typ:            spec.Type,
		totalQuantity:  spec.TotalQuantity,
		limitPrice:     spec.LimitPrice,
		timeInForce:    spec.TimeInForce,
		algo:           spec.Algo,
		schedule:       spec.Schedule,
		status:         StatusPending,
		risk:           spec.Risk,
		arrivalPrice:   spec.ArrivalPrice,
		benchmarkPrice: spec.Benchmark,
		children:       make([]ChildOrder, 0, spec.Schedule.Intervals),
		createdAt:      now,
		updatedAt:      now,
		sm:             DefaultStateMachine,
	}
}

// ID 返回母单标识。
func (o *Order) ID() string { return o.id }

// Symbol 返回标的。
func (o *Order) Symbol() string { return o.symbol }

// Side 返回方向。
func (o *Order) Side() Side { return o.side }

// Type 返回订单类型。
func (o *Order) Type() Type { return o.typ }

// Algo 返回算法类型名。
func (o *Order) Algo() string { return o.algo }

// Status 返回当前状态。
func (o *Order) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// Transition 推进母单状态；非法转换返回错误。
func (o *Order) Transition(to Status) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.sm.ValidateTransition(o.status, to); err != nil {
		return err
	}
	o.status = to
	o.updatedAt = time.Now()
	return nil
}

// IsTerminal 判断母单是否到达终态。
func (o *Order) IsTerminal() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.sm.IsTerminal(o.status)
}

// Remaining 返回未执行数量。
func (o *Order) Remaining() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.totalQuantity - o.executedQuantity
}

// Executed 返回已执行数量。
func (o *Order) Executed() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.executedQuantity
}

// Risk 返回当前风控配置。
func (o *Order) Risk() RiskControls {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.risk
}

// TripEmergencyStop 置位紧急停止标志。
func (o *Order) TripEmergencyStop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.risk.EmergencyStop = true
	o.updatedAt = time.Now()
}

// SetError 记录最近一次错误。
func (o *Order) SetError(err error) {
	if err == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastError = err.Error()
	o.updatedAt = time.Now()
}

// AddChild 追加一个子单，切片序号严格递增。
func (o *Order) AddChild(quantity, price float64, scheduledAt time.Time) ChildOrder {
	o.mu.Lock()
	defer o.mu.Unlock()
	child := ChildOrder{
		ID:          NewID("child"),
		SliceIndex:  len(o.children),
		Quantity:    quantity,
		Price:       price,
		ScheduledAt: scheduledAt,
		Status:      ChildSubmitted,
	}
	o.children = append(o.children, child)
	o.updatedAt = time.Now()
	return child
}

// ApplyFill 将一笔成交写入子单并原子更新母单聚合。
// 保证 executed + remaining == total 且均价保持数量加权。
func (o *Order) ApplyFill(childID string, fillQty, price, commission float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	idx := o.childIndexLocked(childID)
	if idx < 0 {
		return fmt.Errorf("unknown child order %s", childID)
	}
	child := &o.children[idx]
	child.Status = ChildFilled
	child.FillQuantity = fillQty
	child.AveragePrice = price
	child.Commission = commission

	prevExecuted := o.executedQuantity
	o.executedQuantity += fillQty
	if o.executedQuantity > 0 {
		o.averagePrice = (o.averagePrice*prevExecuted + price*fillQty) / o.executedQuantity
	}
	o.perf.Commission += commission
	o.updatedAt = time.Now()
	return nil
}

// RejectChild 将子单标记为拒绝并记录原因。
func (o *Order) RejectChild(childID, reason string) error {
	return o.markChild(childID, ChildRejected, reason)
}

// CancelPendingChildren 取消所有未成交子单（撤单场景）。
func (o *Order) CancelPendingChildren(reason string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for i := range o.children {
		switch o.children[i].Status {
		case ChildPending, ChildSubmitted:
			o.children[i].Status = ChildCancelled
			o.children[i].Reason = reason
			n++
		}
	}
	if n > 0 {
		o.updatedAt = time.Now()
	}
	return n
}

// UpdatePerformance 覆盖写入执行质量指标（由绩效跟踪器计算）。
func (o *Order) UpdatePerformance(p Performance) {
	o.mu.Lock()
	defer o.mu.Unlock()
	// 手续费由 ApplyFill 累计，这里保留
	p.Commission = o.perf.Commission
	o.perf = p
	o.updatedAt = time.Now()
}

// Snapshot 返回母单的深拷贝视图。
func (o *Order) Snapshot() View {
	o.mu.RLock()
	defer o.mu.RUnlock()
	children := make([]ChildOrder, len(o.children))
	copy(children, o.children)
	return View{
		ID:                o.id,
		ParentID:          o.parentID,
		Symbol:            o.symbol,
		Side:              o.side,
		Type:              o.typ,
		TotalQuantity:     o.totalQuantity,
		LimitPrice:        o.limitPrice,
		TimeInForce:       o.timeInForce,
		Algo:              o.algo,
		Schedule:          o.schedule,
		Status:            o.status,
		ExecutedQuantity:  o.executedQuantity,
		RemainingQuantity: o.totalQuantity - o.executedQuantity,
		AveragePrice:      o.averagePrice,
		Performance:       o.perf,
		Risk:              o.risk,
		ArrivalPrice:      o.arrivalPrice,
		BenchmarkPrice:    o.benchmarkPrice,
		Children:          children,
		LastError:         o.lastError,
		CreatedAt:         o.createdAt,
		UpdatedAt:         o.updatedAt,
	}
}

func (o *Order) markChild(childID string, st ChildStatus, reason string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	idx := o.childIndexLocked(childID)
	if idx < 0 {
		return fmt.Errorf("unknown child order %s", childID)
	}
	o.children[idx].Status = st
	o.children[idx].Reason = reason
	o.updatedAt = time.Now()
	return nil
}

func (o *Order) childIndexLocked(childID string) int {
	for i := range o.children {
		if o.children[i].ID == childID {
			return i
		}
	}
	return -1
}
