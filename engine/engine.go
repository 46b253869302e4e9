package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"algo-engine-go/algo"
	"algo-engine-go/infrastructure/alert"
	"algo-engine-go/infrastructure/logger"
	"algo-engine-go/market"
	"algo-engine-go/metrics"
	"algo-engine-go/order"
	"algo-engine-go/perf"
	"algo-engine-go/sim"
)

var (
	// ErrOrderNotFound 查询的母单不存在
	ErrOrderNotFound = errors.New("order not found")
	// ErrEngineStopped 引擎未运行
	ErrEngineStopped = errors.New("engine not running")
	// ErrNotCancellable 母单已处于终态，无法撤单
	ErrNotCancellable = errors.New("order not cancellable")
	// ErrRiskLimit 母单因风控限制转入失败终态
	ErrRiskLimit = errors.New("risk limit breached")
)

// Config 引擎配置
type Config struct {
	DefaultHorizon      time.Duration // 未指定排程时的执行窗口
	DefaultIntervals    int           // 未指定排程时的切片数
	MaxConcurrentOrders int           // 同时活跃的母单上限
	MaxRiskRejects      int           // 累计风控拒绝超过该值转 FAILED
	PausePollInterval   time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		DefaultHorizon:      time.Hour,
		DefaultIntervals:    60,
		MaxConcurrentOrders: 100,
		MaxRiskRejects:      20,
		PausePollInterval:   time.Second,
	}
}

// SubmitRequest 提交母单的请求。Params、Schedule、Risk 允许缺省，
// 分别落到算法默认参数、默认排程和注册表的风控模板。
type SubmitRequest struct {
	Symbol     string
	Side       order.Side
	Type       order.Type
	Quantity   float64
	LimitPrice float64
	Algo       algo.Type
	Params     algo.Params
	Schedule   *order.Schedule
	Risk       *order.RiskControls
}

// managedOrder 引擎内部的母单执行单元：聚合根、执行器和
// 调度 goroutine 的控制通道。
type managedOrder struct {
	ord  *order.Order
	exec algo.Executor

	cancelChan chan struct{}
	cancelOnce sync.Once
	paused     atomic.Bool
	violations atomic.Int64
}

func (m *managedOrder) cancel() {
	m.cancelOnce.Do(func() { close(m.cancelChan) })
}

// Engine 算法执行引擎门面。每个活跃母单由一个专属调度
// goroutine 驱动，引擎自身只做提交校验、查询和生命周期管理。
type Engine struct {
	cfg      Config
	log      *logger.Logger
	store    *market.Store
	registry *algo.Registry
	sim      *sim.Simulator
	tracker  *perf.Tracker
	alerts   *alert.Manager
	clock    Clock
	rng      *rand.Rand

	mu           sync.RWMutex
	orders       map[string]*managedOrder
	running      bool
	riskOverride *order.RiskControls

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New 创建执行引擎
func New(cfg Config, log *logger.Logger, store *market.Store, simulator *sim.Simulator, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		log:      log,
		store:    store,
		registry: algo.DefaultRegistry(),
		sim:      simulator,
		tracker:  perf.NewTracker(),
		clock:    NewRealClock(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		orders:   make(map[string]*managedOrder),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Option 引擎可选依赖注入
type Option func(*Engine)

// WithClock 注入时钟（测试用）
func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

// WithRegistry 注入自定义算法注册表
func WithRegistry(r *algo.Registry) Option { return func(e *Engine) { e.registry = r } }

// WithRand 注入随机源（测试用）
func WithRand(rng *rand.Rand) Option { return func(e *Engine) { e.rng = rng } }

// WithAlerts 注入告警管理器
func WithAlerts(m *alert.Manager) Option { return func(e *Engine) { e.alerts = m } }

// Start 启动引擎
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return fmt.Errorf("engine already running")
	}
	e.stopChan = make(chan struct{})
	e.running = true
	e.log.Info("execution engine started")
	return nil
}

// Stop 停止引擎：撤销所有活跃母单并等待调度 goroutine 退出。
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopChan)
	for _, m := range e.orders {
		m.cancel()
	}
	e.mu.Unlock()

	e.wg.Wait()
	e.log.Info("execution engine stopped")
}

// Submit 校验并接受一个母单，为其启动专属调度 goroutine。
// 返回接受时刻的母单快照。
func (e *Engine) Submit(req SubmitRequest) (order.View, error) {
	e.mu.RLock()
	running := e.running
	active := 0
	for _, m := range e.orders {
		if !m.ord.IsTerminal() {
			active++
		}
	}
	e.mu.RUnlock()
	if !running {
		return order.View{}, ErrEngineStopped
	}
	if active >= e.cfg.MaxConcurrentOrders {
		return order.View{}, fmt.Errorf("%w: concurrent order limit %d reached", algo.ErrValidation, e.cfg.MaxConcurrentOrders)
	}

	params := req.Params
	if params == nil {
		p, err := algo.DefaultParams(req.Algo)
		if err != nil {
			return order.View{}, err
		}
		params = p
	}

	now := e.clock.Now()
	schedule := e.buildSchedule(req.Schedule, now)
	horizon := schedule.EndTime.Sub(schedule.StartTime)

	if err := e.registry.Validate(req.Algo, params, req.Quantity, horizon); err != nil {
		return order.View{}, err
	}
	if req.Side != order.SideBuy && req.Side != order.SideSell {
		return order.View{}, fmt.Errorf("%w: invalid side %q", algo.ErrValidation, req.Side)
	}

	snap, err := e.store.Get(req.Symbol)
	if err != nil {
		return order.View{}, fmt.Errorf("submit %s: %w", req.Symbol, err)
	}
	arrival := snap.Mid()
	// 基准价取提交时刻的市场 VWAP，行情未预热时退回到达价
	benchmark := snap.Price.VWAP
	if benchmark <= 0 {
		benchmark = arrival
	}

	def, _ := e.registry.Get(req.Algo)
	risk := def.RiskTemplate
	e.mu.RLock()
	if e.riskOverride != nil {
		risk = *e.riskOverride
	}
	e.mu.RUnlock()
	if req.Risk != nil {
		risk = *req.Risk
	}

	typ := req.Type
	if typ == "" {
		typ = order.TypeLimit
	}

	ord := order.New(order.Spec{
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          typ,
		TotalQuantity: req.Quantity,
		LimitPrice:    req.LimitPrice,
		Algo:          string(req.Algo),
		Schedule:      schedule,
		Risk:          risk,
		ArrivalPrice:  arrival,
		Benchmark:     benchmark,
	})

	executor, err := algo.NewExecutor(params, rand.New(rand.NewSource(e.rng.Int63())))
	if err != nil {
		return order.View{}, err
	}

	m := &managedOrder{
		ord:        ord,
		exec:       executor,
		cancelChan: make(chan struct{}),
	}

	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return order.View{}, ErrEngineStopped
	}
	e.orders[ord.ID()] = m
	e.wg.Add(1)
	e.mu.Unlock()

	e.tracker.Track(ord.ID(), snap.Volume.Total)
	metrics.OrdersSubmitted.Inc()
	metrics.ActiveOrders.Inc()
	e.log.LogOrder("submitted", ord.ID(), map[string]interface{}{
		"symbol":   req.Symbol,
		"side":     req.Side,
		"algo":     req.Algo,
		"quantity": req.Quantity,
		"arrival":  arrival,
	})

	go e.runOrder(m)
	return ord.Snapshot(), nil
}

// Cancel 请求撤销母单。撤销是协作式的：关闭取消通道立即唤醒
// 调度 goroutine，由它完成状态转换和未成交子单的清理。
func (e *Engine) Cancel(orderID string) error {
	m, err := e.lookup(orderID)
	if err != nil {
		return err
	}
	if !order.DefaultStateMachine.CanCancel(m.ord.Status()) {
		return fmt.Errorf("%w: %s is %s", ErrNotCancellable, orderID, m.ord.Status())
	}
	m.cancel()
	e.log.LogOrder("cancel_requested", orderID, nil)
	return nil
}

// Pause 暂停母单的切片生成（不撤销已挂出的子单）。
func (e *Engine) Pause(orderID string) error {
	m, err := e.lookup(orderID)
	if err != nil {
		return err
	}
	m.paused.Store(true)
	e.log.LogOrder("paused", orderID, nil)
	return nil
}

// Resume 恢复母单的切片生成。
func (e *Engine) Resume(orderID string) error {
	m, err := e.lookup(orderID)
	if err != nil {
		return err
	}
	m.paused.Store(false)
	e.log.LogOrder("resumed", orderID, nil)
	return nil
}

// SetRiskOverride 替换提交时的默认风控模板，只影响之后提交的
// 母单（配置热更新入口）。
func (e *Engine) SetRiskOverride(r order.RiskControls) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.riskOverride = &r
	e.log.LogRisk("risk_template_updated", map[string]interface{}{
		"max_slippage_bps":       r.MaxSlippageBps,
		"max_impact_bps":         r.MaxImpactBps,
		"max_participation_rate": r.MaxParticipationRate,
		"max_price_deviation":    r.MaxPriceDeviation,
	})
}

// Get 返回母单快照，终态母单在引擎停止前仍可查询。
func (e *Engine) Get(orderID string) (order.View, error) {
	m, err := e.lookup(orderID)
	if err != nil {
		return order.View{}, err
	}
	return m.ord.Snapshot(), nil
}

// ListActive 返回所有未到终态的母单快照。
func (e *Engine) ListActive() []order.View {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]order.View, 0, len(e.orders))
	for _, m := range e.orders {
		if !m.ord.IsTerminal() {
			out = append(out, m.ord.Snapshot())
		}
	}
	return out
}

// Stats 返回引擎级执行质量汇总。
func (e *Engine) Stats() perf.Summary {
	return e.tracker.Stats()
}

func (e *Engine) lookup(orderID string) (*managedOrder, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return m, nil
}

// buildSchedule 补全排程：未指定时从当前时刻铺满默认窗口。
func (e *Engine) buildSchedule(s *order.Schedule, now time.Time) order.Schedule {
	if s != nil {
		out := *s
		if out.StartTime.IsZero() {
			out.StartTime = now
		}
		if out.EndTime.IsZero() {
			out.EndTime = out.StartTime.Add(e.cfg.DefaultHorizon)
		}
		if out.Intervals <= 0 {
			out.Intervals = e.cfg.DefaultIntervals
		}
		if out.IntervalDuration <= 0 && out.Intervals > 0 {
			out.IntervalDuration = out.EndTime.Sub(out.StartTime) / time.Duration(out.Intervals)
		}
		return out
	}
	return order.Schedule{
		StartTime:        now,
		EndTime:          now.Add(e.cfg.DefaultHorizon),
		Intervals:        e.cfg.DefaultIntervals,
		IntervalDuration: e.cfg.DefaultHorizon / time.Duration(e.cfg.DefaultIntervals),
	}
}
