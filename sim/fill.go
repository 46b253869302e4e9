package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"algo-engine-go/market"
	"algo-engine-go/order"
)

// 冲击与滑点模型的边界。
const (
	maxImpactBps     = 50.0
	slippageNoiseBps = 2.0
	defaultAvgVolume = 1000.0
)

// Request 一笔子单的成交请求。
type Request struct {
	Symbol     string
	Side       order.Side
	Type       order.Type
	Quantity   float64
	LimitPrice float64
}

// Fill 模拟成交结果。
type Fill struct {
	Quantity    float64
	Price       float64
	Commission  float64
	SlippageBps float64 // 相对成交时刻 VWAP 基准的滑点，无 VWAP 时退回中间价
	ImpactBps   float64 // 市场冲击估计
	Taker       bool
	Timestamp   time.Time
}

// Simulator 纸面成交模拟器：按快照报价加上平方根冲击模型和
// 随机滑点生成成交价，并把成交回写进行情存储，让后续切片
// 看到自己造成的量价变化。
type Simulator struct {
	store *market.Store
	fees  FeeSchedule

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator 创建成交模拟器。rng 为 nil 时用时间种子。
func NewSimulator(store *market.Store, fees FeeSchedule, rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{store: store, fees: fees, rng: rng}
}

// Execute 模拟一笔子单的成交。标的无行情时返回 market.ErrNoMarketData。
func (s *Simulator) Execute(req Request) (Fill, error) {
	if req.Quantity <= 0 {
		return Fill{}, fmt.Errorf("fill quantity must be positive, got %f", req.Quantity)
	}
	snap, err := s.store.Get(req.Symbol)
	if err != nil {
		return Fill{}, fmt.Errorf("execute %s: %w", req.Symbol, err)
	}
	mid := snap.Mid()
	if mid <= 0 {
		return Fill{}, fmt.Errorf("execute %s: no valid quote", req.Symbol)
	}
	bench := snap.Price.VWAP
	if bench <= 0 {
		bench = mid
	}

	impact := ImpactEstimate(snap, req.Quantity)
	noise := s.noiseBps()

	dir := 1.0
	ref := snap.Price.Ask
	if req.Side == order.SideSell {
		dir = -1.0
		ref = snap.Price.Bid
	}
	price := ref * (1 + dir*(impact+noise)/10_000)

	taker := true
	if req.Type == order.TypeLimit && req.LimitPrice > 0 {
		// 限价保护：买不高于限价，卖不低于限价
		if req.Side == order.SideBuy && price > req.LimitPrice {
			price = req.LimitPrice
			taker = false
		}
		if req.Side == order.SideSell && price < req.LimitPrice {
			price = req.LimitPrice
			taker = false
		}
	}

	now := time.Now()
	fill := Fill{
		Quantity:    req.Quantity,
		Price:       price,
		Commission:  s.fees.Commission(price, req.Quantity, taker),
		SlippageBps: dir * (price - bench) / bench * 10_000,
		ImpactBps:   impact,
		Taker:       taker,
		Timestamp:   now,
	}

	if err := s.store.ApplyTrade(req.Symbol, price, req.Quantity, now); err != nil {
		return Fill{}, fmt.Errorf("record trade %s: %w", req.Symbol, err)
	}
	return fill, nil
}

// ImpactEstimate 平方根冲击模型：冲击与切片占平均成交量的比例
// 的平方根成正比，以当前价差为尺度，上限 maxImpactBps。
// 风控在下单前用同一模型做事前估计。
func ImpactEstimate(snap market.Snapshot, qty float64) float64 {
	avg := snap.Volume.Average
	if avg <= 0 {
		avg = defaultAvgVolume
	}
	spread := snap.Micro.SpreadBps
	if spread <= 0 {
		spread = 1
	}
	impact := spread * math.Sqrt(qty/avg)
	return math.Min(impact, maxImpactBps)
}

func (s *Simulator) noiseBps() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() * slippageNoiseBps
}
