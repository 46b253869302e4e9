package algo

import (
	"math"
	"time"

	"algo-engine-go/market"
	"algo-engine-go/order"
)

// 执行缺口算法的重估节奏与执行速率边界。
const (
	shortfallInterval = time.Minute
	shortfallMinRate  = 0.05
	shortfallMaxRate  = 0.50
	catchUpFactor     = 1.5
)

// ShortfallExecutor 在市场冲击和时机风险之间做权衡：
// 波动越高、风险厌恶越强，执行越快；冲击系数越大，执行越慢。
// 落后于时间进度或动量对本方不利时加速追赶。
type ShortfallExecutor struct {
	params ShortfallParams
}

// NewShortfallExecutor 创建执行缺口执行器
func NewShortfallExecutor(p ShortfallParams) *ShortfallExecutor {
	return &ShortfallExecutor{params: p}
}

// Name 实现 Executor 接口
func (e *ShortfallExecutor) Name() Type { return TypeShortfall }

// NextSlice 实现 Executor 接口
func (e *ShortfallExecutor) NextSlice(ord order.View, ec Context) (Decision, error) {
	if ec.Remaining <= 0 {
		return Decision{}, nil
	}

	// Almgren-Chriss 风格的速率启发：rate ∝ sqrt(σ·λ/η)
	vol := ec.Snapshot.Micro.Volatility
	if vol <= 0 {
		vol = 0.001
	}
	rate := clamp(
		math.Sqrt(vol*e.params.RiskAversion/e.params.ImpactCoefficient),
		shortfallMinRate, shortfallMaxRate,
	)
	qty := ec.Remaining * rate

	behind := behindSchedule(ord, ec)
	if behind || momentumAgainst(ord.Side, ec.Conditions.Momentum) {
		qty *= catchUpFactor
	}
	qty = adjustForConditions(qty, ec.Remaining, ec.Conditions)

	// 落后时穿越价差拿流动性，否则停在中间价附近
	var price float64
	if behind {
		price = passivePrice(ord.Side, ec.Snapshot, 1)
	} else {
		price = passivePrice(ord.Side, ec.Snapshot, 0.5)
	}

	wait := shortfallInterval
	if d := ord.Schedule.IntervalDuration; d > 0 && d < wait {
		wait = d
	}
	return Decision{Quantity: qty, LimitPrice: price, Wait: wait}, nil
}

func behindSchedule(ord order.View, ec Context) bool {
	if ec.Horizon <= 0 || ord.TotalQuantity <= 0 {
		return false
	}
	timeFrac := float64(ec.Elapsed) / float64(ec.Horizon)
	execFrac := ec.Executed / ord.TotalQuantity
	return execFrac < timeFrac
}

// momentumAgainst 判断动量是否正把价格推向对本方不利的方向。
func momentumAgainst(side order.Side, m market.MomentumDir) bool {
	if side == order.SideBuy {
		return m == market.MomentumUp
	}
	return m == market.MomentumDown
}
