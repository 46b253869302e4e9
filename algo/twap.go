package algo

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"algo-engine-go/order"
)

// TWAPExecutor 将母单均匀切分到排程的每个区间。
// 基础切片为 floor(total/intervals)，最后一个区间吸收余数，
// 保证切片之和恰好等于母单数量。
type TWAPExecutor struct {
	params TWAPParams
	rng    *rand.Rand
}

// NewTWAPExecutor 创建 TWAP 执行器
func NewTWAPExecutor(p TWAPParams, rng *rand.Rand) *TWAPExecutor {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &TWAPExecutor{params: p, rng: rng}
}

// Name 实现 Executor 接口
func (e *TWAPExecutor) Name() Type { return TypeTWAP }

// NextSlice 实现 Executor 接口
func (e *TWAPExecutor) NextSlice(ord order.View, ec Context) (Decision, error) {
	if ec.TotalIntervals <= 0 {
		return Decision{}, fmt.Errorf("twap: schedule has no intervals")
	}
	if ec.Remaining <= 0 {
		return Decision{}, nil
	}

	base := math.Floor(ord.TotalQuantity / float64(ec.TotalIntervals))
	if base < 1 {
		base = 1
	}
	qty := base
	if ec.Interval >= ec.TotalIntervals-1 {
		// 最后一个区间清掉全部剩余
		qty = ec.Remaining
	}
	qty = adjustForConditions(qty, ec.Remaining, ec.Conditions)

	wait := ord.Schedule.IntervalDuration
	if j := e.params.TimeRandomization; j > 0 && wait > 0 {
		// 对称抖动，避免切片节奏被对手方识别
		scale := 1 + (e.rng.Float64()*2-1)*j
		wait = time.Duration(float64(wait) * scale)
	}

	return Decision{
		Quantity:   qty,
		LimitPrice: passivePrice(ord.Side, ec.Snapshot, e.params.Aggression),
		Wait:       wait,
	}, nil
}
