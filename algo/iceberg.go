package algo

import (
	"math/rand"
	"time"

	"algo-engine-go/order"
)

// IcebergExecutor 每次只露出一小片，数量和停顿都带随机抖动，
// 限价贴在本方报价上被动等待成交。
type IcebergExecutor struct {
	params IcebergParams
	rng    *rand.Rand
}

// NewIcebergExecutor 创建冰山执行器
func NewIcebergExecutor(p IcebergParams, rng *rand.Rand) *IcebergExecutor {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &IcebergExecutor{params: p, rng: rng}
}

// Name 实现 Executor 接口
func (e *IcebergExecutor) Name() Type { return TypeIceberg }

// NextSlice 实现 Executor 接口
func (e *IcebergExecutor) NextSlice(ord order.View, ec Context) (Decision, error) {
	if ec.Remaining <= 0 {
		return Decision{}, nil
	}

	clip := e.params.ClipSize
	if j := e.params.SizeJitter; j > 0 {
		clip *= 1 + (e.rng.Float64()*2-1)*j
	}
	if clip > ec.Remaining {
		clip = ec.Remaining
	}
	clip = adjustForConditions(clip, ec.Remaining, ec.Conditions)

	wait := e.params.MinPause
	if span := e.params.MaxPause - e.params.MinPause; span > 0 {
		wait += time.Duration(e.rng.Int63n(int64(span)))
	}

	return Decision{
		Quantity:   clip,
		LimitPrice: passivePrice(ord.Side, ec.Snapshot, 0),
		Wait:       wait,
	}, nil
}
