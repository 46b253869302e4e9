package algo

import (
	"fmt"
	"math/rand"
)

// NewExecutor 按类型化参数构造执行器。rng 允许为 nil，
// 测试里传入固定种子得到确定性的抖动序列。
func NewExecutor(p Params, rng *rand.Rand) (Executor, error) {
	switch pp := p.(type) {
	case TWAPParams:
		return NewTWAPExecutor(pp, rng), nil
	case VWAPParams:
		return NewVWAPExecutor(pp), nil
	case IcebergParams:
		return NewIcebergExecutor(pp, rng), nil
	case ShortfallParams:
		return NewShortfallExecutor(pp), nil
	case POVParams:
		return NewPOVExecutor(pp), nil
	default:
		return nil, fmt.Errorf("%w: no executor for parameter type %T", ErrValidation, p)
	}
}
