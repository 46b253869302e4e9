package algo

import (
	"fmt"
	"time"

	"algo-engine-go/order"
)

// Definition 算法静态定义：名称、风控上限和默认风控模板。
// 注册表在提交时对订单做一次性校验，执行期不再检查这些上限。
type Definition struct {
	Type        Type
	Name        string
	Description string

	MaxOrderSize     float64       // 母单数量上限
	MaxParticipation float64       // 参与率上限
	MaxSlippageBps   float64       // 滑点预算上限
	MaxDuration      time.Duration // 执行窗口上限

	RiskTemplate order.RiskControls // 未指定风控时的默认模板
}

// Registry 算法注册表，启动后只读。
type Registry struct {
	defs map[Type]Definition
}

// NewRegistry 创建注册表
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{defs: make(map[Type]Definition, len(defs))}
	for _, d := range defs {
		r.defs[d.Type] = d
	}
	return r
}

// BuiltinDefinitions 返回五个内置算法的定义。
func BuiltinDefinitions() []Definition {
	return []Definition{
		{
			Type:             TypeTWAP,
			Name:             "Time-Weighted Average Price",
			Description:      "evenly sliced execution across the schedule window",
			MaxOrderSize:     1_000_000,
			MaxParticipation: 0.30,
			MaxSlippageBps:   50,
			MaxDuration:      8 * time.Hour,
			RiskTemplate: order.RiskControls{
				MaxSlippageBps:       30,
				MaxImpactBps:         20,
				MaxParticipationRate: 0.25,
				MaxPriceDeviation:    0.02,
			},
		},
		{
			Type:             TypeVWAP,
			Name:             "Volume-Weighted Average Price",
			Description:      "slices follow the intraday volume profile",
			MaxOrderSize:     2_000_000,
			MaxParticipation: 0.25,
			MaxSlippageBps:   40,
			MaxDuration:      8 * time.Hour,
			RiskTemplate: order.RiskControls{
				MaxSlippageBps:       25,
				MaxImpactBps:         15,
				MaxParticipationRate: 0.20,
				MaxPriceDeviation:    0.02,
			},
		},
		{
			Type:             TypeIceberg,
			Name:             "Iceberg",
			Description:      "small randomized clips near the touch",
			MaxOrderSize:     500_000,
			MaxParticipation: 0.15,
			MaxSlippageBps:   25,
			MaxDuration:      12 * time.Hour,
			RiskTemplate: order.RiskControls{
				MaxSlippageBps:       15,
				MaxImpactBps:         10,
				MaxParticipationRate: 0.10,
				MaxPriceDeviation:    0.01,
			},
		},
		{
			Type:             TypeShortfall,
			Name:             "Implementation Shortfall",
			Description:      "balances market impact against timing risk",
			MaxOrderSize:     1_000_000,
			MaxParticipation: 0.35,
			MaxSlippageBps:   60,
			MaxDuration:      6 * time.Hour,
			RiskTemplate: order.RiskControls{
				MaxSlippageBps:       40,
				MaxImpactBps:         30,
				MaxParticipationRate: 0.30,
				MaxPriceDeviation:    0.03,
			},
		},
		{
			Type:             TypePOV,
			Name:             "Percentage of Volume",
			Description:      "tracks a fixed share of realized market volume",
			MaxOrderSize:     2_000_000,
			MaxParticipation: 0.40,
			MaxSlippageBps:   45,
			MaxDuration:      12 * time.Hour,
			RiskTemplate: order.RiskControls{
				MaxSlippageBps:       30,
				MaxImpactBps:         20,
				MaxParticipationRate: 0.35,
				MaxPriceDeviation:    0.02,
			},
		},
	}
}

// DefaultRegistry 带全部内置算法的注册表。
func DefaultRegistry() *Registry {
	return NewRegistry(BuiltinDefinitions()...)
}

// Get 查询算法定义
func (r *Registry) Get(t Type) (Definition, bool) {
	d, ok := r.defs[t]
	return d, ok
}

// Types 返回已注册的算法类型。
func (r *Registry) Types() []Type {
	out := make([]Type, 0, len(r.defs))
	for t := range r.defs {
		out = append(out, t)
	}
	return out
}

// Validate 对提交请求做一次性校验：算法已注册、参数类型匹配且在
// 允许范围内、数量与时间窗口不超过定义上限。
func (r *Registry) Validate(t Type, p Params, totalQuantity float64, horizon time.Duration) error {
	def, ok := r.defs[t]
	if !ok {
		return fmt.Errorf("%w: unknown algorithm type %q", ErrValidation, t)
	}
	if p == nil {
		return fmt.Errorf("%w: missing parameters for %s", ErrValidation, t)
	}
	if p.AlgoType() != t {
		return fmt.Errorf("%w: parameter type %s does not match algorithm %s", ErrValidation, p.AlgoType(), t)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if totalQuantity <= 0 {
		return fmt.Errorf("%w: total quantity must be positive, got %f", ErrValidation, totalQuantity)
	}
	if totalQuantity > def.MaxOrderSize {
		return fmt.Errorf("%w: quantity %.0f exceeds %s limit %.0f", ErrValidation, totalQuantity, t, def.MaxOrderSize)
	}
	if horizon <= 0 {
		return fmt.Errorf("%w: schedule window must be positive", ErrValidation)
	}
	if horizon > def.MaxDuration {
		return fmt.Errorf("%w: window %s exceeds %s limit %s", ErrValidation, horizon, t, def.MaxDuration)
	}
	// 参与率类参数还要收敛到定义上限之内
	switch pp := p.(type) {
	case VWAPParams:
		if pp.MaxParticipationRate > def.MaxParticipation {
			return fmt.Errorf("%w: participation %.2f exceeds %s limit %.2f", ErrValidation, pp.MaxParticipationRate, t, def.MaxParticipation)
		}
	case POVParams:
		if pp.TargetRate > def.MaxParticipation {
			return fmt.Errorf("%w: target rate %.2f exceeds %s limit %.2f", ErrValidation, pp.TargetRate, t, def.MaxParticipation)
		}
	}
	return nil
}
