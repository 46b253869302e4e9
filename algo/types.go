package algo

import (
	"errors"
	"fmt"
	"time"
)

// ErrValidation 参数校验失败（算法未知、缺参、越界）。
var ErrValidation = errors.New("validation error")

// Type 算法类型枚举
type Type string

const (
	TypeTWAP      Type = "TWAP"
	TypeVWAP      Type = "VWAP"
	TypeIceberg   Type = "ICEBERG"
	TypeShortfall Type = "IS"
	TypePOV       Type = "POV"
)

// Params 各算法的类型化参数。提交时经注册表校验一次，
// 之后执行路径不再做类型断言以外的检查。
type Params interface {
	AlgoType() Type
	Validate() error
}

// TWAPParams 时间加权参数
type TWAPParams struct {
	Aggression        float64 // 0=被动贴近本方, 1=穿越价差
	TimeRandomization float64 // 切片间隔抖动比例 [0, 0.5]
}

func (p TWAPParams) AlgoType() Type { return TypeTWAP }

func (p TWAPParams) Validate() error {
	if p.Aggression < 0 || p.Aggression > 1 {
		return fmt.Errorf("%w: aggression must be in [0,1], got %f", ErrValidation, p.Aggression)
	}
	if p.TimeRandomization < 0 || p.TimeRandomization > 0.5 {
		return fmt.Errorf("%w: timeRandomization must be in [0,0.5], got %f", ErrValidation, p.TimeRandomization)
	}
	return nil
}

// VWAPParams 成交量加权参数
type VWAPParams struct {
	MaxParticipationRate float64 // 单切片占预期区间成交量的上限 (0,1]
	Aggression           float64
}

func (p VWAPParams) AlgoType() Type { return TypeVWAP }

func (p VWAPParams) Validate() error {
	if p.MaxParticipationRate <= 0 || p.MaxParticipationRate > 1 {
		return fmt.Errorf("%w: maxParticipationRate is required in (0,1], got %f", ErrValidation, p.MaxParticipationRate)
	}
	if p.Aggression < 0 || p.Aggression > 1 {
		return fmt.Errorf("%w: aggression must be in [0,1], got %f", ErrValidation, p.Aggression)
	}
	return nil
}

// IcebergParams 冰山参数
type IcebergParams struct {
	ClipSize   float64       // 单次露出数量
	SizeJitter float64       // 露出数量抖动比例 [0, 0.5]
	MinPause   time.Duration // 两次露出之间的最短停顿
	MaxPause   time.Duration
}

func (p IcebergParams) AlgoType() Type { return TypeIceberg }

func (p IcebergParams) Validate() error {
	if p.ClipSize < 1 {
		return fmt.Errorf("%w: clipSize is required and must be >= 1, got %f", ErrValidation, p.ClipSize)
	}
	if p.SizeJitter < 0 || p.SizeJitter > 0.5 {
		return fmt.Errorf("%w: sizeJitter must be in [0,0.5], got %f", ErrValidation, p.SizeJitter)
	}
	if p.MinPause < 0 || p.MaxPause < p.MinPause {
		return fmt.Errorf("%w: pause window invalid: [%s, %s]", ErrValidation, p.MinPause, p.MaxPause)
	}
	return nil
}

// ShortfallParams 执行缺口参数
type ShortfallParams struct {
	RiskAversion      float64 // 风险厌恶系数 (0, 10]
	ImpactCoefficient float64 // 冲击成本系数 (0, 1]
}

func (p ShortfallParams) AlgoType() Type { return TypeShortfall }

func (p ShortfallParams) Validate() error {
	if p.RiskAversion <= 0 || p.RiskAversion > 10 {
		return fmt.Errorf("%w: riskAversion is required in (0,10], got %f", ErrValidation, p.RiskAversion)
	}
	if p.ImpactCoefficient <= 0 || p.ImpactCoefficient > 1 {
		return fmt.Errorf("%w: impactCoefficient is required in (0,1], got %f", ErrValidation, p.ImpactCoefficient)
	}
	return nil
}

// POVParams 成交量参与参数
type POVParams struct {
	TargetRate float64 // 目标参与率 (0, 0.5]
}

func (p POVParams) AlgoType() Type { return TypePOV }

func (p POVParams) Validate() error {
	if p.TargetRate <= 0 || p.TargetRate > 0.5 {
		return fmt.Errorf("%w: targetRate is required in (0,0.5], got %f", ErrValidation, p.TargetRate)
	}
	return nil
}

// DefaultParams 返回各算法的默认参数。
func DefaultParams(t Type) (Params, error) {
	switch t {
	case TypeTWAP:
		return TWAPParams{Aggression: 0.3, TimeRandomization: 0.1}, nil
	case TypeVWAP:
		return VWAPParams{MaxParticipationRate: 0.15, Aggression: 0.4}, nil
	case TypeIceberg:
		return IcebergParams{ClipSize: 100, SizeJitter: 0.2, MinPause: 5 * time.Second, MaxPause: 20 * time.Second}, nil
	case TypeShortfall:
		return ShortfallParams{RiskAversion: 1.0, ImpactCoefficient: 0.1}, nil
	case TypePOV:
		return POVParams{TargetRate: 0.1}, nil
	default:
		return nil, fmt.Errorf("%w: unknown algorithm type %q", ErrValidation, t)
	}
}
