package sim

import "github.com/shopspring/decimal"

// FeeSchedule 手续费表。费用计算走十进制定点数，
// 避免名义金额很大时的浮点累积误差。
type FeeSchedule struct {
	MakerBps decimal.Decimal // 被动成交费率（基点）
	TakerBps decimal.Decimal // 主动成交费率（基点）
	Minimum  decimal.Decimal // 单笔最低手续费
}

// DefaultFeeSchedule 返回默认费率：maker 0.5bps / taker 2bps。
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		MakerBps: decimal.NewFromFloat(0.5),
		TakerBps: decimal.NewFromFloat(2.0),
		Minimum:  decimal.NewFromFloat(0.01),
	}
}

var bpsDivisor = decimal.NewFromInt(10_000)

// Commission 按名义金额计算手续费，taker 表示本次成交穿越了价差。
func (f FeeSchedule) Commission(price, quantity float64, taker bool) float64 {
	rate := f.MakerBps
	if taker {
		rate = f.TakerBps
	}
	notional := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(quantity))
	fee := notional.Mul(rate).Div(bpsDivisor)
	if fee.LessThan(f.Minimum) {
		fee = f.Minimum
	}
	out, _ := fee.Round(8).Float64()
	return out
}
