package market

import "time"

// PriceData 标的的报价与参考价。
type PriceData struct {
	Bid   float64
	Ask   float64
	Last  float64
	Open  float64
	High  float64
	Low   float64
	Close float64
	VWAP  float64
	TWAP  float64
}

// VolumeData 成交量汇总。
type VolumeData struct {
	Total     float64
	BidVolume float64
	AskVolume float64
	Average   float64 // 滚动的单位tick平均成交量
}

// Microstructure 从行情推导的微观结构信号。
type Microstructure struct {
	SpreadBps     float64
	Depth         float64
	Imbalance     float64 // 盘口不平衡度，[-1, 1]
	Volatility    float64 // 近期中间价的已实现波动率
	Momentum      float64 // 短均线相对长均线的漂移
	MeanReversion float64 // 向 SMA20 回归的拉力，为正表示价格低于均值
}

// Indicators 价格序列推导的技术指标。
type Indicators struct {
	RSI            float64
	MACD           float64
	MACDSignal     float64
	SMA20          float64
	SMA50          float64
	BollingerUpper float64
	BollingerLower float64
}

// Snapshot 单个标的的完整行情状态。读取方拿到的是值拷贝，
// 只有行情源和成交模拟器通过 Store 改写存储的实例。
type Snapshot struct {
	Symbol    string
	Price     PriceData
	Volume    VolumeData
	Micro     Microstructure
	Ind       Indicators
	UpdatedAt time.Time
}

// Mid 返回报价中间价，任一侧缺失时返回 0。
func (s Snapshot) Mid() float64 {
	if s.Price.Bid <= 0 || s.Price.Ask <= 0 {
		return 0
	}
	return (s.Price.Bid + s.Price.Ask) / 2
}
