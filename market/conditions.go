package market

// VolLevel 已实现波动率的分档。
type VolLevel int

const (
	VolLow VolLevel = iota
	VolNormal
	VolHigh
)

func (v VolLevel) String() string {
	switch v {
	case VolLow:
		return "LOW"
	case VolNormal:
		return "NORMAL"
	case VolHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LiqLevel 可用深度相对平均成交量的分档。
type LiqLevel int

const (
	LiqThin LiqLevel = iota
	LiqNormal
	LiqDeep
)

func (l LiqLevel) String() string {
	switch l {
	case LiqThin:
		return "THIN"
	case LiqNormal:
		return "NORMAL"
	case LiqDeep:
		return "DEEP"
	default:
		return "UNKNOWN"
	}
}

// MomentumDir 短/长均线漂移方向的分档。
type MomentumDir int

const (
	MomentumDown MomentumDir = iota
	MomentumFlat
	MomentumUp
)

func (m MomentumDir) String() string {
	switch m {
	case MomentumDown:
		return "DOWN"
	case MomentumFlat:
		return "FLAT"
	case MomentumUp:
		return "UP"
	default:
		return "UNKNOWN"
	}
}

// SpreadLevel 报价价差的分档。
type SpreadLevel int

const (
	SpreadTight SpreadLevel = iota
	SpreadModerate
	SpreadWide
)

func (s SpreadLevel) String() string {
	switch s {
	case SpreadTight:
		return "TIGHT"
	case SpreadModerate:
		return "MODERATE"
	case SpreadWide:
		return "WIDE"
	default:
		return "UNKNOWN"
	}
}

// Conditions 当前市场微观结构的分档视图，执行器据此调节切片。
type Conditions struct {
	Volatility VolLevel
	Liquidity  LiqLevel
	Momentum   MomentumDir
	Spread     SpreadLevel
}

// 分档阈值。波动率取近期中间价的已实现波动率，
// 动量取短/长均线的相对漂移。
const (
	volLowThreshold  = 0.001
	volHighThreshold = 0.004

	momentumThreshold = 0.0005

	spreadTightBps = 3.0
	spreadWideBps  = 12.0

	depthThinRatio = 0.5
	depthDeepRatio = 2.0
)

// Classify 把快照按四个维度分档。
func Classify(snap Snapshot) Conditions {
	c := Conditions{Volatility: VolNormal, Liquidity: LiqNormal, Momentum: MomentumFlat, Spread: SpreadModerate}

	switch {
	case snap.Micro.Volatility < volLowThreshold:
		c.Volatility = VolLow
	case snap.Micro.Volatility > volHighThreshold:
		c.Volatility = VolHigh
	}

	if snap.Volume.Average > 0 {
		ratio := snap.Micro.Depth / snap.Volume.Average
		switch {
		case ratio < depthThinRatio:
			c.Liquidity = LiqThin
		case ratio > depthDeepRatio:
			c.Liquidity = LiqDeep
		}
	}

	switch {
	case snap.Micro.Momentum > momentumThreshold:
		c.Momentum = MomentumUp
	case snap.Micro.Momentum < -momentumThreshold:
		c.Momentum = MomentumDown
	}

	switch {
	case snap.Micro.SpreadBps < spreadTightBps:
		c.Spread = SpreadTight
	case snap.Micro.SpreadBps > spreadWideBps:
		c.Spread = SpreadWide
	}

	return c
}
