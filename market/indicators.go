package market

import "math"

// SMACalculator 固定窗口的简单移动平均。
type SMACalculator struct {
	window int
	vals   []float64
}

func NewSMACalculator(window int) *SMACalculator {
	return &SMACalculator{window: window, vals: make([]float64, 0, window)}
}

func (c *SMACalculator) Add(v float64) {
	c.vals = append(c.vals, v)
	if len(c.vals) > c.window {
		c.vals = c.vals[1:]
	}
}

func (c *SMACalculator) Ready() bool { return len(c.vals) >= c.window }

func (c *SMACalculator) Value() float64 {
	if len(c.vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range c.vals {
		sum += v
	}
	return sum / float64(len(c.vals))
}

// StdDev 返回窗口内数值的标准差。
func (c *SMACalculator) StdDev() float64 {
	if len(c.vals) < 2 {
		return 0
	}
	mean := c.Value()
	var varSum float64
	for _, v := range c.vals {
		d := v - mean
		varSum += d * d
	}
	return math.Sqrt(varSum / float64(len(c.vals)))
}

// EMACalculator 指数移动平均。
type EMACalculator struct {
	alpha  float64
	value  float64
	primed bool
}

func NewEMACalculator(period int) *EMACalculator {
	return &EMACalculator{alpha: 2.0 / (float64(period) + 1.0)}
}

func (c *EMACalculator) Add(v float64) {
	if !c.primed {
		c.value = v
		c.primed = true
		return
	}
	c.value = c.value*(1-c.alpha) + v*c.alpha
}

func (c *EMACalculator) Value() float64 { return c.value }

// MACDCalculator 计算 MACD（EMA12 - EMA26）及 EMA9 信号线。
type MACDCalculator struct {
	fast   *EMACalculator
	slow   *EMACalculator
	signal *EMACalculator
}

func NewMACDCalculator() *MACDCalculator {
	return &MACDCalculator{
		fast:   NewEMACalculator(12),
		slow:   NewEMACalculator(26),
		signal: NewEMACalculator(9),
	}
}

func (c *MACDCalculator) Add(price float64) {
	c.fast.Add(price)
	c.slow.Add(price)
	c.signal.Add(c.fast.Value() - c.slow.Value())
}

func (c *MACDCalculator) Value() (macd, signal float64) {
	return c.fast.Value() - c.slow.Value(), c.signal.Value()
}

// RSICalculator 窗口化的相对强弱指标。
type RSICalculator struct {
	period int
	prev   float64
	gains  []float64
	losses []float64
}

func NewRSICalculator(period int) *RSICalculator {
	return &RSICalculator{
		period: period,
		gains:  make([]float64, 0, period),
		losses: make([]float64, 0, period),
	}
}

func (c *RSICalculator) Add(price float64) {
	if c.prev == 0 {
		c.prev = price
		return
	}
	change := price - c.prev
	c.prev = price
	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}
	c.gains = append(c.gains, gain)
	c.losses = append(c.losses, loss)
	if len(c.gains) > c.period {
		c.gains = c.gains[1:]
		c.losses = c.losses[1:]
	}
}

// Value 返回 [0, 100] 内的 RSI，数据不足时返回 50。
func (c *RSICalculator) Value() float64 {
	if len(c.gains) < 2 {
		return 50
	}
	var avgGain, avgLoss float64
	for i := range c.gains {
		avgGain += c.gains[i]
		avgLoss += c.losses[i]
	}
	avgGain /= float64(len(c.gains))
	avgLoss /= float64(len(c.losses))
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// BollingerCalculator 窗口化的布林带。
type BollingerCalculator struct {
	sma *SMACalculator
	k   float64
}

func NewBollingerCalculator(window int, k float64) *BollingerCalculator {
	return &BollingerCalculator{sma: NewSMACalculator(window), k: k}
}

func (c *BollingerCalculator) Add(price float64) { c.sma.Add(price) }

func (c *BollingerCalculator) Bands() (upper, lower float64) {
	mid := c.sma.Value()
	dev := c.sma.StdDev() * c.k
	return mid + dev, mid - dev
}

// VolatilityCalculator 用近期中间价的对数收益率计算已实现波动率。
type VolatilityCalculator struct {
	windowSize int
	prices     []float64
}

func NewVolatilityCalculator(windowSize int) *VolatilityCalculator {
	return &VolatilityCalculator{
		windowSize: windowSize,
		prices:     make([]float64, 0, windowSize),
	}
}

func (v *VolatilityCalculator) AddPrice(mid float64) {
	v.prices = append(v.prices, mid)
	if len(v.prices) > v.windowSize {
		v.prices = v.prices[1:]
	}
}

// RealizedVol 返回对数收益率的标准差，按观测数开方放大。
func (v *VolatilityCalculator) RealizedVol() float64 {
	if len(v.prices) < 2 {
		return 0
	}

	logReturns := make([]float64, 0, len(v.prices)-1)
	for i := 1; i < len(v.prices); i++ {
		if v.prices[i-1] > 0 {
			logReturns = append(logReturns, math.Log(v.prices[i]/v.prices[i-1]))
		}
	}
	if len(logReturns) < 1 {
		return 0
	}

	sum := 0.0
	for _, r := range logReturns {
		sum += r
	}
	mean := sum / float64(len(logReturns))

	sumSquaredDiff := 0.0
	for _, r := range logReturns {
		diff := r - mean
		sumSquaredDiff += diff * diff
	}
	variance := sumSquaredDiff / float64(len(logReturns))

	return math.Sqrt(variance) * math.Sqrt(float64(len(logReturns)))
}

func (v *VolatilityCalculator) IsReady() bool {
	return len(v.prices) >= 2
}
