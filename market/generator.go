package market

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// GeneratorConfig 单个标的的合成行情源配置。
type GeneratorConfig struct {
	Symbol       string
	InitialPrice float64
	BaseVolume   float64 // 单位tick的期望成交量
	Volatility   float64 // 单位tick收益率标准差
	SpreadBps    float64 // 报价价差（基点）
	Seed         int64
}

// Generator 为单个标的产生合成行情流：随机游走的中间价，
// 每个tick推导出成交量、微观结构与技术指标并写入 Store。
type Generator struct {
	cfg   GeneratorConfig
	store *Store
	rng   *rand.Rand

	mid float64

	vol     *VolatilityCalculator
	rsi     *RSICalculator
	macd    *MACDCalculator
	sma20   *SMACalculator
	sma50   *SMACalculator
	boll    *BollingerCalculator
	shortMA *SMACalculator
	longMA  *SMACalculator
	avgVol  *SMACalculator
	twap    *SMACalculator
}

// NewGenerator 向存储登记初始快照并返回可驱动的行情源。
func NewGenerator(store *Store, cfg GeneratorConfig) *Generator {
	if cfg.BaseVolume <= 0 {
		cfg.BaseVolume = 1000
	}
	if cfg.Volatility <= 0 {
		cfg.Volatility = 0.0005
	}
	if cfg.SpreadBps <= 0 {
		cfg.SpreadBps = 5
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	g := &Generator{
		cfg:     cfg,
		store:   store,
		rng:     rand.New(rand.NewSource(seed)),
		mid:     cfg.InitialPrice,
		vol:     NewVolatilityCalculator(120),
		rsi:     NewRSICalculator(14),
		macd:    NewMACDCalculator(),
		sma20:   NewSMACalculator(20),
		sma50:   NewSMACalculator(50),
		boll:    NewBollingerCalculator(20, 2),
		shortMA: NewSMACalculator(10),
		longMA:  NewSMACalculator(60),
		avgVol:  NewSMACalculator(30),
		twap:    NewSMACalculator(60),
	}

	half := cfg.InitialPrice * cfg.SpreadBps / 10000 / 2
	store.Register(Snapshot{
		Symbol: cfg.Symbol,
		Price: PriceData{
			Bid:   cfg.InitialPrice - half,
			Ask:   cfg.InitialPrice + half,
			Last:  cfg.InitialPrice,
			Open:  cfg.InitialPrice,
			Close: cfg.InitialPrice,
			VWAP:  cfg.InitialPrice,
			TWAP:  cfg.InitialPrice,
		},
		Volume: VolumeData{Average: cfg.BaseVolume},
		Micro: Microstructure{
			SpreadBps:  cfg.SpreadBps,
			Depth:      cfg.BaseVolume,
			Volatility: cfg.Volatility,
		},
		Ind:       Indicators{RSI: 50},
		UpdatedAt: time.Now(),
	})

	return g
}

// Tick 把合成行情向前推进一步。
func (g *Generator) Tick(now time.Time) {
	ret := g.rng.NormFloat64() * g.cfg.Volatility
	g.mid *= 1 + ret
	if g.mid <= 0 {
		g.mid = g.cfg.InitialPrice
	}

	// 价差随本tick收益率的绝对值略微走阔
	spreadBps := g.cfg.SpreadBps * (1 + 20*math.Abs(ret)/g.cfg.Volatility/10)
	half := g.mid * spreadBps / 10000 / 2
	bid := g.mid - half
	ask := g.mid + half

	tickVolume := g.cfg.BaseVolume * (0.5 + g.rng.Float64())
	bidShare := 0.35 + 0.3*g.rng.Float64()
	depth := g.cfg.BaseVolume * (0.5 + 2.5*g.rng.Float64())

	g.vol.AddPrice(g.mid)
	g.rsi.Add(g.mid)
	g.macd.Add(g.mid)
	g.sma20.Add(g.mid)
	g.sma50.Add(g.mid)
	g.boll.Add(g.mid)
	g.shortMA.Add(g.mid)
	g.longMA.Add(g.mid)
	g.avgVol.Add(tickVolume)
	g.twap.Add(g.mid)

	momentum := 0.0
	if g.longMA.Value() > 0 {
		momentum = (g.shortMA.Value() - g.longMA.Value()) / g.longMA.Value()
	}
	meanRev := 0.0
	if g.sma20.Value() > 0 {
		meanRev = (g.sma20.Value() - g.mid) / g.sma20.Value()
	}

	macd, signal := g.macd.Value()
	upper, lower := g.boll.Bands()

	_ = g.store.Apply(g.cfg.Symbol, func(snap *Snapshot) {
		snap.Price.Bid = bid
		snap.Price.Ask = ask
		snap.Price.Close = g.mid
		snap.Price.TWAP = g.twap.Value()

		snap.Volume.BidVolume += tickVolume * bidShare
		snap.Volume.AskVolume += tickVolume * (1 - bidShare)
		snap.Volume.Average = g.avgVol.Value()

		snap.Micro.SpreadBps = spreadBps
		snap.Micro.Depth = depth
		snap.Micro.Imbalance = 2*bidShare - 1
		snap.Micro.Volatility = g.vol.RealizedVol()
		snap.Micro.Momentum = momentum
		snap.Micro.MeanReversion = meanRev

		snap.Ind.RSI = g.rsi.Value()
		snap.Ind.MACD = macd
		snap.Ind.MACDSignal = signal
		snap.Ind.SMA20 = g.sma20.Value()
		snap.Ind.SMA50 = g.sma50.Value()
		snap.Ind.BollingerUpper = upper
		snap.Ind.BollingerLower = lower
	})

	// tick自身的市场成交量也计入滚动 VWAP 窗口
	_ = g.store.ApplyTrade(g.cfg.Symbol, g.mid, tickVolume, now)
}

// Run 按给定间隔持续tick，直到上下文取消。
func (g *Generator) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			g.Tick(t)
		}
	}
}
