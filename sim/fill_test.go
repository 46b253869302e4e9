package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"algo-engine-go/market"
	"algo-engine-go/order"
)

func newTestStore() *market.Store {
	st := market.NewStore()
	st.Register(market.Snapshot{
		Symbol: "EUR_USD",
		Price: market.PriceData{
			Bid:  1.0999,
			Ask:  1.1001,
			Last: 1.1000,
		},
		Volume: market.VolumeData{Total: 10_000, Average: 1000},
		Micro:  market.Microstructure{SpreadBps: 1.8, Depth: 1000},
	})
	return st
}

func newTestSimulator(st *market.Store) *Simulator {
	return NewSimulator(st, DefaultFeeSchedule(), rand.New(rand.NewSource(11)))
}

func TestExecuteUnknownSymbol(t *testing.T) {
	s := newTestSimulator(newTestStore())
	_, err := s.Execute(Request{Symbol: "GBP_USD", Side: order.SideBuy, Quantity: 100})
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrNoMarketData)
}

func TestExecuteRejectsNonPositiveQuantity(t *testing.T) {
	s := newTestSimulator(newTestStore())
	_, err := s.Execute(Request{Symbol: "EUR_USD", Side: order.SideBuy, Quantity: 0})
	assert.Error(t, err)
}

func TestBuyFillsAtOrAboveAsk(t *testing.T) {
	st := newTestStore()
	s := newTestSimulator(st)

	f, err := s.Execute(Request{Symbol: "EUR_USD", Side: order.SideBuy, Type: order.TypeMarket, Quantity: 100})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, f.Price, 1.1001, "buy market order pays at least the ask")
	assert.Greater(t, f.SlippageBps, 0.0)
	assert.Equal(t, 100.0, f.Quantity)
}

func TestSellFillsAtOrBelowBid(t *testing.T) {
	s := newTestSimulator(newTestStore())
	f, err := s.Execute(Request{Symbol: "EUR_USD", Side: order.SideSell, Type: order.TypeMarket, Quantity: 100})
	require.NoError(t, err)
	assert.LessOrEqual(t, f.Price, 1.0999)
}

func TestLimitPriceIsRespected(t *testing.T) {
	s := newTestSimulator(newTestStore())

	f, err := s.Execute(Request{Symbol: "EUR_USD", Side: order.SideBuy, Type: order.TypeLimit, Quantity: 5000, LimitPrice: 1.1001})
	require.NoError(t, err)
	assert.LessOrEqual(t, f.Price, 1.1001, "buy fill must not exceed the limit")

	f, err = s.Execute(Request{Symbol: "EUR_USD", Side: order.SideSell, Type: order.TypeLimit, Quantity: 5000, LimitPrice: 1.0999})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, f.Price, 1.0999, "sell fill must not undercut the limit")
}

func TestImpactGrowsWithSize(t *testing.T) {
	snap := market.Snapshot{
		Micro:  market.Microstructure{SpreadBps: 2},
		Volume: market.VolumeData{Average: 1000},
	}
	small := ImpactEstimate(snap, 100)
	large := ImpactEstimate(snap, 10_000)
	assert.Greater(t, large, small)
	assert.LessOrEqual(t, large, maxImpactBps)

	// 超大切片撞到冲击上限
	huge := ImpactEstimate(snap, 100_000_000)
	assert.Equal(t, maxImpactBps, huge)
}

func TestFillWritesBackToStore(t *testing.T) {
	st := newTestStore()
	s := newTestSimulator(st)

	before, err := st.Get("EUR_USD")
	require.NoError(t, err)

	f, err := s.Execute(Request{Symbol: "EUR_USD", Side: order.SideBuy, Type: order.TypeMarket, Quantity: 250})
	require.NoError(t, err)

	after, err := st.Get("EUR_USD")
	require.NoError(t, err)
	assert.Equal(t, before.Volume.Total+250, after.Volume.Total)
	assert.Equal(t, f.Price, after.Price.Last)
	assert.False(t, after.UpdatedAt.Before(before.UpdatedAt))
}

func TestCommissionDecimalMath(t *testing.T) {
	fees := DefaultFeeSchedule()

	// taker 2bps: 1.10 × 100000 × 0.0002 = 22
	got := fees.Commission(1.10, 100_000, true)
	assert.InDelta(t, 22.0, got, 1e-9)

	// maker 0.5bps: 1.10 × 100000 × 0.00005 = 5.5
	got = fees.Commission(1.10, 100_000, false)
	assert.InDelta(t, 5.5, got, 1e-9)

	// 小单触发最低手续费
	got = fees.Commission(1.10, 1, true)
	assert.InDelta(t, 0.01, got, 1e-9)
}

func TestSlippageWithinModelBounds(t *testing.T) {
	s := newTestSimulator(newTestStore())
	for i := 0; i < 50; i++ {
		f, err := s.Execute(Request{Symbol: "EUR_USD", Side: order.SideBuy, Type: order.TypeMarket, Quantity: 100})
		require.NoError(t, err)
		// 成交价和 VWAP 基准都落在报价 ± 半价差 + 冲击 + 噪声内
		bound := f.ImpactBps + slippageNoiseBps + 2
		assert.LessOrEqual(t, f.SlippageBps, bound, "iteration %d", i)
		assert.GreaterOrEqual(t, f.SlippageBps, -bound, "iteration %d", i)
	}
}

func TestSlippageAnchorsOnVWAPBenchmark(t *testing.T) {
	st := market.NewStore()
	st.Register(market.Snapshot{
		Symbol: "EUR_USD",
		Price: market.PriceData{
			Bid:  1.0999,
			Ask:  1.1001,
			Last: 1.1000,
			VWAP: 1.0950,
		},
		Volume: market.VolumeData{Total: 10_000, Average: 1000},
		Micro:  market.Microstructure{SpreadBps: 1.8, Depth: 1000},
	})
	s := newTestSimulator(st)

	f, err := s.Execute(Request{Symbol: "EUR_USD", Side: order.SideBuy, Type: order.TypeMarket, Quantity: 100})
	require.NoError(t, err)
	want := (f.Price - 1.0950) / 1.0950 * 10_000
	assert.InDelta(t, want, f.SlippageBps, 1e-9, "slippage is measured against the VWAP benchmark")
}
