package market

import (
	"testing"
	"time"
)

func TestGeneratorSeedsSnapshot(t *testing.T) {
	st := NewStore()
	NewGenerator(st, GeneratorConfig{Symbol: "EUR_USD", InitialPrice: 1.10, Seed: 1})

	snap, err := st.Get("EUR_USD")
	if err != nil {
		t.Fatalf("snapshot not registered: %v", err)
	}
	if snap.Price.Bid >= snap.Price.Ask {
		t.Errorf("bid %f >= ask %f", snap.Price.Bid, snap.Price.Ask)
	}
	if snap.Price.Last != 1.10 {
		t.Errorf("last = %f, want 1.10", snap.Price.Last)
	}
}

func TestGeneratorTickKeepsQuotesSane(t *testing.T) {
	st := NewStore()
	g := NewGenerator(st, GeneratorConfig{
		Symbol:       "EUR_USD",
		InitialPrice: 1.10,
		BaseVolume:   1000,
		Volatility:   0.0005,
		SpreadBps:    5,
		Seed:         42,
	})

	now := time.Now()
	for i := 0; i < 200; i++ {
		g.Tick(now.Add(time.Duration(i) * time.Second))
	}

	snap, _ := st.Get("EUR_USD")
	if snap.Price.Bid <= 0 || snap.Price.Ask <= snap.Price.Bid {
		t.Fatalf("degenerate quote: bid=%f ask=%f", snap.Price.Bid, snap.Price.Ask)
	}
	if snap.Price.VWAP <= 0 {
		t.Errorf("vwap = %f, want > 0", snap.Price.VWAP)
	}
	if snap.Micro.Volatility <= 0 {
		t.Errorf("realized volatility = %f, want > 0", snap.Micro.Volatility)
	}
	if snap.Volume.Total <= 0 {
		t.Errorf("total volume = %f, want > 0", snap.Volume.Total)
	}
	if snap.Ind.RSI < 0 || snap.Ind.RSI > 100 {
		t.Errorf("RSI out of range: %f", snap.Ind.RSI)
	}
	if snap.Ind.BollingerUpper <= snap.Ind.BollingerLower {
		t.Errorf("bollinger bands inverted: [%f, %f]", snap.Ind.BollingerLower, snap.Ind.BollingerUpper)
	}
}

func TestGeneratorDeterministicWithSeed(t *testing.T) {
	run := func() Snapshot {
		st := NewStore()
		g := NewGenerator(st, GeneratorConfig{Symbol: "EUR_USD", InitialPrice: 1.10, Seed: 7})
		now := time.Unix(1700000000, 0)
		for i := 0; i < 50; i++ {
			g.Tick(now.Add(time.Duration(i) * time.Second))
		}
		snap, _ := st.Get("EUR_USD")
		return snap
	}

	a, b := run(), run()
	if a.Price.Last != b.Price.Last || a.Micro.Volatility != b.Micro.Volatility {
		t.Errorf("same seed produced different walks: %f vs %f", a.Price.Last, b.Price.Last)
	}
}
