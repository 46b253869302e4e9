package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"algo-engine-go/algo"
	"algo-engine-go/infrastructure/logger"
	"algo-engine-go/market"
	"algo-engine-go/order"
	"algo-engine-go/sim"
)

func newTestEngine(t *testing.T, cfg Config) (*Engine, *market.Store) {
	t.Helper()

	st := market.NewStore()
	st.Register(market.Snapshot{
		Symbol: "EUR_USD",
		Price: market.PriceData{
			Bid:  1.0999,
			Ask:  1.1001,
			Last: 1.1000,
			VWAP: 1.1000,
		},
		Volume: market.VolumeData{Total: 100_000, Average: 1000},
		Micro:  market.Microstructure{SpreadBps: 1.8, Depth: 1000, Volatility: 0.002},
	})

	log, err := logger.New(logger.Config{Level: "error", Outputs: []string{"stdout"}, Format: "json"})
	require.NoError(t, err)

	simulator := sim.NewSimulator(st, sim.DefaultFeeSchedule(), rand.New(rand.NewSource(17)))
	e := New(cfg, log, st, simulator, WithRand(rand.New(rand.NewSource(17))))
	require.NoError(t, e.Start())
	t.Cleanup(e.Stop)
	return e, st
}

func fastSchedule(intervals int, interval time.Duration) *order.Schedule {
	now := time.Now()
	return &order.Schedule{
		StartTime:        now,
		EndTime:          now.Add(time.Hour),
		Intervals:        intervals,
		IntervalDuration: interval,
	}
}

func waitTerminal(t *testing.T, e *Engine, id string, timeout time.Duration) order.View {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		v, err := e.Get(id)
		require.NoError(t, err)
		switch v.Status {
		case order.StatusCompleted, order.StatusCancelled, order.StatusFailed:
			return v
		}
		time.Sleep(5 * time.Millisecond)
	}
	v, _ := e.Get(id)
	t.Fatalf("order %s not terminal within %s, status %s", id, timeout, v.Status)
	return order.View{}
}

func TestTWAPOrderRunsToCompletion(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	v, err := e.Submit(SubmitRequest{
		Symbol:   "EUR_USD",
		Side:     order.SideBuy,
		Quantity: 10_000,
		Algo:     algo.TypeTWAP,
		Params:   algo.TWAPParams{Aggression: 0.3},
		Schedule: fastSchedule(10, time.Millisecond),
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, v.Status)

	final := waitTerminal(t, e, v.ID, 5*time.Second)
	assert.Equal(t, order.StatusCompleted, final.Status)
	assert.Equal(t, 10_000.0, final.ExecutedQuantity)
	assert.Equal(t, 0.0, final.RemainingQuantity)
	assert.Len(t, final.Children, 10, "one child per interval")
	for _, c := range final.Children {
		assert.Equal(t, order.ChildFilled, c.Status)
	}
	assert.Greater(t, final.AveragePrice, 0.0)
	assert.Greater(t, final.Performance.Commission, 0.0)
}

func TestMarketOrderSkipsLimitProtection(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	v, err := e.Submit(SubmitRequest{
		Symbol:   "EUR_USD",
		Side:     order.SideBuy,
		Type:     order.TypeMarket,
		Quantity: 1000,
		Algo:     algo.TypeTWAP,
		Params:   algo.TWAPParams{Aggression: 0}, // 被动限价在买一，市价单应忽略它
		Schedule: fastSchedule(5, time.Millisecond),
	})
	require.NoError(t, err)

	final := waitTerminal(t, e, v.ID, 5*time.Second)
	require.Equal(t, order.StatusCompleted, final.Status)
	for _, c := range final.Children {
		require.Equal(t, order.ChildFilled, c.Status)
		assert.GreaterOrEqual(t, c.AveragePrice, 1.1001, "market buy pays at least the ask")
	}
}

func TestSubmitRejectsOversizedOrder(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	_, err := e.Submit(SubmitRequest{
		Symbol:   "EUR_USD",
		Side:     order.SideBuy,
		Quantity: 5_000_000, // TWAP 上限 1,000,000
		Algo:     algo.TypeTWAP,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, algo.ErrValidation)
	assert.Empty(t, e.ListActive(), "rejected order must not be registered")
}

func TestSubmitUnknownSymbol(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	_, err := e.Submit(SubmitRequest{
		Symbol:   "GBP_JPY",
		Side:     order.SideBuy,
		Quantity: 1000,
		Algo:     algo.TypeTWAP,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrNoMarketData)
}

func TestSubmitInvalidSide(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	_, err := e.Submit(SubmitRequest{
		Symbol:   "EUR_USD",
		Side:     order.Side("HOLD"),
		Quantity: 1000,
		Algo:     algo.TypeTWAP,
	})
	assert.ErrorIs(t, err, algo.ErrValidation)
}

func TestSubmitWhenStopped(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	e.Stop()
	_, err := e.Submit(SubmitRequest{
		Symbol:   "EUR_USD",
		Side:     order.SideBuy,
		Quantity: 1000,
		Algo:     algo.TypeTWAP,
	})
	assert.ErrorIs(t, err, ErrEngineStopped)
}

func TestCancelStopsExecution(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	v, err := e.Submit(SubmitRequest{
		Symbol:   "EUR_USD",
		Side:     order.SideBuy,
		Quantity: 10_000,
		Algo:     algo.TypeTWAP,
		Params:   algo.TWAPParams{},
		Schedule: fastSchedule(10, 200*time.Millisecond),
	})
	require.NoError(t, err)

	// 等第一个切片成交后撤单
	require.Eventually(t, func() bool {
		cur, err := e.Get(v.ID)
		return err == nil && cur.ExecutedQuantity > 0
	}, 3*time.Second, 5*time.Millisecond)

	require.NoError(t, e.Cancel(v.ID))
	final := waitTerminal(t, e, v.ID, 3*time.Second)
	assert.Equal(t, order.StatusCancelled, final.Status)
	assert.Greater(t, final.ExecutedQuantity, 0.0)
	assert.Less(t, final.ExecutedQuantity, 10_000.0)

	// 撤单后再撤返回不可撤销
	err = e.Cancel(v.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestCancelUnknownOrder(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	err := e.Cancel("algo-missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRiskRejectLimitFailsOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRiskRejects = 2
	e, _ := newTestEngine(t, cfg)

	risk := order.RiskControls{MaxImpactBps: 0.0001}
	v, err := e.Submit(SubmitRequest{
		Symbol:   "EUR_USD",
		Side:     order.SideBuy,
		Quantity: 10_000,
		Algo:     algo.TypeTWAP,
		Params:   algo.TWAPParams{},
		Schedule: fastSchedule(10, time.Millisecond),
		Risk:     &risk,
	})
	require.NoError(t, err)

	final := waitTerminal(t, e, v.ID, 5*time.Second)
	assert.Equal(t, order.StatusFailed, final.Status)
	assert.Zero(t, final.ExecutedQuantity)
	assert.NotEmpty(t, final.LastError)
	for _, c := range final.Children {
		assert.Equal(t, order.ChildRejected, c.Status)
		assert.NotEmpty(t, c.Reason)
	}
}

func TestStopCancelsActiveOrders(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	v, err := e.Submit(SubmitRequest{
		Symbol:   "EUR_USD",
		Side:     order.SideSell,
		Quantity: 10_000,
		Algo:     algo.TypeTWAP,
		Params:   algo.TWAPParams{},
		Schedule: fastSchedule(10, time.Minute),
	})
	require.NoError(t, err)

	e.Stop()
	final, err := e.Get(v.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, final.Status)
}

func TestWindowExpiryCompletesWithRemainder(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	now := time.Now()
	v, err := e.Submit(SubmitRequest{
		Symbol:   "EUR_USD",
		Side:     order.SideBuy,
		Quantity: 100_000,
		Algo:     algo.TypeTWAP,
		Params:   algo.TWAPParams{},
		Schedule: &order.Schedule{
			StartTime:        now,
			EndTime:          now.Add(120 * time.Millisecond),
			Intervals:        100,
			IntervalDuration: 50 * time.Millisecond,
		},
	})
	require.NoError(t, err)

	final := waitTerminal(t, e, v.ID, 3*time.Second)
	assert.Equal(t, order.StatusCompleted, final.Status, "expiry completes the order")
	assert.Greater(t, final.RemainingQuantity, 0.0, "remainder stays unexecuted after expiry")
}

func TestPauseAndResume(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	now := time.Now()
	v, err := e.Submit(SubmitRequest{
		Symbol:   "EUR_USD",
		Side:     order.SideBuy,
		Quantity: 1000,
		Algo:     algo.TypeTWAP,
		Params:   algo.TWAPParams{},
		Schedule: &order.Schedule{
			StartTime:        now.Add(100 * time.Millisecond),
			EndTime:          now.Add(time.Hour),
			Intervals:        2,
			IntervalDuration: time.Millisecond,
		},
	})
	require.NoError(t, err)
	require.NoError(t, e.Pause(v.ID))

	time.Sleep(300 * time.Millisecond)
	cur, err := e.Get(v.ID)
	require.NoError(t, err)
	assert.Zero(t, cur.ExecutedQuantity, "paused order must not execute")

	require.NoError(t, e.Resume(v.ID))
	final := waitTerminal(t, e, v.ID, 5*time.Second)
	assert.Equal(t, order.StatusCompleted, final.Status)
	assert.Equal(t, 1000.0, final.ExecutedQuantity)
}

func TestConcurrentOrderLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrentOrders = 1
	e, _ := newTestEngine(t, cfg)

	_, err := e.Submit(SubmitRequest{
		Symbol:   "EUR_USD",
		Side:     order.SideBuy,
		Quantity: 10_000,
		Algo:     algo.TypeTWAP,
		Schedule: fastSchedule(10, time.Minute),
	})
	require.NoError(t, err)

	_, err = e.Submit(SubmitRequest{
		Symbol:   "EUR_USD",
		Side:     order.SideBuy,
		Quantity: 10_000,
		Algo:     algo.TypeTWAP,
		Schedule: fastSchedule(10, time.Minute),
	})
	assert.ErrorIs(t, err, algo.ErrValidation)
}

func TestConcurrentOrderLimitIgnoresTerminalOrders(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrentOrders = 1
	e, _ := newTestEngine(t, cfg)

	v, err := e.Submit(SubmitRequest{
		Symbol:   "EUR_USD",
		Side:     order.SideBuy,
		Quantity: 1000,
		Algo:     algo.TypeTWAP,
		Schedule: fastSchedule(5, time.Millisecond),
	})
	require.NoError(t, err)
	waitTerminal(t, e, v.ID, 5*time.Second)

	// 终态母单仍可查询，但不再占用并发额度
	v2, err := e.Submit(SubmitRequest{
		Symbol:   "EUR_USD",
		Side:     order.SideBuy,
		Quantity: 1000,
		Algo:     algo.TypeTWAP,
		Schedule: fastSchedule(5, time.Millisecond),
	})
	require.NoError(t, err)
	waitTerminal(t, e, v2.ID, 5*time.Second)

	_, err = e.Get(v.ID)
	assert.NoError(t, err)
}

func TestStatsReflectTerminalOrders(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	v, err := e.Submit(SubmitRequest{
		Symbol:   "EUR_USD",
		Side:     order.SideBuy,
		Quantity: 1000,
		Algo:     algo.TypeTWAP,
		Params:   algo.TWAPParams{},
		Schedule: fastSchedule(5, time.Millisecond),
	})
	require.NoError(t, err)
	waitTerminal(t, e, v.ID, 5*time.Second)

	s := e.Stats()
	assert.Equal(t, int64(1), s.Submitted)
	assert.Equal(t, int64(1), s.Completed)
	assert.Equal(t, 1000.0, s.TotalVolume)
	assert.InDelta(t, 1.0, s.SuccessRate, 1e-9)
}
