package perf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"algo-engine-go/order"
)

func newTrackedOrder(t *testing.T, tr *Tracker, side order.Side) *order.Order {
	t.Helper()
	o := order.New(order.Spec{
		Symbol:        "EUR_USD",
		Side:          side,
		Type:          order.TypeLimit,
		TotalQuantity: 1000,
		Algo:          "TWAP",
		Schedule: order.Schedule{
			StartTime: time.Now(),
			EndTime:   time.Now().Add(time.Hour),
			Intervals: 10,
		},
		ArrivalPrice: 1.1000,
		Benchmark:    1.1000,
	})
	tr.Track(o.ID(), 50_000)
	require.NoError(t, o.Transition(order.StatusActive))
	return o
}

func TestRecordFillWeightedAverages(t *testing.T) {
	tr := NewTracker()
	o := newTrackedOrder(t, tr, order.SideBuy)

	c1 := o.AddChild(400, 1.1001, time.Now())
	require.NoError(t, o.ApplyFill(c1.ID, 400, 1.1001, 0.1))
	tr.RecordFill(o, 400, 2.0, 1.0, 51_000)

	c2 := o.AddChild(600, 1.1003, time.Now())
	require.NoError(t, o.ApplyFill(c2.ID, 600, 1.1003, 0.1))
	tr.RecordFill(o, 600, 4.0, 3.0, 52_000)

	v := o.Snapshot()
	// (2×400 + 4×600) / 1000 = 3.2
	assert.InDelta(t, 3.2, v.Performance.SlippageBps, 1e-9)
	// (1×400 + 3×600) / 1000 = 2.2
	assert.InDelta(t, 2.2, v.Performance.ImpactBps, 1e-9)
	// 1000 / (52000 - 50000) = 0.5
	assert.InDelta(t, 0.5, v.Performance.ParticipationRate, 1e-9)
	assert.Greater(t, v.Performance.ShortfallBps, 0.0, "buying above arrival is a positive shortfall")
}

func TestShortfallSign(t *testing.T) {
	assert.Greater(t, ShortfallBps(order.SideBuy, 1.1010, 1.1000), 0.0)
	assert.Less(t, ShortfallBps(order.SideBuy, 1.0990, 1.1000), 0.0)
	assert.Greater(t, ShortfallBps(order.SideSell, 1.0990, 1.1000), 0.0)
	assert.Less(t, ShortfallBps(order.SideSell, 1.1010, 1.1000), 0.0)
	assert.Zero(t, ShortfallBps(order.SideBuy, 0, 1.1))
}

func TestStatsCountersAndSuccessRate(t *testing.T) {
	tr := NewTracker()

	done := newTrackedOrder(t, tr, order.SideBuy)
	c := done.AddChild(1000, 1.1, time.Now())
	require.NoError(t, done.ApplyFill(c.ID, 1000, 1.1001, 0.5))
	tr.RecordFill(done, 1000, 1.0, 0.5, 51_000)
	require.NoError(t, done.Transition(order.StatusCompleted))
	tr.OnTerminal(done)

	gone := newTrackedOrder(t, tr, order.SideSell)
	require.NoError(t, gone.Transition(order.StatusCancelled))
	tr.OnTerminal(gone)

	live := newTrackedOrder(t, tr, order.SideBuy)
	_ = live

	s := tr.Stats()
	assert.Equal(t, int64(3), s.Submitted)
	assert.Equal(t, int64(1), s.Completed)
	assert.Equal(t, int64(1), s.Cancelled)
	assert.Equal(t, int64(0), s.Failed)
	assert.Equal(t, int64(1), s.Active)
	// 成功率按全部提交数计，未终态的母单也在分母里
	assert.InDelta(t, 1.0/3.0, s.SuccessRate, 1e-9)
	assert.Equal(t, 1000.0, s.TotalVolume)
	assert.InDelta(t, 1.0, s.AvgSlippageBps, 1e-9)
}

func TestForgetReleasesState(t *testing.T) {
	tr := NewTracker()
	o := newTrackedOrder(t, tr, order.SideBuy)
	tr.Forget(o.ID())

	tr.mu.Lock()
	_, ok := tr.orders[o.ID()]
	tr.mu.Unlock()
	assert.False(t, ok)
}

func TestRecordFillForUntrackedOrder(t *testing.T) {
	tr := NewTracker()
	o := newTrackedOrder(t, tr, order.SideBuy)
	tr.Forget(o.ID())

	c := o.AddChild(100, 1.1, time.Now())
	require.NoError(t, o.ApplyFill(c.ID, 100, 1.1, 0.1))
	// 未跟踪的订单按当前成交量重建基线，不崩溃
	tr.RecordFill(o, 100, 1.0, 0.5, 60_000)

	v := o.Snapshot()
	assert.InDelta(t, 1.0, v.Performance.SlippageBps, 1e-9)
}
