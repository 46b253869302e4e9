package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordFill(t *testing.T) {
	ChildOrders.Reset()
	SlicesGenerated.Reset()

	RecordFill("TWAP", 150)
	RecordFill("TWAP", 50)

	if got := testutil.ToFloat64(ChildOrders.WithLabelValues("filled")); got != 2 {
		t.Errorf("Expected ChildOrders[filled] to be 2, got %f", got)
	}
	if got := testutil.ToFloat64(SlicesGenerated.WithLabelValues("TWAP")); got != 2 {
		t.Errorf("Expected SlicesGenerated[TWAP] to be 2, got %f", got)
	}
}

func TestRecordTerminal(t *testing.T) {
	OrdersTerminal.Reset()
	ActiveOrders.Set(3)

	RecordTerminal("completed")

	if got := testutil.ToFloat64(OrdersTerminal.WithLabelValues("completed")); got != 1 {
		t.Errorf("Expected OrdersTerminal[completed] to be 1, got %f", got)
	}
	if got := testutil.ToFloat64(ActiveOrders); got != 2 {
		t.Errorf("Expected ActiveOrders to be 2, got %f", got)
	}
}

func TestUpdateRollups(t *testing.T) {
	UpdateRollups(4.5, 2.1, 8.0)

	if got := testutil.ToFloat64(AvgSlippageBps); got != 4.5 {
		t.Errorf("Expected AvgSlippageBps to be 4.5, got %f", got)
	}
	if got := testutil.ToFloat64(AvgImpactBps); got != 2.1 {
		t.Errorf("Expected AvgImpactBps to be 2.1, got %f", got)
	}
	if got := testutil.ToFloat64(AvgShortfallBps); got != 8.0 {
		t.Errorf("Expected AvgShortfallBps to be 8.0, got %f", got)
	}
}
