package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"algo-engine-go/algo"
	"algo-engine-go/market"
	"algo-engine-go/metrics"
	"algo-engine-go/order"
	"algo-engine-go/sim"
)

// runOrder 是母单的专属调度循环：组装决策上下文、调用执行器、
// 过风控、交给模拟器成交，直到数量执行完、窗口到期、被撤销
// 或出现不可恢复的错误。
func (e *Engine) runOrder(m *managedOrder) {
	defer e.wg.Done()
	ord := m.ord

	if err := ord.Transition(order.StatusActive); err != nil {
		e.finish(m, order.StatusFailed, err)
		return
	}
	e.log.LogOrder("activated", ord.ID(), map[string]interface{}{"algo": ord.Algo()})

	schedule := ord.Snapshot().Schedule
	if wait := schedule.StartTime.Sub(e.clock.Now()); wait > 0 {
		if !e.sleep(m, wait) {
			e.finish(m, order.StatusCancelled, nil)
			return
		}
	}

	interval := 0
	for {
		select {
		case <-m.cancelChan:
			e.finish(m, order.StatusCancelled, nil)
			return
		default:
		}

		if m.paused.Load() {
			if !e.sleep(m, e.cfg.PausePollInterval) {
				e.finish(m, order.StatusCancelled, nil)
				return
			}
			continue
		}

		now := e.clock.Now()
		if now.After(schedule.EndTime) {
			// 窗口到期即完成，剩余数量不再执行
			e.finish(m, order.StatusCompleted, nil)
			return
		}
		if ord.Remaining() <= 0 {
			e.finish(m, order.StatusCompleted, nil)
			return
		}

		snap, err := e.store.Get(ord.Symbol())
		if err != nil {
			e.finish(m, order.StatusFailed, err)
			return
		}

		decision, err := m.exec.NextSlice(ord.Snapshot(), e.buildContext(m, snap, schedule, now, interval))
		if err != nil {
			e.finish(m, order.StatusFailed, err)
			return
		}

		if decision.Quantity > 0 {
			if failed := e.executeSlice(m, snap, decision, now); failed {
				return
			}
			interval++
		}

		wait := decision.Wait
		if wait <= 0 {
			wait = schedule.IntervalDuration
		}
		if wait <= 0 {
			wait = time.Second
		}
		if !e.sleep(m, wait) {
			e.finish(m, order.StatusCancelled, nil)
			return
		}
	}
}

// executeSlice 对单个切片做风控检查并模拟成交。
// 返回 true 表示母单已转入终态，调度循环应当退出。
func (e *Engine) executeSlice(m *managedOrder, snap market.Snapshot, d algo.Decision, now time.Time) bool {
	ord := m.ord
	qty := math.Min(d.Quantity, ord.Remaining())
	child := ord.AddChild(qty, d.LimitPrice, now)

	if reason := e.checkSliceRisk(ord, snap, qty, d.LimitPrice); reason != "" {
		_ = ord.RejectChild(child.ID, reason)
		metrics.RiskRejects.Inc()
		metrics.ChildOrders.WithLabelValues("rejected").Inc()
		e.log.LogRisk("slice_rejected", map[string]interface{}{
			"order_id": ord.ID(),
			"slice":    child.SliceIndex,
			"quantity": qty,
			"reason":   reason,
		})
		if e.alerts != nil {
			e.alerts.RiskReject(ord.ID(), reason)
		}

		if ord.Risk().EmergencyStop {
			e.finish(m, order.StatusFailed, fmt.Errorf("%w: emergency stop: %s", ErrRiskLimit, reason))
			return true
		}
		if int(m.violations.Add(1)) > e.cfg.MaxRiskRejects {
			e.finish(m, order.StatusFailed, fmt.Errorf("%w: reject limit reached: %s", ErrRiskLimit, reason))
			return true
		}
		return false
	}

	fill, err := e.sim.Execute(sim.Request{
		Symbol:     ord.Symbol(),
		Side:       ord.Side(),
		Type:       ord.Type(),
		Quantity:   qty,
		LimitPrice: d.LimitPrice,
	})
	if err != nil {
		// 行情缺失是硬错误，其余按拒绝处理继续执行
		_ = ord.RejectChild(child.ID, err.Error())
		metrics.ChildOrders.WithLabelValues("rejected").Inc()
		if isFatal(err) {
			e.finish(m, order.StatusFailed, err)
			return true
		}
		ord.SetError(err)
		return false
	}

	if err := ord.ApplyFill(child.ID, fill.Quantity, fill.Price, fill.Commission); err != nil {
		e.finish(m, order.StatusFailed, err)
		return true
	}

	after, _ := e.store.Get(ord.Symbol())
	e.tracker.RecordFill(ord, fill.Quantity, fill.SlippageBps, fill.ImpactBps, after.Volume.Total)
	metrics.RecordFill(ord.Algo(), fill.Quantity)
	metrics.MarketLastPrice.WithLabelValues(ord.Symbol()).Set(fill.Price)
	e.log.LogFill("child_filled", map[string]interface{}{
		"order_id": ord.ID(),
		"child_id": child.ID,
		"slice":    child.SliceIndex,
		"quantity": fill.Quantity,
		"price":    fill.Price,
		"slippage": fill.SlippageBps,
		"impact":   fill.ImpactBps,
	})

	// 滑点预算用尽时触发紧急停止
	v := ord.Snapshot()
	if limit := v.Risk.MaxSlippageBps; limit > 0 && v.Performance.SlippageBps > limit {
		ord.TripEmergencyStop()
		e.finish(m, order.StatusFailed, fmt.Errorf("%w: slippage %.2f > %.2f bps",
			ErrRiskLimit, v.Performance.SlippageBps, limit))
		return true
	}
	return false
}

// checkSliceRisk 下单前的切片级风控：事前冲击估计、参与率和
// 相对到达价的价格偏离。返回空串表示通过。
func (e *Engine) checkSliceRisk(ord *order.Order, snap market.Snapshot, qty, price float64) string {
	risk := ord.Risk()
	if risk.EmergencyStop {
		return "emergency stop engaged"
	}

	if risk.MaxImpactBps > 0 {
		if impact := sim.ImpactEstimate(snap, qty); impact > risk.MaxImpactBps {
			return fmt.Sprintf("impact estimate %.2f bps exceeds limit %.2f", impact, risk.MaxImpactBps)
		}
	}

	if risk.MaxParticipationRate > 0 && snap.Volume.Average > 0 {
		// 以近期平均成交速率折算出切片的瞬时参与率
		expected := snap.Volume.Average * 60
		if rate := qty / expected; rate > risk.MaxParticipationRate {
			return fmt.Sprintf("participation %.3f exceeds limit %.3f", rate, risk.MaxParticipationRate)
		}
	}

	v := ord.Snapshot()
	if risk.MaxPriceDeviation > 0 && v.ArrivalPrice > 0 && price > 0 {
		if dev := math.Abs(price-v.ArrivalPrice) / v.ArrivalPrice; dev > risk.MaxPriceDeviation {
			return fmt.Sprintf("price deviation %.4f exceeds limit %.4f", dev, risk.MaxPriceDeviation)
		}
	}
	return ""
}

// buildContext 组装执行器的决策上下文。
func (e *Engine) buildContext(m *managedOrder, snap market.Snapshot, schedule order.Schedule, now time.Time, interval int) algo.Context {
	ord := m.ord
	return algo.Context{
		Snapshot:       snap,
		Conditions:     market.Classify(snap),
		Executed:       ord.Executed(),
		Remaining:      ord.Remaining(),
		Elapsed:        now.Sub(schedule.StartTime),
		Horizon:        schedule.EndTime.Sub(schedule.StartTime),
		Interval:       interval,
		TotalIntervals: schedule.Intervals,
		ArrivalPrice:   ord.Snapshot().ArrivalPrice,
		BenchmarkPrice: ord.Snapshot().BenchmarkPrice,
		RiskViolations: int(m.violations.Load()),
	}
}

// finish 把母单转入终态并做一次性的收尾：取消未成交子单、
// 更新绩效汇总和指标。
func (e *Engine) finish(m *managedOrder, status order.Status, cause error) {
	ord := m.ord

	reason := string(status)
	if cause != nil {
		reason = cause.Error()
		ord.SetError(cause)
	}
	if n := ord.CancelPendingChildren(reason); n > 0 {
		metrics.ChildOrders.WithLabelValues("cancelled").Add(float64(n))
	}
	if err := ord.Transition(status); err != nil {
		e.log.LogError(err, map[string]interface{}{"order_id": ord.ID(), "target": status})
		return
	}

	e.tracker.OnTerminal(ord)
	e.tracker.Forget(ord.ID())
	metrics.RecordTerminal(string(status))

	s := e.tracker.Stats()
	metrics.UpdateRollups(s.AvgSlippageBps, s.AvgImpactBps, s.AvgShortfallBps)

	v := ord.Snapshot()
	fields := map[string]interface{}{
		"status":    status,
		"executed":  v.ExecutedQuantity,
		"remaining": v.RemainingQuantity,
		"avg_price": v.AveragePrice,
		"slippage":  v.Performance.SlippageBps,
		"shortfall": v.Performance.ShortfallBps,
	}
	if cause != nil {
		fields["cause"] = cause.Error()
	}
	e.log.LogOrder("terminal", ord.ID(), fields)

	if status == order.StatusFailed && e.alerts != nil {
		e.alerts.OrderFailed(ord.ID(), reason)
	}
}

// sleep 等待给定时长，撤销或引擎停止时立即返回 false。
func (e *Engine) sleep(m *managedOrder, d time.Duration) bool {
	select {
	case <-m.cancelChan:
		return false
	case <-e.stopChan:
		return false
	case <-e.clock.After(d):
		return true
	}
}

func isFatal(err error) bool {
	return errors.Is(err, market.ErrNoMarketData)
}
