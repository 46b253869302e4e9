// Package metrics provides Prometheus metrics for the execution engine
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OrdersSubmitted 提交的母单数量
	OrdersSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_orders_submitted_total",
		Help: "提交的算法母单数量",
	})

	// OrdersTerminal 按终态统计的母单数量
	OrdersTerminal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_orders_terminal_total",
		Help: "到达终态的母单数量",
	}, []string{"status"})

	// ChildOrders 按状态统计的子单数量
	ChildOrders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_child_orders_total",
		Help: "子单数量",
	}, []string{"status"})

	// SlicesGenerated 按算法统计的切片数量
	SlicesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_slices_total",
		Help: "各算法生成的切片数量",
	}, []string{"algo"})

	// RiskRejects 风控拒绝的切片数量
	RiskRejects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_risk_rejects_total",
		Help: "被风控拒绝的切片数量",
	})

	// VolumeExecuted 累计成交数量
	VolumeExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_volume_executed_total",
		Help: "累计成交数量",
	})

	// ActiveOrders 当前活跃母单数量
	ActiveOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "engine_active_orders",
		Help: "当前活跃母单数量",
	})

	// AvgSlippageBps 已完成订单的平均滑点
	AvgSlippageBps = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "engine_avg_slippage_bps",
		Help: "已完成订单的平均滑点（基点）",
	})

	// AvgImpactBps 已完成订单的平均市场冲击
	AvgImpactBps = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "engine_avg_impact_bps",
		Help: "已完成订单的平均市场冲击（基点）",
	})

	// AvgShortfallBps 已完成订单的平均执行缺口
	AvgShortfallBps = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "engine_avg_shortfall_bps",
		Help: "已完成订单的平均执行缺口（基点）",
	})

	// MarketLastPrice 各标的最新价
	MarketLastPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "engine_market_last_price",
		Help: "各标的最新成交价",
	}, []string{"symbol"})

	// MarketTicks 行情tick次数
	MarketTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_market_ticks_total",
		Help: "合成行情tick次数",
	})
)

// RecordFill 记录一次子单成交
func RecordFill(algo string, quantity float64) {
	ChildOrders.WithLabelValues("filled").Inc()
	SlicesGenerated.WithLabelValues(algo).Inc()
	VolumeExecuted.Add(quantity)
}

// RecordTerminal 记录母单终态
func RecordTerminal(status string) {
	OrdersTerminal.WithLabelValues(status).Inc()
	ActiveOrders.Dec()
}

// UpdateRollups 更新引擎级执行质量指标
func UpdateRollups(slippageBps, impactBps, shortfallBps float64) {
	AvgSlippageBps.Set(slippageBps)
	AvgImpactBps.Set(impactBps)
	AvgShortfallBps.Set(shortfallBps)
}

// StartMetricsServer 启动Prometheus指标服务器
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
