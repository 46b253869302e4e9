package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/shopspring/decimal"

	"algo-engine-go/algo"
	appconfig "algo-engine-go/config"
	"algo-engine-go/engine"
	"algo-engine-go/infrastructure/alert"
	"algo-engine-go/infrastructure/logger"
	"algo-engine-go/market"
	"algo-engine-go/metrics"
	"algo-engine-go/order"
	"algo-engine-go/sim"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	demoSymbol := flag.String("symbol", "", "启动后提交一个演示母单的标的（留空则不提交）")
	demoAlgo := flag.String("algo", "TWAP", "演示母单的算法：TWAP/VWAP/ICEBERG/IS/POV")
	demoSide := flag.String("side", "BUY", "演示母单方向：BUY/SELL")
	demoQty := flag.Float64("quantity", 10000, "演示母单数量")
	demoMinutes := flag.Int("minutes", 10, "演示母单执行窗口（分钟）")
	flag.Parse()

	cfg, err := appconfig.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	lg, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = lg.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 行情：每个标的一个合成行情源
	store := market.NewStore()
	for sym, sc := range cfg.Symbols {
		g := market.NewGenerator(store, market.GeneratorConfig{
			Symbol:       sym,
			InitialPrice: sc.InitialPrice,
			BaseVolume:   sc.BaseVolume,
			Volatility:   sc.Volatility,
			SpreadBps:    sc.SpreadBps,
		})
		interval := time.Duration(sc.TickIntervalMs) * time.Millisecond
		go g.Run(ctx, interval)
	}

	fees := sim.FeeSchedule{
		MakerBps: decimal.NewFromFloat(cfg.Fees.MakerBps),
		TakerBps: decimal.NewFromFloat(cfg.Fees.TakerBps),
		Minimum:  decimal.NewFromFloat(cfg.Fees.Minimum),
	}
	simulator := sim.NewSimulator(store, fees, nil)

	alerts := alert.NewManager(30*time.Second, alert.NewLogChannel("log", nil))
	eng := engine.New(cfg.Engine.ToEngine(), lg, store, simulator, engine.WithAlerts(alerts))
	if err := eng.Start(); err != nil {
		log.Fatalf("start engine failed: %v", err)
	}
	defer eng.Stop()
	applyRiskLimits(eng, cfg.Risk)

	if cfg.Metrics.Enabled {
		metrics.StartMetricsServer(cfg.Metrics.Addr)
		lg.Info("metrics server listening on " + cfg.Metrics.Addr)
	}

	// 配置热更新：风控模板改动即时生效
	watcher, err := appconfig.NewWatcher(*cfgPath, appconfig.DefaultWatcherConfig(),
		func(newCfg appconfig.AppConfig) {
			applyRiskLimits(eng, newCfg.Risk)
		},
		func(err error) {
			lg.LogError(err, map[string]interface{}{"component": "config_watcher"})
		})
	if err != nil {
		log.Fatalf("create config watcher failed: %v", err)
	}
	if err := watcher.Start(ctx); err != nil {
		log.Fatalf("start config watcher failed: %v", err)
	}
	defer func() { _ = watcher.Stop() }()

	if *demoSymbol != "" {
		go submitDemo(eng, lg, *demoSymbol, *demoAlgo, *demoSide, *demoQty, *demoMinutes)
	}

	// systemd 就绪通知与看门狗心跳
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		go func() {
			ticker := time.NewTicker(interval / 2)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
				}
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	lg.Info("shutting down on signal " + s.String())
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
}

func applyRiskLimits(eng *engine.Engine, r appconfig.RiskLimits) {
	if r == (appconfig.RiskLimits{}) {
		return
	}
	eng.SetRiskOverride(order.RiskControls{
		MaxSlippageBps:       r.MaxSlippageBps,
		MaxImpactBps:         r.MaxImpactBps,
		MaxParticipationRate: r.MaxParticipationRate,
		MaxPriceDeviation:    r.MaxPriceDeviation,
	})
}

// submitDemo 等行情预热后提交一个演示母单并跟踪到终态。
func submitDemo(eng *engine.Engine, lg *logger.Logger, symbol, algoName, side string, qty float64, minutes int) {
	time.Sleep(3 * time.Second)

	now := time.Now()
	horizon := time.Duration(minutes) * time.Minute
	intervals := minutes * 6 // 10 秒一个切片预算
	v, err := eng.Submit(engine.SubmitRequest{
		Symbol:   symbol,
		Side:     order.Side(side),
		Quantity: qty,
		Algo:     algo.Type(algoName),
		Schedule: &order.Schedule{
			StartTime:        now,
			EndTime:          now.Add(horizon),
			Intervals:        intervals,
			IntervalDuration: horizon / time.Duration(intervals),
		},
	})
	if err != nil {
		lg.LogError(err, map[string]interface{}{"component": "demo_order"})
		return
	}
	lg.LogOrder("demo_submitted", v.ID, map[string]interface{}{"symbol": symbol, "algo": algoName})

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		cur, err := eng.Get(v.ID)
		if err != nil {
			return
		}
		lg.LogOrder("demo_progress", v.ID, map[string]interface{}{
			"status":    cur.Status,
			"executed":  cur.ExecutedQuantity,
			"remaining": cur.RemainingQuantity,
			"avg_price": cur.AveragePrice,
			"slippage":  cur.Performance.SlippageBps,
		})
		switch cur.Status {
		case order.StatusCompleted, order.StatusCancelled, order.StatusFailed:
			return
		}
	}
}
