package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"text/tabwriter"
	"time"

	"algo-engine-go/algo"
	"algo-engine-go/engine"
	"algo-engine-go/infrastructure/logger"
	"algo-engine-go/market"
	"algo-engine-go/order"
	"algo-engine-go/sim"
)

// 一次性加速仿真：合成行情快速走动，五个算法各执行一个母单，
// 结束后打印执行质量报告。
func main() {
	symbol := flag.String("symbol", "EUR_USD", "仿真标的")
	price := flag.Float64("price", 1.1000, "初始价格")
	qty := flag.Float64("quantity", 10000, "每个母单的数量")
	seed := flag.Int64("seed", 42, "随机种子（可复现）")
	tick := flag.Duration("tick", 5*time.Millisecond, "行情tick间隔")
	slice := flag.Duration("slice", 20*time.Millisecond, "切片间隔")
	flag.Parse()

	lg, err := logger.New(logger.Config{Level: "warn", Outputs: []string{"stdout"}, Format: "console"})
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = lg.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := market.NewStore()
	gen := market.NewGenerator(store, market.GeneratorConfig{
		Symbol:       *symbol,
		InitialPrice: *price,
		BaseVolume:   1000,
		Volatility:   0.0005,
		SpreadBps:    5,
		Seed:         *seed,
	})
	go gen.Run(ctx, *tick)

	simulator := sim.NewSimulator(store, sim.DefaultFeeSchedule(), rand.New(rand.NewSource(*seed)))
	eng := engine.New(engine.DefaultConfig(), lg, store, simulator,
		engine.WithRand(rand.New(rand.NewSource(*seed))))
	if err := eng.Start(); err != nil {
		log.Fatalf("start engine failed: %v", err)
	}
	defer eng.Stop()

	// 行情预热，让指标就位
	time.Sleep(100 * *tick)

	runs := []struct {
		algo   algo.Type
		side   order.Side
		params algo.Params
	}{
		{algo.TypeTWAP, order.SideBuy, algo.TWAPParams{Aggression: 0.3, TimeRandomization: 0.1}},
		{algo.TypeVWAP, order.SideSell, algo.VWAPParams{MaxParticipationRate: 0.15, Aggression: 0.4}},
		{algo.TypeIceberg, order.SideBuy, algo.IcebergParams{ClipSize: *qty / 40, SizeJitter: 0.2, MinPause: *slice, MaxPause: 3 * *slice}},
		{algo.TypeShortfall, order.SideSell, algo.ShortfallParams{RiskAversion: 1.0, ImpactCoefficient: 0.1}},
		{algo.TypePOV, order.SideBuy, algo.POVParams{TargetRate: 0.2}},
	}

	ids := make([]string, 0, len(runs))
	for _, r := range runs {
		now := time.Now()
		v, err := eng.Submit(engine.SubmitRequest{
			Symbol:   *symbol,
			Side:     r.side,
			Quantity: *qty,
			Algo:     r.algo,
			Params:   r.params,
			Schedule: &order.Schedule{
				StartTime:        now,
				EndTime:          now.Add(time.Hour),
				Intervals:        40,
				IntervalDuration: *slice,
			},
		})
		if err != nil {
			log.Fatalf("submit %s failed: %v", r.algo, err)
		}
		ids = append(ids, v.ID)
	}

	deadline := time.Now().Add(2 * time.Minute)
	for _, id := range ids {
		for {
			v, err := eng.Get(id)
			if err != nil {
				log.Fatalf("get %s failed: %v", id, err)
			}
			if v.Status == order.StatusCompleted || v.Status == order.StatusCancelled || v.Status == order.StatusFailed {
				break
			}
			if time.Now().After(deadline) {
				_ = eng.Cancel(id)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	printReport(eng, ids)
}

func printReport(eng *engine.Engine, ids []string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ALGO\tSIDE\tSTATUS\tEXECUTED\tAVG PRICE\tSLIPPAGE(bps)\tIMPACT(bps)\tSHORTFALL(bps)\tCOMMISSION\tSLICES")
	for _, id := range ids {
		v, err := eng.Get(id)
		if err != nil {
			continue
		}
		filled := 0
		for _, c := range v.Children {
			if c.Status == order.ChildFilled {
				filled++
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f/%.0f\t%.5f\t%.2f\t%.2f\t%.2f\t%.4f\t%d/%d\n",
			v.Algo, v.Side, v.Status,
			v.ExecutedQuantity, v.TotalQuantity,
			v.AveragePrice,
			v.Performance.SlippageBps,
			v.Performance.ImpactBps,
			v.Performance.ShortfallBps,
			v.Performance.Commission,
			filled, len(v.Children))
	}
	_ = w.Flush()

	s := eng.Stats()
	fmt.Printf("\ncompleted %d/%d orders, success rate %.0f%%, volume %.0f, avg slippage %.2f bps\n",
		s.Completed, s.Submitted, s.SuccessRate*100, s.TotalVolume, s.AvgSlippageBps)
}
