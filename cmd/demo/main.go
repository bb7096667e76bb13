// cmd/demo: Offline walkthrough of the order book and indicator
// packages. No network or storage needed; useful as a smoke test and as
// living documentation of the APIs.
package main

import (
	"fmt"
	"log/slog"
	"time"

	"mdprocessor/internal/book"
	"mdprocessor/internal/indicator"
	"mdprocessor/internal/logger"
)

func main() {
	slg := logger.Init("demo", slog.LevelInfo)
	slg.Info("starting market data demo")

	demoOrderBook(slg)
	demoIndicators(slg)

	slg.Info("demo completed")
}

func demoOrderBook(slg *slog.Logger) {
	slg.Info("=== order book demo ===")

	b := book.New("BTCUSD")

	b.UpdateBid(50000.0, 1.5)
	b.UpdateBid(49999.0, 2.0)
	b.UpdateBid(49998.0, 1.0)

	b.UpdateAsk(50001.0, 1.0)
	b.UpdateAsk(50002.0, 1.5)
	b.UpdateAsk(50003.0, 2.0)

	slg.Info("book state", "symbol", b.Symbol())

	if lvl, ok := b.BestBid(); ok {
		slg.Info("best bid", "price", lvl.Price, "qty", lvl.Quantity)
	}
	if lvl, ok := b.BestAsk(); ok {
		slg.Info("best ask", "price", lvl.Price, "qty", lvl.Quantity)
	}
	if mid, ok := b.MidPrice(); ok {
		slg.Info("mid price", "mid", mid)
	}
	if spread, ok := b.Spread(); ok {
		slg.Info("spread", "abs", spread)
	}
	if pct, ok := b.SpreadPercent(); ok {
		slg.Info("spread percent", "pct", fmt.Sprintf("%.4f%%", pct))
	}
	slg.Info("volume imbalance", "imbalance", b.VolumeImbalance())

	for _, lvl := range b.TopBids(3) {
		slg.Info("top bid level", "price", lvl.Price, "qty", lvl.Quantity)
	}
	for _, lvl := range b.TopAsks(3) {
		slg.Info("top ask level", "price", lvl.Price, "qty", lvl.Quantity)
	}
}

func demoIndicators(slg *slog.Logger) {
	slg.Info("=== indicator demo ===")

	prices := []float64{
		50000.0, 50100.0, 50050.0, 50200.0, 50150.0,
		50300.0, 50250.0, 50400.0, 50350.0, 50500.0,
		50450.0, 50600.0, 50550.0, 50700.0, 50650.0,
		50800.0, 50750.0, 50900.0, 50850.0, 51000.0,
	}

	sma, _ := indicator.NewSMA(10)
	for i, p := range prices {
		sma.Update(p)
		if sma.Ready() {
			slg.Info("sma", "price", p, "value", round2(sma.Value()))
		} else {
			slg.Info("sma warming up", "price", p, "have", i+1, "need", 10)
		}
	}

	ema, _ := indicator.NewEMA(10)
	for _, p := range prices[:5] {
		ema.Update(p)
		slg.Info("ema", "price", p, "value", round2(ema.Value()))
	}

	rsi, _ := indicator.NewRSI(14)
	for _, p := range prices {
		rsi.Update(p)
		if rsi.Ready() {
			slg.Info("rsi", "price", p, "value", round2(rsi.Value()))
		}
	}

	macd, _ := indicator.NewMACD(12, 26, 9)
	for _, p := range prices {
		macd.Update(p)
		if macd.Ready() {
			line, signal, hist := macd.Lines()
			slg.Info("macd", "price", p,
				"macd", round2(line), "signal", round2(signal), "histogram", round2(hist))
		}
	}

	bb, _ := indicator.NewBollingerBands(10, 2)
	for _, p := range prices {
		bb.Update(p)
		if bb.Ready() {
			upper, middle, lower := bb.Bands()
			slg.Info("bollinger", "price", p,
				"upper", round2(upper), "middle", round2(middle), "lower", round2(lower))
		}
	}

	// The same series through the multi-symbol engine.
	eng, err := indicator.NewEngine([]indicator.Config{
		{Kind: indicator.KindSMA, Period: 10},
		{Kind: indicator.KindRSI, Period: 14},
	})
	if err != nil {
		slg.Error("engine init", "err", err)
		return
	}
	now := time.Now().UTC()
	var last []string
	for _, p := range prices {
		last = last[:0]
		for _, r := range eng.Process("BTCUSD", p, now) {
			if r.Ready {
				last = append(last, fmt.Sprintf("%s=%.2f", r.Name, r.Value))
			}
		}
	}
	slg.Info("engine final values", "results", last)
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
