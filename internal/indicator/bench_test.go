package indicator

import (
	"testing"
	"time"
)

func BenchmarkSMA_Update(b *testing.B) {
	sma, _ := NewSMA(20)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sma.Update(50000 + float64(i%100))
	}
}

func BenchmarkEMA_Update(b *testing.B) {
	ema, _ := NewEMA(20)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ema.Update(50000 + float64(i%100))
	}
}

func BenchmarkRSI_Update(b *testing.B) {
	rsi, _ := NewRSI(14)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rsi.Update(50000 + float64(i%100))
	}
}

func BenchmarkMACD_Update(b *testing.B) {
	macd, _ := NewMACD(12, 26, 9)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		macd.Update(50000 + float64(i%100))
	}
}

func BenchmarkBollinger_Update(b *testing.B) {
	bb, _ := NewBollingerBands(20, 2.0)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bb.Update(50000 + float64(i%100))
	}
}

func BenchmarkEngine_ProcessFiveIndicators(b *testing.B) {
	e, _ := NewEngine(testConfigs())
	ts := time.Now()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Process("BTCUSD", 50000+float64(i%100), ts)
	}
}
