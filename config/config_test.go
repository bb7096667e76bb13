package config

import (
	"testing"

	"mdprocessor/internal/indicator"
)

func TestParseIndicators(t *testing.T) {
	c := &Config{Indicators: "SMA:20, EMA:9,RSI:14,MACD:12:26:9,BB:20:2, bogus, SMA:x"}

	cfgs := c.ParseIndicators()
	if len(cfgs) != 5 {
		t.Fatalf("got %d configs, want 5: %+v", len(cfgs), cfgs)
	}

	want := []indicator.Config{
		{Kind: indicator.KindSMA, Period: 20},
		{Kind: indicator.KindEMA, Period: 9},
		{Kind: indicator.KindRSI, Period: 14},
		{Kind: indicator.KindMACD, Fast: 12, Slow: 26, Signal: 9},
		{Kind: indicator.KindBollinger, Period: 20, StdDev: 2.0},
	}
	for i, w := range want {
		if cfgs[i] != w {
			t.Errorf("config %d = %+v, want %+v", i, cfgs[i], w)
		}
	}
}

func TestParseIndicators_WrongArity(t *testing.T) {
	c := &Config{Indicators: "MACD:12:26,BB:20,SMA:1:2"}
	if got := c.ParseIndicators(); len(got) != 0 {
		t.Errorf("wrong-arity specs parsed: %+v", got)
	}
}

func TestParseSymbols(t *testing.T) {
	c := &Config{Symbols: " BTCUSD ,ETHUSD,,SOLUSD "}
	got := c.ParseSymbols()
	want := []string{"BTCUSD", "ETHUSD", "SOLUSD"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("symbol %d = %q, want %q", i, got[i], want[i])
		}
	}
}
