package indicator

import (
	"context"
	"testing"
	"time"

	"mdprocessor/internal/model"
)

func testConfigs() []Config {
	return []Config{
		{Kind: KindSMA, Period: 3},
		{Kind: KindEMA, Period: 5},
		{Kind: KindRSI, Period: 14},
		{Kind: KindMACD, Fast: 12, Slow: 26, Signal: 9},
		{Kind: KindBollinger, Period: 20, StdDev: 2.0},
	}
}

func TestEngine_RejectsBadConfig(t *testing.T) {
	if _, err := NewEngine([]Config{{Kind: KindSMA, Period: 0}}); err == nil {
		t.Error("expected error for zero period")
	}
	if _, err := NewEngine([]Config{{Kind: Kind(42), Period: 5}}); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestEngine_ProcessAllKinds(t *testing.T) {
	e, err := NewEngine(testConfigs())
	if err != nil {
		t.Fatal(err)
	}

	var last []model.IndicatorResult
	for i := 0; i < 30; i++ {
		last = e.Process("BTCUSD", 50000+float64(i)*10, time.Now())
		if len(last) != 5 {
			t.Fatalf("tick %d: got %d results, want 5", i, len(last))
		}
	}

	byName := map[string]model.IndicatorResult{}
	for _, r := range last {
		byName[r.Name] = r
		if r.Symbol != "BTCUSD" {
			t.Errorf("%s: symbol = %q", r.Name, r.Symbol)
		}
	}

	for _, name := range []string{"SMA_3", "EMA_5", "RSI_14", "MACD_12_26_9", "BB_20"} {
		r, ok := byName[name]
		if !ok {
			t.Fatalf("missing result %q (have %v)", name, byName)
		}
		if !r.Ready {
			t.Errorf("%s not ready after 30 ticks", name)
		}
	}

	macd := byName["MACD_12_26_9"]
	assertClose(t, "engine MACD histogram", macd.Histogram, macd.Value-macd.Signal, 1e-9)

	bb := byName["BB_20"]
	if bb.Upper < bb.Value || bb.Value < bb.Lower {
		t.Errorf("BB ordering violated: %v / %v / %v", bb.Upper, bb.Value, bb.Lower)
	}
}

func TestEngine_SymbolsAreIndependent(t *testing.T) {
	e, _ := NewEngine([]Config{{Kind: KindSMA, Period: 2}})

	e.Process("AAA", 10, time.Now())
	e.Process("AAA", 20, time.Now())
	rb := e.Process("BBB", 1000, time.Now())

	if rb[0].Ready {
		t.Error("BBB warmed up from AAA's history")
	}
	ra := e.Process("AAA", 30, time.Now())
	assertClose(t, "AAA SMA", ra[0].Value, 25, 1e-9)
}

func TestEngine_PeekDoesNotAdvanceState(t *testing.T) {
	e, _ := NewEngine([]Config{{Kind: KindSMA, Period: 2}})

	if got := e.ProcessPeek("X", 10, time.Now()); got != nil {
		t.Errorf("peek before first Process = %v, want nil", got)
	}

	e.Process("X", 10, time.Now())
	e.Process("X", 20, time.Now())

	live := e.ProcessPeek("X", 100, time.Now())
	if len(live) != 1 || !live[0].Live {
		t.Fatalf("peek results = %+v", live)
	}
	assertClose(t, "peek value", live[0].Value, (20+100)/2.0, 1e-9)

	// State unchanged: next real update still averages against 20.
	r := e.Process("X", 30, time.Now())
	assertClose(t, "post-peek value", r[0].Value, 25, 1e-9)
}

func TestEngine_Run(t *testing.T) {
	e, _ := NewEngine([]Config{{Kind: KindEMA, Period: 2}})

	tickCh := make(chan model.Tick, 10)
	resultCh := make(chan model.IndicatorResult, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		e.Run(ctx, tickCh, resultCh)
		close(done)
	}()

	tickCh <- model.Tick{Symbol: "BTCUSD", Price: 10, TS: time.Now()}
	tickCh <- model.Tick{Symbol: "BTCUSD", Price: 20, TS: time.Now()}

	r1 := <-resultCh
	r2 := <-resultCh
	assertClose(t, "run first", r1.Value, 10, 1e-9)
	assertClose(t, "run second", r2.Value, 2.0/3.0*20+1.0/3.0*10, 1e-6)

	close(tickCh)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after channel close")
	}
}
