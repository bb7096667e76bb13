package processor

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"mdprocessor/config"
	"mdprocessor/internal/model"
)

var (
	testSvc     *Service
	testSvcErr  error
	testSvcOnce sync.Once
)

// newTestService builds a Service with no Redis or SQLite sink.
// Prometheus metrics register globally, so every test shares one
// Service instance.
func newTestService(t *testing.T) *Service {
	t.Helper()
	testSvcOnce.Do(func() {
		cfg := &config.Config{
			TickWSURL:           "ws://localhost:1/ws",
			Symbols:             "BTCUSD",
			Indicators:          "SMA:3,EMA:2",
			MetricsAddr:         ":0",
			SnapshotIntervalS:   1,
			CheckpointIntervalS: 60,
			DepthLevels:         10,
		}
		testSvc, testSvcErr = New(cfg)
	})
	if testSvcErr != nil {
		t.Fatalf("New: %v", testSvcErr)
	}
	return testSvc
}

func TestService_Pipeline(t *testing.T) {
	svc := newTestService(t)
	now := time.Now().UTC()

	// Depth updates lazily create a book per symbol.
	svc.applyDepth(model.DepthUpdate{Symbol: "BTCUSD", Side: model.Bid, Price: 50000, Qty: 1.5, TS: now})
	svc.applyDepth(model.DepthUpdate{Symbol: "BTCUSD", Side: model.Ask, Price: 50001, Qty: 1.0, TS: now})

	b, ok := svc.books["BTCUSD"]
	if !ok {
		t.Fatal("book not created for BTCUSD")
	}
	mid, ok := b.MidPrice()
	if !ok || mid != 50000.5 {
		t.Errorf("mid = %v, %v; want 50000.5, true", mid, ok)
	}

	// A non-finite update is rejected without touching the book.
	svc.applyDepth(model.DepthUpdate{Symbol: "BTCUSD", Side: model.Bid, Price: math.NaN(), Qty: 1, TS: now})
	if got := b.BidDepth(); got != 1 {
		t.Errorf("bid depth after NaN update = %d, want 1", got)
	}

	// Ticks drive the indicator engine.
	for i, p := range []float64{100, 101, 102} {
		svc.applyTick(model.Tick{Symbol: "BTCUSD", Price: p, TS: now.Add(time.Duration(i) * time.Second)})
	}
	results := svc.engine.Process("BTCUSD", 103, now.Add(3*time.Second))
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for _, r := range results {
		if !r.Ready {
			t.Errorf("%s not ready after 4 ticks", r.Name)
		}
	}

	// Depth updates for a second symbol get their own book.
	svc.applyDepth(model.DepthUpdate{Symbol: "ETHUSD", Side: model.Bid, Price: 3000, Qty: 2, TS: now})
	if len(svc.books) != 2 {
		t.Errorf("books = %d, want 2", len(svc.books))
	}
}

func TestService_ProcessLoopToleratesZeroIntervals(t *testing.T) {
	// Both cadence settings floor to a positive interval; zero or
	// negative values must not panic ticker construction.
	svc := newTestService(t)
	svc.cfg.SnapshotIntervalS = 0
	svc.cfg.CheckpointIntervalS = -1

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	svc.processLoop(ctx)
}
