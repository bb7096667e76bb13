package book

import (
	"math"
	"testing"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f", label, got, want)
	}
}

// ────────────────────────────────────────────────────────────
// Reference scenario: two levels per side around 50000
// ────────────────────────────────────────────────────────────

func makeRefBook(t *testing.T) *Book {
	t.Helper()
	b := New("BTCUSD")
	for _, u := range []struct {
		bid        bool
		price, qty float64
	}{
		{true, 50000, 1.5},
		{true, 49999, 2.0},
		{false, 50001, 1.0},
		{false, 50002, 1.5},
	} {
		var err error
		if u.bid {
			err = b.UpdateBid(u.price, u.qty)
		} else {
			err = b.UpdateAsk(u.price, u.qty)
		}
		if err != nil {
			t.Fatalf("update(%v, %v): %v", u.price, u.qty, err)
		}
	}
	return b
}

func TestBook_ReferenceScenario(t *testing.T) {
	b := makeRefBook(t)

	bid, ok := b.BestBid()
	if !ok || bid.Price != 50000 || bid.Quantity != 1.5 {
		t.Errorf("BestBid = %+v ok=%v, want (50000, 1.5)", bid, ok)
	}
	ask, ok := b.BestAsk()
	if !ok || ask.Price != 50001 || ask.Quantity != 1.0 {
		t.Errorf("BestAsk = %+v ok=%v, want (50001, 1.0)", ask, ok)
	}

	mid, ok := b.MidPrice()
	if !ok {
		t.Fatal("MidPrice not defined")
	}
	assertClose(t, "mid", mid, 50000.5, 1e-9)

	spread, ok := b.Spread()
	if !ok {
		t.Fatal("Spread not defined")
	}
	assertClose(t, "spread", spread, 1.0, 1e-9)

	// (3.5 − 2.5) / 6.0
	assertClose(t, "imbalance", b.VolumeImbalance(), 1.0/6.0, 1e-9)

	top := b.TopBids(1)
	if len(top) != 1 || top[0].Price != 50000 || top[0].Quantity != 1.5 {
		t.Errorf("TopBids(1) = %+v, want [(50000, 1.5)]", top)
	}
}

func TestBook_EmptySides(t *testing.T) {
	b := New("ETHUSD")

	if _, ok := b.BestBid(); ok {
		t.Error("BestBid on empty book should be absent")
	}
	if _, ok := b.MidPrice(); ok {
		t.Error("MidPrice on empty book should be absent")
	}
	if _, ok := b.Spread(); ok {
		t.Error("Spread on empty book should be absent")
	}
	if _, ok := b.SpreadPercent(); ok {
		t.Error("SpreadPercent on empty book should be absent")
	}
	if got := b.VolumeImbalance(); got != 0 {
		t.Errorf("VolumeImbalance on empty book = %v, want neutral 0", got)
	}

	// One-sided book: top-of-book stats stay absent.
	b.UpdateBid(100, 1)
	if _, ok := b.MidPrice(); ok {
		t.Error("MidPrice with empty ask side should be absent")
	}
	if got := b.VolumeImbalance(); got != 1 {
		t.Errorf("all-bid imbalance = %v, want 1", got)
	}
}

func TestBook_CrossedBookSurfacesNegativeSpread(t *testing.T) {
	b := New("BTCUSD")
	b.UpdateBid(50010, 1)
	b.UpdateAsk(50000, 1)

	spread, ok := b.Spread()
	if !ok {
		t.Fatal("Spread not defined on crossed book")
	}
	if spread != -10 {
		t.Errorf("crossed spread = %v, want -10", spread)
	}
}

func TestBook_ImbalanceBounded(t *testing.T) {
	b := New("BTCUSD")
	b.UpdateBid(100, 5)
	b.UpdateBid(99, 3)
	b.UpdateAsk(101, 2)

	imb := b.VolumeImbalance()
	if imb < -1 || imb > 1 {
		t.Errorf("imbalance %v out of [-1, 1]", imb)
	}
	assertClose(t, "imbalance", imb, (8.0-2.0)/10.0, 1e-9)
}

func TestBook_SpreadPercent(t *testing.T) {
	b := New("BTCUSD")
	b.UpdateBid(50000, 1)
	b.UpdateAsk(50002, 1)

	pct, ok := b.SpreadPercent()
	if !ok {
		t.Fatal("SpreadPercent not defined")
	}
	assertClose(t, "spread %", pct, 2.0/50001.0*100, 1e-9)
}

func TestBook_RejectsNonFinite(t *testing.T) {
	b := New("BTCUSD")

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := b.UpdateBid(v, 1); err == nil {
			t.Errorf("UpdateBid(%v, 1): expected error", v)
		}
		if err := b.UpdateAsk(100, v); err == nil {
			t.Errorf("UpdateAsk(100, %v): expected error", v)
		}
	}
	if b.BidDepth() != 0 || b.AskDepth() != 0 {
		t.Error("rejected updates must not mutate the book")
	}
}

func TestBook_Snapshot(t *testing.T) {
	b := makeRefBook(t)

	snap := b.Snapshot(1)
	if snap.Symbol != "BTCUSD" {
		t.Errorf("symbol = %q", snap.Symbol)
	}
	if len(snap.Bids) != 1 || len(snap.Asks) != 1 {
		t.Fatalf("depth-1 snapshot has %d bids, %d asks", len(snap.Bids), len(snap.Asks))
	}
	if !snap.HasTop {
		t.Error("snapshot should have top-of-book stats")
	}
	assertClose(t, "snap mid", snap.Mid, 50000.5, 1e-9)
	assertClose(t, "snap spread", snap.Spread, 1.0, 1e-9)

	full := b.Snapshot(0)
	if len(full.Bids) != 2 || len(full.Asks) != 2 {
		t.Errorf("full snapshot has %d bids, %d asks", len(full.Bids), len(full.Asks))
	}
}
