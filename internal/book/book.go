package book

import (
	"time"

	"mdprocessor/internal/model"
)

// Book is the order book engine for one symbol. It owns a bid-side and
// an ask-side LevelStore and is mutated only through UpdateBid/UpdateAsk.
//
// No invariant is enforced across sides: a crossed book (best bid >=
// best ask) is permitted to occur transiently and surfaces as a
// negative Spread rather than a rejected update.
type Book struct {
	symbol     string
	bids, asks *LevelStore
	lastUpdate time.Time
}

// New creates an empty book for symbol.
func New(symbol string) *Book {
	return &Book{
		symbol: symbol,
		bids:   NewBidStore(),
		asks:   NewAskStore(),
	}
}

// Symbol returns the instrument symbol this book tracks.
func (b *Book) Symbol() string { return b.symbol }

// LastUpdate returns the timestamp of the last accepted update, zero if
// the book has never been touched.
func (b *Book) LastUpdate() time.Time { return b.lastUpdate }

// UpdateBid sets the bid quantity at price; qty <= 0 removes the level.
// Non-finite price or quantity is rejected before touching the store.
func (b *Book) UpdateBid(price, qty float64) error {
	return b.update(b.bids, price, qty)
}

// UpdateAsk sets the ask quantity at price; qty <= 0 removes the level.
func (b *Book) UpdateAsk(price, qty float64) error {
	return b.update(b.asks, price, qty)
}

func (b *Book) update(s *LevelStore, price, qty float64) error {
	if err := checkFinite("price", price); err != nil {
		return err
	}
	if err := checkFinite("qty", qty); err != nil {
		return err
	}
	s.Upsert(price, qty)
	b.lastUpdate = time.Now().UTC()
	return nil
}

// BestBid returns the highest bid level, ok=false when the side is empty.
func (b *Book) BestBid() (model.PriceLevel, bool) { return b.bids.Best() }

// BestAsk returns the lowest ask level, ok=false when the side is empty.
func (b *Book) BestAsk() (model.PriceLevel, bool) { return b.asks.Best() }

// MidPrice returns (best bid + best ask) / 2, ok=false if either side
// is empty.
func (b *Book) MidPrice() (float64, bool) {
	bid, okB := b.bids.Best()
	ask, okA := b.asks.Best()
	if !okB || !okA {
		return 0, false
	}
	return (bid.Price + ask.Price) / 2, true
}

// Spread returns best ask minus best bid, ok=false if either side is
// empty. Negative when the book is crossed.
func (b *Book) Spread() (float64, bool) {
	bid, okB := b.bids.Best()
	ask, okA := b.asks.Best()
	if !okB || !okA {
		return 0, false
	}
	return ask.Price - bid.Price, true
}

// SpreadPercent returns the spread as a percentage of the mid price,
// ok=false when either side is empty or mid <= 0.
func (b *Book) SpreadPercent() (float64, bool) {
	spread, ok := b.Spread()
	if !ok {
		return 0, false
	}
	mid, _ := b.MidPrice()
	if mid <= 0 {
		return 0, false
	}
	return spread / mid * 100, true
}

// VolumeImbalance returns (bid volume − ask volume) / (bid volume + ask
// volume) over the full depth of both sides. When both totals are zero
// it returns 0, a deliberate neutral default instead of an undefined
// ratio, so an empty book reads as "balanced" rather than erroring.
func (b *Book) VolumeImbalance() float64 {
	bidVol := b.bids.TotalVolume()
	askVol := b.asks.TotalVolume()
	total := bidVol + askVol
	if total <= 0 {
		return 0
	}
	return (bidVol - askVol) / total
}

// TotalBidVolume sums resting quantity on the bid side.
func (b *Book) TotalBidVolume() float64 { return b.bids.TotalVolume() }

// TotalAskVolume sums resting quantity on the ask side.
func (b *Book) TotalAskVolume() float64 { return b.asks.TotalVolume() }

// TopBids returns up to n bid levels, highest price first.
func (b *Book) TopBids(n int) []model.PriceLevel { return b.bids.Top(n) }

// TopAsks returns up to n ask levels, lowest price first.
func (b *Book) TopAsks(n int) []model.PriceLevel { return b.asks.Top(n) }

// BidDepth returns the number of resting bid levels.
func (b *Book) BidDepth() int { return b.bids.Len() }

// AskDepth returns the number of resting ask levels.
func (b *Book) AskDepth() int { return b.asks.Len() }

// Snapshot copies up to depth levels per side plus the derived
// top-of-book stats. depth <= 0 captures the full book.
func (b *Book) Snapshot(depth int) model.BookSnapshot {
	if depth <= 0 {
		depth = max(b.bids.Len(), b.asks.Len())
	}
	snap := model.BookSnapshot{
		Symbol:    b.symbol,
		TS:        time.Now().UTC(),
		Bids:      b.bids.Top(depth),
		Asks:      b.asks.Top(depth),
		Imbalance: b.VolumeImbalance(),
	}
	if mid, ok := b.MidPrice(); ok {
		spread, _ := b.Spread()
		snap.Mid = mid
		snap.Spread = spread
		snap.HasTop = true
	}
	return snap
}
