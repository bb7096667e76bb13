package book

import (
	"github.com/google/btree"

	"mdprocessor/internal/model"
)

// btreeDegree is the B-tree branching factor for level storage.
const btreeDegree = 16

// LevelStore is an ordered price→quantity map for one book side.
// The tree is ordered best-to-worst (descending price for bids,
// ascending for asks), so the best level is always the tree minimum.
// At most one level exists per distinct price.
type LevelStore struct {
	tree *btree.BTreeG[model.PriceLevel]
	less btree.LessFunc[model.PriceLevel]

	// Cached extremum, invalidated lazily when the best price is removed.
	best   model.PriceLevel
	bestOK bool
}

// NewBidStore creates a store ordered highest-price-first.
func NewBidStore() *LevelStore {
	less := func(a, b model.PriceLevel) bool { return a.Price > b.Price }
	return &LevelStore{tree: btree.NewG(btreeDegree, less), less: less}
}

// NewAskStore creates a store ordered lowest-price-first.
func NewAskStore() *LevelStore {
	less := func(a, b model.PriceLevel) bool { return a.Price < b.Price }
	return &LevelStore{tree: btree.NewG(btreeDegree, less), less: less}
}

// Upsert inserts or replaces the level at price when qty > 0, and
// removes any level at price when qty <= 0 (absence is not an error).
// Inputs are assumed finite; Book validates at its boundary.
func (s *LevelStore) Upsert(price, qty float64) {
	lvl := model.PriceLevel{Price: price, Quantity: qty}
	if qty > 0 {
		s.tree.ReplaceOrInsert(lvl)
		// Only a valid cache may be updated in place. While it is
		// invalid the tree minimum is unknown, so seeding it from the
		// inserted level would mark a worse price as best; Best()
		// re-derives from the tree instead.
		if s.bestOK && (s.less(lvl, s.best) || lvl.Price == s.best.Price) {
			s.best = lvl
		}
		return
	}
	if _, removed := s.tree.Delete(lvl); removed && s.bestOK && price == s.best.Price {
		s.bestOK = false
	}
}

// Best returns the extremal level (highest bid / lowest ask), or
// ok=false when the side is empty. O(1) while the cached extremum is
// valid, O(log n) to re-derive it after the best level was removed.
func (s *LevelStore) Best() (model.PriceLevel, bool) {
	if s.bestOK {
		return s.best, true
	}
	lvl, ok := s.tree.Min()
	if ok {
		s.best, s.bestOK = lvl, true
	}
	return lvl, ok
}

// Top returns up to n levels in best-to-worst order; n <= 0 yields nil.
func (s *LevelStore) Top(n int) []model.PriceLevel {
	if n <= 0 {
		return nil
	}
	out := make([]model.PriceLevel, 0, min(n, s.tree.Len()))
	s.tree.Ascend(func(lvl model.PriceLevel) bool {
		out = append(out, lvl)
		return len(out) < n
	})
	return out
}

// TotalVolume sums resting quantity across all levels. O(k) in the
// number of levels; callers needing O(1) can maintain a running sum
// on top of Upsert.
func (s *LevelStore) TotalVolume() float64 {
	var total float64
	s.tree.Ascend(func(lvl model.PriceLevel) bool {
		total += lvl.Quantity
		return true
	})
	return total
}

// Len returns the number of resting levels.
func (s *LevelStore) Len() int { return s.tree.Len() }
