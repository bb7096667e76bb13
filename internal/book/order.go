// Package book implements an L2 order book for a single symbol: two
// price-ordered level stores (bid and ask side) plus the derived
// top-of-book, depth and imbalance queries.
//
// The book is designed for single-writer, single-reader-at-a-time use
// within one owning goroutine. Callers sharing a Book across goroutines
// must provide their own mutual exclusion; every operation here is
// synchronous and bounded by book depth.
package book

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotFinite rejects NaN and ±Inf inputs at the update boundary, so
// the sorted level stores never have to order a non-finite key.
// Negative zero needs no special case: -0.0 and 0.0 compare equal and
// collapse onto one level.
var ErrNotFinite = errors.New("value must be finite")

// checkFinite validates a price or quantity before it enters a store.
func checkFinite(label string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s %v", ErrNotFinite, label, v)
	}
	return nil
}
