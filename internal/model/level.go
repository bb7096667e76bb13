package model

import (
	"encoding/json"
	"time"
)

// PriceLevel is one (price, resting quantity) pair on a book side.
// Quantity is always > 0 for a stored level; a zero-quantity update
// removes the level instead of retaining a zero entry.
type PriceLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// BookSnapshot is a point-in-time copy of one book's depth plus the
// derived top-of-book statistics. Produced by book.Book.Snapshot and
// consumed by the redis/sqlite writers and the demo CLI.
type BookSnapshot struct {
	Symbol string       `json:"symbol"`
	TS     time.Time    `json:"ts"`
	Bids   []PriceLevel `json:"bids"` // best-to-worst (descending price)
	Asks   []PriceLevel `json:"asks"` // best-to-worst (ascending price)

	Mid       float64 `json:"mid,omitempty"`
	Spread    float64 `json:"spread,omitempty"`
	Imbalance float64 `json:"imbalance"`
	HasTop    bool    `json:"has_top"` // Mid/Spread defined (both sides non-empty)
}

// JSON returns the JSON-encoded snapshot (ignoring errors for hot-path usage).
func (s *BookSnapshot) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
