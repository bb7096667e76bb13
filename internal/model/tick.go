package model

import "time"

// Tick represents a single trade print for one symbol.
// Prices are float64 throughout the pipeline; non-finite values are
// rejected at the book/indicator boundary, never stored.
type Tick struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Qty    float64   `json:"qty"`
	TS     time.Time `json:"ts"` // UTC timestamp
}

// Side labels one half of an order book.
type Side string

const (
	Bid Side = "bid"
	Ask Side = "ask"
)

// DepthUpdate is a single price-level change on one side of a book.
// Qty == 0 means the level was removed.
type DepthUpdate struct {
	Symbol string    `json:"symbol"`
	Side   Side      `json:"side"`
	Price  float64   `json:"price"`
	Qty    float64   `json:"qty"`
	TS     time.Time `json:"ts"`
}
