package model

import (
	"encoding/json"
	"time"
)

// IndicatorResult is one computed indicator value for one symbol.
// Value is the primary line (SMA/EMA/RSI value, MACD line, Bollinger
// middle band); composite indicators also fill their extra lines.
// Ready=false means the indicator is still warming up and Value is
// not meaningful yet.
type IndicatorResult struct {
	Name   string  `json:"name"` // e.g. "SMA_20", "MACD_12_26_9"
	Symbol string  `json:"symbol"`
	Value  float64 `json:"value"`

	// MACD only
	Signal    float64 `json:"signal,omitempty"`
	Histogram float64 `json:"histogram,omitempty"`

	// Bollinger Bands only
	Upper float64 `json:"upper,omitempty"`
	Lower float64 `json:"lower,omitempty"`

	Ready bool      `json:"ready"`
	Live  bool      `json:"live,omitempty"` // computed via Peek, state not advanced
	TS    time.Time `json:"ts"`
}

// JSON returns the JSON-encoded result (ignoring errors for hot-path usage).
func (r *IndicatorResult) JSON() []byte {
	b, _ := json.Marshal(r)
	return b
}
