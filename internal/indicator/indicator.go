// Package indicator provides streaming technical indicators over a
// price series: SMA, EMA, RSI, MACD and Bollinger Bands.
//
// Each indicator is an independent state machine fed one price at a
// time. It starts in a warm-up phase where Ready() is false and Value()
// is not meaningful; once enough history has accumulated, Ready()
// becomes true and stays true for the lifetime of the instance. There
// is no reset short of constructing a new instance.
//
// Indicators are allocation-free on the update path and designed for
// single-goroutine ownership; callers sharing an instance across
// goroutines must serialize access externally.
package indicator

import (
	"errors"
	"fmt"
	"strconv"
)

// Configuration errors, surfaced at construction time only. Valid
// numeric input never fails: repeated identical prices, outliers and
// crossed series all produce defined values.
var (
	ErrInvalidPeriod = errors.New("indicator period must be >= 1")
	ErrUnknownKind   = errors.New("unknown indicator kind")
)

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator kind name (e.g. "SMA", "MACD").
	Name() string

	// Update feeds the next price and recalculates.
	Update(price float64)

	// Value returns the current primary value (MACD line for MACD,
	// middle band for Bollinger). Returns 0 while not Ready.
	Value() float64

	// Ready reports whether enough history has accumulated for Value
	// to be meaningful. Once true it never reverts.
	Ready() bool

	// Peek computes what Value() would be if price were fed next,
	// WITHOUT mutating internal state. Used for live updates from a
	// forming tick.
	Peek(price float64) float64
}

// Kind identifies one of the closed set of indicator variants.
type Kind int

const (
	KindSMA Kind = iota
	KindEMA
	KindRSI
	KindMACD
	KindBollinger
)

// String returns the short name used in result and config strings.
func (k Kind) String() string {
	switch k {
	case KindSMA:
		return "SMA"
	case KindEMA:
		return "EMA"
	case KindRSI:
		return "RSI"
	case KindMACD:
		return "MACD"
	case KindBollinger:
		return "BB"
	default:
		return "UNKNOWN"
	}
}

// Config specifies a single indicator instance.
type Config struct {
	Kind   Kind
	Period int // SMA, EMA, RSI, Bollinger window

	// MACD only
	Fast, Slow, Signal int

	// Bollinger only: band width in standard deviations.
	StdDev float64
}

// Name returns the unique instance name, e.g. "SMA_20" or "MACD_12_26_9".
func (c Config) Name() string {
	switch c.Kind {
	case KindMACD:
		return "MACD_" + strconv.Itoa(c.Fast) + "_" + strconv.Itoa(c.Slow) + "_" + strconv.Itoa(c.Signal)
	default:
		return c.Kind.String() + "_" + strconv.Itoa(c.Period)
	}
}

// New constructs the indicator described by cfg. The variant set is
// closed: adding a new indicator means a new Kind plus a case here.
func New(cfg Config) (Indicator, error) {
	switch cfg.Kind {
	case KindSMA:
		return NewSMA(cfg.Period)
	case KindEMA:
		return NewEMA(cfg.Period)
	case KindRSI:
		return NewRSI(cfg.Period)
	case KindMACD:
		return NewMACD(cfg.Fast, cfg.Slow, cfg.Signal)
	case KindBollinger:
		return NewBollingerBands(cfg.Period, cfg.StdDev)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(cfg.Kind))
	}
}
