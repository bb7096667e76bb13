package indicator

import "fmt"

// EMA calculates Exponential Moving Average with smoothing factor
// α = 2/(period+1). O(1) per update, no window storage needed.
//
// Seeding convention: the first raw sample seeds the EMA, so the
// indicator is ready from the very first update. (Seeding
// with an initial SMA over the first period instead changes early
// output values; this implementation deliberately uses the raw seed.)
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
}

// NewEMA creates a new EMA indicator with the given period.
func NewEMA(period int) (*EMA, error) {
	if period < 1 {
		return nil, fmt.Errorf("%w: EMA period %d", ErrInvalidPeriod, period)
	}
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}, nil
}

func (e *EMA) Name() string { return "EMA" }

func (e *EMA) Update(price float64) {
	e.count++
	if e.count == 1 {
		e.current = price // seed with first sample
		return
	}
	// EMA = price*α + prev*(1-α)
	e.current = price*e.multiplier + e.current*(1-e.multiplier)
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.count >= 1 }

// Peek computes what Value() would be with an additional price without mutating state.
func (e *EMA) Peek(price float64) float64 {
	if e.count == 0 {
		return price
	}
	return price*e.multiplier + e.current*(1-e.multiplier)
}
