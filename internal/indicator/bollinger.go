package indicator

import (
	"fmt"
	"math"
)

// BollingerBands calculates the middle (SMA), upper and lower bands
// over a rolling window. A rolling sum of squares derives the standard
// deviation in O(1) per update; because that incremental accumulator
// collects floating-point drift over very long runs, both sums are
// recomputed exactly from the buffer every period updates.
type BollingerBands struct {
	period int
	stdDev float64 // band width multiplier k

	buf   []float64
	idx   int
	count int

	sum   float64
	sumSq float64
	since int // updates since last exact recomputation

	middle, upper, lower float64
}

// NewBollingerBands creates a Bollinger Bands indicator with the given
// window and standard-deviation multiplier (typically 20, 2.0).
func NewBollingerBands(period int, stdDev float64) (*BollingerBands, error) {
	if period < 1 {
		return nil, fmt.Errorf("%w: Bollinger period %d", ErrInvalidPeriod, period)
	}
	if stdDev < 0 || math.IsNaN(stdDev) || math.IsInf(stdDev, 0) {
		return nil, fmt.Errorf("%w: Bollinger stddev multiplier %v must be finite and >= 0",
			ErrInvalidPeriod, stdDev)
	}
	return &BollingerBands{
		period: period,
		stdDev: stdDev,
		buf:    make([]float64, period),
	}, nil
}

func (b *BollingerBands) Name() string { return "BB" }

func (b *BollingerBands) Update(price float64) {
	if b.count >= b.period {
		old := b.buf[b.idx]
		b.sum -= old
		b.sumSq -= old * old
	}

	b.buf[b.idx] = price
	b.sum += price
	b.sumSq += price * price
	b.idx = (b.idx + 1) % b.period
	b.count++

	b.since++
	if b.since >= b.period {
		b.recompute()
	}

	if b.count < b.period {
		return
	}

	n := float64(b.period)
	mean := b.sum / n
	variance := b.sumSq/n - mean*mean
	if variance < 0 {
		variance = 0 // rounding can push a zero-variance window slightly negative
	}
	sd := math.Sqrt(variance)

	b.middle = mean
	b.upper = mean + b.stdDev*sd
	b.lower = mean - b.stdDev*sd
}

// recompute rebuilds both rolling sums exactly from the buffer,
// discarding accumulated drift.
func (b *BollingerBands) recompute() {
	n := min(b.count, b.period)
	var sum, sumSq float64
	for _, v := range b.buf[:n] {
		sum += v
		sumSq += v * v
	}
	b.sum = sum
	b.sumSq = sumSq
	b.since = 0
}

// Value returns the middle band; it agrees exactly with SMA(period)
// over the same series. Upper/lower are available via Bands.
func (b *BollingerBands) Value() float64 { return b.middle }
func (b *BollingerBands) Ready() bool    { return b.count >= b.period }

// Bands returns the upper, middle and lower bands.
func (b *BollingerBands) Bands() (upper, middle, lower float64) {
	return b.upper, b.middle, b.lower
}

// Peek computes what the middle band would be with an additional price
// without mutating state.
func (b *BollingerBands) Peek(price float64) float64 {
	if b.count < b.period {
		return (b.sum + price) / float64(b.count+1)
	}
	return (b.sum - b.buf[b.idx] + price) / float64(b.period)
}
