package indicator

import "fmt"

// SMA calculates Simple Moving Average over a rolling window.
// Uses a preallocated circular buffer for a zero-allocation hot path;
// the sum is a bounded sum of bounded-length history, so it does not
// drift the way an unbounded running total would.
type SMA struct {
	period  int
	buf     []float64 // preallocated circular buffer
	idx     int       // current write position
	count   int       // total values received
	sum     float64
	current float64
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) (*SMA, error) {
	if period < 1 {
		return nil, fmt.Errorf("%w: SMA period %d", ErrInvalidPeriod, period)
	}
	return &SMA{
		period: period,
		buf:    make([]float64, period),
	}, nil
}

func (s *SMA) Name() string { return "SMA" }

func (s *SMA) Update(price float64) {
	if s.count >= s.period {
		// Subtract the oldest value being overwritten
		s.sum -= s.buf[s.idx]
	}

	s.buf[s.idx] = price
	s.sum += price
	s.idx = (s.idx + 1) % s.period
	s.count++

	if s.count >= s.period {
		s.current = s.sum / float64(s.period)
	}
}

func (s *SMA) Value() float64 { return s.current }
func (s *SMA) Ready() bool    { return s.count >= s.period }

// Peek computes what Value() would be with an additional price without mutating state.
func (s *SMA) Peek(price float64) float64 {
	if s.count < s.period {
		// Not ready yet; return partial average including this price
		return (s.sum + price) / float64(s.count+1)
	}
	// Preview: replace the oldest value (at idx) with the new price
	return (s.sum - s.buf[s.idx] + price) / float64(s.period)
}
