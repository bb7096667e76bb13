package indicator

import "fmt"

// MACD calculates Moving Average Convergence Divergence. It owns its
// fast and slow EMAs plus a third EMA applied to the MACD line series
// for the signal line, nested state rather than external composition,
// so nothing is buffered twice.
//
// With first-sample EMA seeding all three lines are defined from the
// first update onward.
type MACD struct {
	fast, slow, sig *EMA

	macd      float64 // fast EMA − slow EMA
	signal    float64 // EMA(signal period) of the MACD line
	histogram float64 // macd − signal
	count     int
}

// NewMACD creates a MACD indicator with the given fast/slow/signal
// periods (typically 12, 26, 9). The fast period must be shorter than
// the slow period.
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) (*MACD, error) {
	if fastPeriod < 1 || slowPeriod < 1 || signalPeriod < 1 {
		return nil, fmt.Errorf("%w: MACD periods %d/%d/%d", ErrInvalidPeriod,
			fastPeriod, slowPeriod, signalPeriod)
	}
	if fastPeriod >= slowPeriod {
		return nil, fmt.Errorf("%w: MACD fast period %d must be < slow period %d",
			ErrInvalidPeriod, fastPeriod, slowPeriod)
	}
	fast, _ := NewEMA(fastPeriod)
	slow, _ := NewEMA(slowPeriod)
	sig, _ := NewEMA(signalPeriod)
	return &MACD{fast: fast, slow: slow, sig: sig}, nil
}

func (m *MACD) Name() string { return "MACD" }

func (m *MACD) Update(price float64) {
	m.count++
	m.fast.Update(price)
	m.slow.Update(price)
	m.macd = m.fast.Value() - m.slow.Value()
	m.sig.Update(m.macd)
	m.signal = m.sig.Value()
	m.histogram = m.macd - m.signal
}

// Value returns the MACD line. Signal and histogram are available via Lines.
func (m *MACD) Value() float64 { return m.macd }
func (m *MACD) Ready() bool    { return m.count >= 1 }

// Lines returns the MACD line, signal line and histogram.
func (m *MACD) Lines() (macd, signal, histogram float64) {
	return m.macd, m.signal, m.histogram
}

// Peek computes what the MACD line would be with an additional price
// without mutating state.
func (m *MACD) Peek(price float64) float64 {
	return m.fast.Peek(price) - m.slow.Peek(price)
}
