package indicator

import "fmt"

// RSI calculates the Relative Strength Index using Wilder's smoothing
// method over the last period price changes. Ready after period+1
// samples (the first sample yields no delta). Update is O(1), no
// history scans.
type RSI struct {
	period    int
	count     int
	prevPrice float64
	avgGain   float64
	avgLoss   float64
	current   float64
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) (*RSI, error) {
	if period < 1 {
		return nil, fmt.Errorf("%w: RSI period %d", ErrInvalidPeriod, period)
	}
	return &RSI{period: period}, nil
}

func (r *RSI) Name() string { return "RSI" }

func (r *RSI) Update(price float64) {
	r.count++

	if r.count == 1 {
		// First price, no delta yet
		r.prevPrice = price
		return
	}

	delta := price - r.prevPrice
	r.prevPrice = price

	gain := 0.0
	loss := 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if r.count <= r.period+1 {
		// Accumulation phase: build the initial averages
		r.avgGain += gain
		r.avgLoss += loss

		if r.count == r.period+1 {
			r.avgGain /= float64(r.period)
			r.avgLoss /= float64(r.period)
			r.current = rsiFrom(r.avgGain, r.avgLoss)
		}
		return
	}

	// Wilder's smoothing: avg = (prevAvg*(period-1) + current) / period
	p := float64(r.period)
	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	r.current = rsiFrom(r.avgGain, r.avgLoss)
}

func (r *RSI) Value() float64 { return r.current }
func (r *RSI) Ready() bool    { return r.count > r.period }

// Peek computes what RSI would be with an additional price without mutating state.
func (r *RSI) Peek(price float64) float64 {
	if r.count <= r.period {
		return r.current
	}
	delta := price - r.prevPrice
	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}
	p := float64(r.period)
	ag := (r.avgGain*(p-1) + gain) / p
	al := (r.avgLoss*(p-1) + loss) / p
	return rsiFrom(ag, al)
}

// rsiFrom maps smoothed averages to the [0, 100] scale. Division by
// zero is defined away: no losses at all means maximum strength (100),
// and a perfectly flat series is neutral (50) rather than a fault.
func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
