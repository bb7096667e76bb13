package indicator

import (
	"fmt"
)

// Snapshottable is implemented by indicators that support state
// serialization. All five built-in kinds implement it.
type Snapshottable interface {
	Indicator
	Snapshot() IndicatorSnapshot
	RestoreFromSnapshot(snap IndicatorSnapshot) error
}

// IndicatorSnapshot holds the serialized state of a single indicator
// instance. Fields are a union across kinds; unused ones are omitted.
type IndicatorSnapshot struct {
	Type   string `json:"type"` // "SMA", "EMA", "RSI", "MACD", "BB"
	Period int    `json:"period,omitempty"`

	Count   int     `json:"count"`
	Current float64 `json:"current"`

	// SMA / Bollinger rolling buffer
	Buf []float64 `json:"buf,omitempty"`
	Idx int       `json:"idx,omitempty"`
	Sum float64   `json:"sum,omitempty"`

	// EMA
	Multiplier float64 `json:"multiplier,omitempty"`

	// RSI
	PrevPrice float64 `json:"prev_price,omitempty"`
	AvgGain   float64 `json:"avg_gain,omitempty"`
	AvgLoss   float64 `json:"avg_loss,omitempty"`

	// MACD nested EMA states (fast, slow, signal) and derived lines
	Subs      []IndicatorSnapshot `json:"subs,omitempty"`
	Signal    float64             `json:"signal,omitempty"`
	Histogram float64             `json:"histogram,omitempty"`

	// Bollinger
	SumSq  float64 `json:"sum_sq,omitempty"`
	Since  int     `json:"since,omitempty"`
	StdDev float64 `json:"std_dev,omitempty"`
	Upper  float64 `json:"upper,omitempty"`
	Lower  float64 `json:"lower,omitempty"`
}

// SymbolSnapshot holds indicator snapshots for a single symbol.
type SymbolSnapshot struct {
	Symbol     string              `json:"symbol"`
	Indicators []IndicatorSnapshot `json:"indicators"`
}

// EngineSnapshot holds the full state of the indicator engine.
type EngineSnapshot struct {
	Symbols []SymbolSnapshot `json:"symbols"`
	Version int              `json:"version"` // schema version for forward compat
}

// ─── Per-kind Snapshot / Restore ─────────────────────────────────────────────

func (s *SMA) Snapshot() IndicatorSnapshot {
	bufCopy := make([]float64, len(s.buf))
	copy(bufCopy, s.buf)
	return IndicatorSnapshot{
		Type: "SMA", Period: s.period,
		Buf: bufCopy, Idx: s.idx, Count: s.count, Sum: s.sum, Current: s.current,
	}
}

func (s *SMA) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	if snap.Period != s.period {
		return fmt.Errorf("sma restore: period mismatch %d != %d", snap.Period, s.period)
	}
	s.idx = snap.Idx
	s.count = snap.Count
	s.sum = snap.Sum
	s.current = snap.Current
	copy(s.buf, snap.Buf)
	return nil
}

func (e *EMA) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type: "EMA", Period: e.period,
		Multiplier: e.multiplier, Count: e.count, Current: e.current,
	}
}

func (e *EMA) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	if snap.Period != e.period {
		return fmt.Errorf("ema restore: period mismatch %d != %d", snap.Period, e.period)
	}
	e.count = snap.Count
	e.current = snap.Current
	return nil
}

func (r *RSI) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type: "RSI", Period: r.period,
		Count: r.count, PrevPrice: r.prevPrice,
		AvgGain: r.avgGain, AvgLoss: r.avgLoss, Current: r.current,
	}
}

func (r *RSI) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	if snap.Period != r.period {
		return fmt.Errorf("rsi restore: period mismatch %d != %d", snap.Period, r.period)
	}
	r.count = snap.Count
	r.prevPrice = snap.PrevPrice
	r.avgGain = snap.AvgGain
	r.avgLoss = snap.AvgLoss
	r.current = snap.Current
	return nil
}

func (m *MACD) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type:      "MACD",
		Count:     m.count,
		Current:   m.macd,
		Signal:    m.signal,
		Histogram: m.histogram,
		Subs: []IndicatorSnapshot{
			m.fast.Snapshot(), m.slow.Snapshot(), m.sig.Snapshot(),
		},
	}
}

func (m *MACD) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	if len(snap.Subs) != 3 {
		return fmt.Errorf("macd restore: want 3 sub-EMA states, got %d", len(snap.Subs))
	}
	if err := m.fast.RestoreFromSnapshot(snap.Subs[0]); err != nil {
		return err
	}
	if err := m.slow.RestoreFromSnapshot(snap.Subs[1]); err != nil {
		return err
	}
	if err := m.sig.RestoreFromSnapshot(snap.Subs[2]); err != nil {
		return err
	}
	m.count = snap.Count
	m.macd = snap.Current
	m.signal = snap.Signal
	m.histogram = snap.Histogram
	return nil
}

func (b *BollingerBands) Snapshot() IndicatorSnapshot {
	bufCopy := make([]float64, len(b.buf))
	copy(bufCopy, b.buf)
	return IndicatorSnapshot{
		Type: "BB", Period: b.period, StdDev: b.stdDev,
		Buf: bufCopy, Idx: b.idx, Count: b.count,
		Sum: b.sum, SumSq: b.sumSq, Since: b.since,
		Current: b.middle, Upper: b.upper, Lower: b.lower,
	}
}

func (b *BollingerBands) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	if snap.Period != b.period {
		return fmt.Errorf("bb restore: period mismatch %d != %d", snap.Period, b.period)
	}
	b.idx = snap.Idx
	b.count = snap.Count
	b.sum = snap.Sum
	b.sumSq = snap.SumSq
	b.since = snap.Since
	b.middle = snap.Current
	b.upper = snap.Upper
	b.lower = snap.Lower
	copy(b.buf, snap.Buf)
	return nil
}

// ─── Engine-level snapshot / restore ─────────────────────────────────────────

// SnapshotEngine captures the full per-symbol state of an Engine.
func SnapshotEngine(e *Engine) (*EngineSnapshot, error) {
	snap := &EngineSnapshot{Version: 1}

	for symbol, si := range e.state {
		ss := SymbolSnapshot{
			Symbol:     symbol,
			Indicators: make([]IndicatorSnapshot, 0, len(si.indicators)),
		}
		for _, ind := range si.indicators {
			s, ok := ind.(Snapshottable)
			if !ok {
				return nil, fmt.Errorf("indicator %s does not implement Snapshottable", ind.Name())
			}
			ss.Indicators = append(ss.Indicators, s.Snapshot())
		}
		snap.Symbols = append(snap.Symbols, ss)
	}

	return snap, nil
}

// RestoreEngine rebuilds an Engine from a snapshot. It is tolerant of
// config changes; states are matched by position only when the stored
// type agrees with the config's kind; mismatched or missing states
// start fresh (cold), and extra stored states are silently skipped.
func RestoreEngine(configs []Config, snap *EngineSnapshot) (*Engine, error) {
	e, err := NewEngine(configs)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return e, nil
	}

	for _, ss := range snap.Symbols {
		si := e.createSymbolIndicators()
		e.state[ss.Symbol] = si

		for i, cfg := range si.configs {
			stored, ok := findSnapshot(ss.Indicators, cfg)
			if !ok {
				continue // new indicator, cold start
			}
			if r, ok := si.indicators[i].(Snapshottable); ok {
				if err := r.RestoreFromSnapshot(stored); err != nil {
					return nil, fmt.Errorf("restore %s for %s: %w", cfg.Name(), ss.Symbol, err)
				}
			}
		}
	}

	return e, nil
}

// findSnapshot locates the stored state matching a config by kind and
// period(s).
func findSnapshot(stored []IndicatorSnapshot, cfg Config) (IndicatorSnapshot, bool) {
	for _, s := range stored {
		if s.Type != cfg.Kind.String() {
			continue
		}
		switch cfg.Kind {
		case KindMACD:
			if len(s.Subs) == 3 &&
				s.Subs[0].Period == cfg.Fast &&
				s.Subs[1].Period == cfg.Slow &&
				s.Subs[2].Period == cfg.Signal {
				return s, true
			}
		default:
			if s.Period == cfg.Period {
				return s, true
			}
		}
	}
	return IndicatorSnapshot{}, false
}
