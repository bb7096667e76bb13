package indicator

import (
	"context"
	"time"

	"mdprocessor/internal/model"
)

// symbolIndicators holds live indicator instances for one symbol.
type symbolIndicators struct {
	indicators []Indicator
	configs    []Config
}

// Engine computes a configured set of indicators for every symbol it
// sees. Instances are created lazily on a symbol's first tick.
// Designed for single-goroutine usage, no locks.
type Engine struct {
	configs []Config
	state   map[string]*symbolIndicators
}

// NewEngine creates an indicator engine. Every config is validated up
// front so a bad period fails at startup, not on a symbol's first tick.
func NewEngine(configs []Config) (*Engine, error) {
	for _, cfg := range configs {
		if _, err := New(cfg); err != nil {
			return nil, err
		}
	}
	return &Engine{
		configs: configs,
		state:   make(map[string]*symbolIndicators, 16),
	}, nil
}

// Configs returns the engine's indicator configurations.
func (e *Engine) Configs() []Config { return e.configs }

// Process feeds one price into every indicator for symbol and collects
// the results (not-ready indicators are included with Ready=false).
func (e *Engine) Process(symbol string, price float64, ts time.Time) []model.IndicatorResult {
	si, exists := e.state[symbol]
	if !exists {
		si = e.createSymbolIndicators()
		e.state[symbol] = si
	}

	results := make([]model.IndicatorResult, 0, len(si.indicators))
	for i, ind := range si.indicators {
		ind.Update(price)
		results = append(results, buildResult(si.configs[i], ind, symbol, ts))
	}
	return results
}

// ProcessPeek computes live indicator values for a forming price using
// Peek(). Does NOT mutate indicator state. Returns nil if the symbol
// has never gone through Process.
func (e *Engine) ProcessPeek(symbol string, price float64, ts time.Time) []model.IndicatorResult {
	si, exists := e.state[symbol]
	if !exists {
		return nil
	}

	results := make([]model.IndicatorResult, 0, len(si.indicators))
	for i, ind := range si.indicators {
		r := buildResult(si.configs[i], ind, symbol, ts)
		r.Value = ind.Peek(price)
		r.Live = true
		results = append(results, r)
	}
	return results
}

// Run consumes ticks and emits indicator results. Blocks until ctx is
// done or tickCh closes. Results are dropped, not blocked on, when
// resultCh is full.
func (e *Engine) Run(ctx context.Context, tickCh <-chan model.Tick, resultCh chan<- model.IndicatorResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-tickCh:
			if !ok {
				return
			}
			for _, r := range e.Process(tick.Symbol, tick.Price, tick.TS) {
				select {
				case resultCh <- r:
				default:
					// drop if channel full
				}
			}
		}
	}
}

// buildResult assembles a result row, filling the extra lines for the
// composite indicators.
func buildResult(cfg Config, ind Indicator, symbol string, ts time.Time) model.IndicatorResult {
	r := model.IndicatorResult{
		Name:   cfg.Name(),
		Symbol: symbol,
		Value:  ind.Value(),
		Ready:  ind.Ready(),
		TS:     ts,
	}
	switch v := ind.(type) {
	case *MACD:
		r.Value, r.Signal, r.Histogram = v.Lines()
	case *BollingerBands:
		r.Upper, r.Value, r.Lower = v.Bands()
	}
	return r
}

// createSymbolIndicators creates fresh instances for one symbol.
// Configs were validated in NewEngine, so construction cannot fail here.
func (e *Engine) createSymbolIndicators() *symbolIndicators {
	inds := make([]Indicator, len(e.configs))
	for i, cfg := range e.configs {
		ind, _ := New(cfg)
		inds[i] = ind
	}
	return &symbolIndicators{
		indicators: inds,
		configs:    e.configs,
	}
}
