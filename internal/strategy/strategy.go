// Package strategy defines the signal-generation capability consumed by the
// backtest engine, plus the built-in strategies. The engine treats a Strategy
// as opaque: given a bar series it must produce a same-length, timestamp
// aligned signal stream.
package strategy

import (
	"sort"

	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/pkg/errors"
)

// Strategy maps a bar series to a same-length signal stream.
type Strategy interface {
	// Name returns the strategy's registry name.
	Name() string
	// GenerateSignals produces exactly one signal per input bar, bound to the
	// bar's timestamp. Bars the strategy has no opinion about get HOLD.
	GenerateSignals(bars []types.Bar) ([]types.Signal, error)
}

// Params are the numeric tuning parameters supplied by the caller, e.g.
// {"short_window": 20, "long_window": 50}. Missing keys fall back to the
// strategy's defaults.
type Params map[string]float64

// Get returns the parameter value or the fallback when absent.
func (p Params) Get(key string, fallback float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}

	return fallback
}

// GetInt returns the parameter as an int or the fallback when absent.
func (p Params) GetInt(key string, fallback int) int {
	if v, ok := p[key]; ok {
		return int(v)
	}

	return fallback
}

// Factory builds a configured strategy from caller parameters.
type Factory func(params Params) (Strategy, error)

var registry = map[string]Factory{
	"sma":  NewSMACrossover,
	"ema":  NewEMACrossover,
	"rsi":  NewRSI,
	"macd": NewMACD,
	"bb":   NewBollingerBands,
}

// New builds the named strategy with the given parameters.
func New(name string, params Params) (Strategy, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "unknown strategy: %s", name)
	}

	return factory(params)
}

// Names returns the registered strategy names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// holdSignals returns an all-HOLD stream aligned with bars, the baseline
// every strategy starts from.
func holdSignals(name string, bars []types.Bar) []types.Signal {
	signals := make([]types.Signal, len(bars))
	for i, bar := range bars {
		signals[i] = types.Signal{
			Time:   bar.Time,
			Symbol: bar.Symbol,
			Type:   types.SignalTypeHold,
			Name:   name,
		}
	}

	return signals
}

// closes extracts the close series from bars.
func closes(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, bar := range bars {
		out[i] = bar.Close
	}

	return out
}
