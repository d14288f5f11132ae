package strategy

import (
	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/pkg/errors"
)

// SMACrossover emits BUY when the short moving average crosses above the long
// one while out of the market, and SELL on the reverse cross while in it.
type SMACrossover struct {
	shortWindow int
	longWindow  int
}

// NewSMACrossover builds an SMA crossover strategy.
// Parameters: short_window (default 20), long_window (default 50).
func NewSMACrossover(params Params) (Strategy, error) {
	s := &SMACrossover{
		shortWindow: params.GetInt("short_window", 20),
		longWindow:  params.GetInt("long_window", 50),
	}

	if s.shortWindow <= 0 || s.longWindow <= 0 {
		return nil, errors.New(errors.ErrCodeStrategyConfigError, "sma windows must be positive")
	}

	if s.shortWindow >= s.longWindow {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError,
			"sma short window (%d) must be smaller than long window (%d)", s.shortWindow, s.longWindow)
	}

	return s, nil
}

// Name implements Strategy.
func (s *SMACrossover) Name() string { return "sma" }

// GenerateSignals implements Strategy.
func (s *SMACrossover) GenerateSignals(bars []types.Bar) ([]types.Signal, error) {
	signals := holdSignals(s.Name(), bars)

	// Not enough bars for the long window: stay out of the market entirely.
	if len(bars) < s.longWindow {
		return signals, nil
	}

	prices := closes(bars)
	shortMA := rollingMean(prices, s.shortWindow)
	longMA := rollingMean(prices, s.longWindow)

	inMarket := false

	for i := s.longWindow; i < len(bars); i++ {
		switch {
		case shortMA[i] > longMA[i] && !inMarket:
			signals[i].Type = types.SignalTypeBuy
			signals[i].Reason = "short MA crossed above long MA"
			inMarket = true
		case shortMA[i] < longMA[i] && inMarket:
			signals[i].Type = types.SignalTypeSell
			signals[i].Reason = "short MA crossed below long MA"
			inMarket = false
		}
	}

	return signals, nil
}

// EMACrossover emits BUY while the fast EMA is above the slow EMA and SELL
// while below. The simulator's state machine absorbs the repeats.
type EMACrossover struct {
	fastWindow int
	slowWindow int
}

// NewEMACrossover builds an EMA crossover strategy.
// Parameters: fast_window (default 12), slow_window (default 26).
func NewEMACrossover(params Params) (Strategy, error) {
	s := &EMACrossover{
		fastWindow: params.GetInt("fast_window", 12),
		slowWindow: params.GetInt("slow_window", 26),
	}

	if s.fastWindow <= 0 || s.slowWindow <= 0 {
		return nil, errors.New(errors.ErrCodeStrategyConfigError, "ema windows must be positive")
	}

	return s, nil
}

// Name implements Strategy.
func (s *EMACrossover) Name() string { return "ema" }

// GenerateSignals implements Strategy.
func (s *EMACrossover) GenerateSignals(bars []types.Bar) ([]types.Signal, error) {
	signals := holdSignals(s.Name(), bars)
	prices := closes(bars)

	fast := ewma(prices, s.fastWindow)
	slow := ewma(prices, s.slowWindow)

	for i := range bars {
		switch {
		case fast[i] > slow[i]:
			signals[i].Type = types.SignalTypeBuy
			signals[i].Reason = "fast EMA above slow EMA"
		case fast[i] < slow[i]:
			signals[i].Type = types.SignalTypeSell
			signals[i].Reason = "fast EMA below slow EMA"
		}
	}

	return signals, nil
}
