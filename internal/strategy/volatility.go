package strategy

import (
	"math"

	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/pkg/errors"
)

// BollingerBands buys when the close pierces the lower band and sells when it
// pierces the upper band. It tracks whether it last bought so duplicate
// entries are not emitted while the price stays outside a band.
type BollingerBands struct {
	window int
	numStd float64
}

// NewBollingerBands builds a Bollinger band mean-reversion strategy.
// Parameters: window (default 20), num_std (default 2).
func NewBollingerBands(params Params) (Strategy, error) {
	s := &BollingerBands{
		window: params.GetInt("window", 20),
		numStd: params.Get("num_std", 2),
	}

	if s.window < 2 {
		return nil, errors.New(errors.ErrCodeStrategyConfigError, "bollinger window must be at least 2")
	}

	if s.numStd <= 0 || math.IsNaN(s.numStd) {
		return nil, errors.New(errors.ErrCodeStrategyConfigError, "bollinger num_std must be positive")
	}

	return s, nil
}

// Name implements Strategy.
func (s *BollingerBands) Name() string { return "bb" }

// GenerateSignals implements Strategy.
func (s *BollingerBands) GenerateSignals(bars []types.Bar) ([]types.Signal, error) {
	signals := holdSignals(s.Name(), bars)
	if len(bars) < s.window {
		return signals, nil
	}

	prices := closes(bars)
	mean := rollingMean(prices, s.window)
	std := rollingStd(prices, s.window)

	inMarket := false
	for i := s.window - 1; i < len(bars); i++ {
		lower := mean[i] - s.numStd*std[i]
		upper := mean[i] + s.numStd*std[i]

		switch {
		case !inMarket && prices[i] < lower:
			signals[i].Type = types.SignalTypeBuy
			signals[i].Reason = "close below lower band"
			inMarket = true
		case inMarket && prices[i] > upper:
			signals[i].Type = types.SignalTypeSell
			signals[i].Reason = "close above upper band"
			inMarket = false
		}
	}

	return signals, nil
}
