package strategy

import (
	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/pkg/errors"
)

// RSI emits BUY when the relative strength index drops below the oversold
// threshold and SELL when it rises above the overbought threshold.
type RSI struct {
	period     int
	oversold   float64
	overbought float64
}

// NewRSI builds an RSI strategy.
// Parameters: period (default 14), oversold (default 30), overbought (default 70).
func NewRSI(params Params) (Strategy, error) {
	s := &RSI{
		period:     params.GetInt("period", 14),
		oversold:   params.Get("oversold", 30),
		overbought: params.Get("overbought", 70),
	}

	if s.period <= 0 {
		return nil, errors.New(errors.ErrCodeStrategyConfigError, "rsi period must be positive")
	}

	if s.oversold >= s.overbought {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError,
			"rsi oversold (%f) must be below overbought (%f)", s.oversold, s.overbought)
	}

	return s, nil
}

// Name implements Strategy.
func (s *RSI) Name() string { return "rsi" }

// GenerateSignals implements Strategy.
func (s *RSI) GenerateSignals(bars []types.Bar) ([]types.Signal, error) {
	signals := holdSignals(s.Name(), bars)
	if len(bars) <= s.period {
		return signals, nil
	}

	prices := closes(bars)

	gains := make([]float64, len(prices))
	losses := make([]float64, len(prices))

	for i := 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	avgGain := rollingMean(gains, s.period)
	avgLoss := rollingMean(losses, s.period)

	for i := s.period; i < len(bars); i++ {
		var rsi float64
		if avgLoss[i] == 0 {
			// No losses in the window: maximally overbought.
			rsi = 100
		} else {
			rs := avgGain[i] / avgLoss[i]
			rsi = 100 - 100/(1+rs)
		}

		switch {
		case rsi < s.oversold:
			signals[i].Type = types.SignalTypeBuy
			signals[i].Reason = "RSI below oversold threshold"
		case rsi > s.overbought:
			signals[i].Type = types.SignalTypeSell
			signals[i].Reason = "RSI above overbought threshold"
		}
	}

	return signals, nil
}

// MACD emits BUY while the MACD line is above its signal line and SELL while
// below.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD builds a MACD strategy.
// Parameters: fast_period (default 12), slow_period (default 26),
// signal_period (default 9).
func NewMACD(params Params) (Strategy, error) {
	s := &MACD{
		fastPeriod:   params.GetInt("fast_period", 12),
		slowPeriod:   params.GetInt("slow_period", 26),
		signalPeriod: params.GetInt("signal_period", 9),
	}

	if s.fastPeriod <= 0 || s.slowPeriod <= 0 || s.signalPeriod <= 0 {
		return nil, errors.New(errors.ErrCodeStrategyConfigError, "macd periods must be positive")
	}

	return s, nil
}

// Name implements Strategy.
func (s *MACD) Name() string { return "macd" }

// GenerateSignals implements Strategy.
func (s *MACD) GenerateSignals(bars []types.Bar) ([]types.Signal, error) {
	signals := holdSignals(s.Name(), bars)
	prices := closes(bars)

	fast := ewma(prices, s.fastPeriod)
	slow := ewma(prices, s.slowPeriod)

	macdLine := make([]float64, len(prices))
	for i := range prices {
		macdLine[i] = fast[i] - slow[i]
	}

	signalLine := ewma(macdLine, s.signalPeriod)

	for i := range bars {
		switch {
		case macdLine[i] > signalLine[i]:
			signals[i].Type = types.SignalTypeBuy
			signals[i].Reason = "MACD line above signal line"
		case macdLine[i] < signalLine[i]:
			signals[i].Type = types.SignalTypeSell
			signals[i].Reason = "MACD line below signal line"
		}
	}

	return signals, nil
}
