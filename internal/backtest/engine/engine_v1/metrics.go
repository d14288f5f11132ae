package engine

import (
	"math"

	"github.com/tradepruf/tradepruf/internal/types"
)

const daysPerYear = 365.0

// ComputeMetrics derives the performance summary from an equity curve and a
// trade ledger. It is a pure function: every degenerate input (empty curve,
// single point, zero variance, no trades) resolves to the documented zero
// defaults and never to NaN, Inf, or an error.
func ComputeMetrics(initialCapital float64, curve []types.EquityPoint, trades []types.Trade, interval types.Interval) types.PerformanceMetrics {
	var m types.PerformanceMetrics

	computeTradeStats(&m, trades)

	if len(curve) == 0 || initialCapital <= 0 {
		return m
	}

	final := curve[len(curve)-1].Equity
	m.TotalReturn = final/initialCapital - 1

	// Annualization needs at least a day of calendar span.
	span := curve[len(curve)-1].Time.Sub(curve[0].Time)
	if days := span.Hours() / 24; days >= 1 {
		m.AnnualizedReturn = math.Pow(1+m.TotalReturn, daysPerYear/days) - 1
	}

	returns := periodReturns(curve)
	mean, std := meanStd(returns)
	periodsPerYear := interval.PeriodsPerYear()

	if std > 0 {
		m.SharpeRatio = mean / std * math.Sqrt(periodsPerYear)
		m.Volatility = std * math.Sqrt(periodsPerYear)
	}

	m.MaxDrawdown = maxDrawdown(curve)

	return m
}

func computeTradeStats(m *types.PerformanceMetrics, trades []types.Trade) {
	var winSum, lossSum float64

	for _, trade := range trades {
		switch {
		case trade.PnL > 0:
			m.WinningTrades++
			winSum += trade.PnL
		case trade.PnL < 0:
			m.LosingTrades++
			lossSum += trade.PnL
		}
	}

	m.TotalTrades = len(trades)

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	}

	if m.WinningTrades > 0 {
		m.AvgWin = winSum / float64(m.WinningTrades)
	}

	if m.LosingTrades > 0 {
		m.AvgLoss = lossSum / float64(m.LosingTrades)
	}
}

// periodReturns is the simple return series between consecutive equity
// points. Points following a zero equity value are skipped.
func periodReturns(curve []types.EquityPoint) []float64 {
	var returns []float64

	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}

		returns = append(returns, curve[i].Equity/prev-1)
	}

	return returns
}

// meanStd returns the mean and sample standard deviation. Fewer than two
// values yields zero for both.
func meanStd(values []float64) (float64, float64) {
	if len(values) < 2 {
		return 0, 0
	}

	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}

	return mean, math.Sqrt(ss / float64(len(values)-1))
}

// maxDrawdown is the largest peak-to-trough decline as a positive fraction.
func maxDrawdown(curve []types.EquityPoint) float64 {
	var peak, worst float64

	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}

		if peak > 0 {
			if dd := (peak - point.Equity) / peak; dd > worst {
				worst = dd
			}
		}
	}

	return worst
}
