package types

import "time"

// Bar is one OHLCV sample for a fixed time interval. Bars are immutable once
// produced; within a series they are strictly increasing in timestamp with no
// duplicates. Gaps (non-trading periods) are allowed and never interpolated.
type Bar struct {
	Time   time.Time `csv:"time" yaml:"time" json:"time"`
	Symbol string    `csv:"symbol" yaml:"symbol" json:"symbol"`
	Open   float64   `csv:"open" yaml:"open" json:"open"`
	High   float64   `csv:"high" yaml:"high" json:"high"`
	Low    float64   `csv:"low" yaml:"low" json:"low"`
	Close  float64   `csv:"close" yaml:"close" json:"close"`
	Volume float64   `csv:"volume" yaml:"volume" json:"volume"`
}

// Interval is the sampling interval of a bar series.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1wk"
)

// AllIntervals lists the supported intervals, used for config validation and
// schema generation.
var AllIntervals = []Interval{
	Interval1m, Interval5m, Interval15m, Interval30m,
	Interval1h, Interval4h, Interval1d, Interval1w,
}

// tradingHoursPerDay is the US equity session length used to scale intraday
// intervals to an annual period count.
const tradingHoursPerDay = 6.5

// PeriodsPerYear returns the number of bars of this interval in a trading
// year, used to annualize per-period return statistics. Daily bars use the
// conventional 252 trading days.
func (i Interval) PeriodsPerYear() float64 {
	switch i {
	case Interval1m:
		return 252 * tradingHoursPerDay * 60
	case Interval5m:
		return 252 * tradingHoursPerDay * 12
	case Interval15m:
		return 252 * tradingHoursPerDay * 4
	case Interval30m:
		return 252 * tradingHoursPerDay * 2
	case Interval1h:
		return 252 * tradingHoursPerDay
	case Interval4h:
		return 252 * tradingHoursPerDay / 4
	case Interval1d:
		return 252
	case Interval1w:
		return 52
	default:
		return 252
	}
}

// IsValid reports whether the interval is one of the supported values.
func (i Interval) IsValid() bool {
	for _, v := range AllIntervals {
		if i == v {
			return true
		}
	}

	return false
}

// EquityPoint is one entry of the equity curve: total portfolio value
// (cash plus mark-to-market value of open positions) at a bar timestamp.
type EquityPoint struct {
	Time   time.Time `csv:"time" yaml:"time" json:"time"`
	Equity float64   `csv:"equity" yaml:"equity" json:"equity"`
}
