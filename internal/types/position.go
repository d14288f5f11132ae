package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionState is the per-symbol simulator state. The only legal transitions
// are FLAT -> OPEN on an accepted BUY and OPEN -> FLAT on an accepted SELL or
// end of series; everything else is ignored.
type PositionState string

const (
	PositionStateFlat PositionState = "FLAT"
	PositionStateOpen PositionState = "OPEN"
)

// Side of a position. The simulator is long-only; the field exists so the
// ledger schema does not change if shorts are ever added.
type Side string

const (
	SideLong Side = "LONG"
)

// Position is an open, unrealized holding in one symbol.
type Position struct {
	Symbol     string    `csv:"symbol" yaml:"symbol" json:"symbol"`
	EntryTime  time.Time `csv:"entry_time" yaml:"entry_time" json:"entry_time"`
	EntryPrice float64   `csv:"entry_price" yaml:"entry_price" json:"entry_price"`
	Quantity   float64   `csv:"quantity" yaml:"quantity" json:"quantity"`
	Side       Side      `csv:"side" yaml:"side" json:"side"`
	// EntryBarIndex is the index of the entry bar within the symbol's series,
	// used to compute holding periods in bars.
	EntryBarIndex int `csv:"-" yaml:"-" json:"-"`
}

// MarketValue returns the mark-to-market value of the position at the given price.
func (p *Position) MarketValue(price float64) decimal.Decimal {
	return decimal.NewFromFloat(p.Quantity).Mul(decimal.NewFromFloat(price))
}

// Trade is a closed, realized round trip (entry + exit). Immutable once
// appended to the ledger.
type Trade struct {
	// Seq is the run-scoped closure sequence number; ledger ordering follows it.
	Seq        int64     `csv:"seq" yaml:"seq" json:"seq"`
	Symbol     string    `csv:"symbol" yaml:"symbol" json:"symbol"`
	EntryTime  time.Time `csv:"entry_time" yaml:"entry_time" json:"entry_time"`
	EntryPrice float64   `csv:"entry_price" yaml:"entry_price" json:"entry_price"`
	ExitTime   time.Time `csv:"exit_time" yaml:"exit_time" json:"exit_time"`
	ExitPrice  float64   `csv:"exit_price" yaml:"exit_price" json:"exit_price"`
	Quantity   float64   `csv:"quantity" yaml:"quantity" json:"quantity"`
	// PnL is (exit_price - entry_price) * quantity, computed with decimal
	// arithmetic to avoid float drift.
	PnL float64 `csv:"pnl" yaml:"pnl" json:"pnl"`
	// ReturnPct is PnL divided by the entry cost, as a fraction.
	ReturnPct float64 `csv:"return_pct" yaml:"return_pct" json:"return_pct"`
	// HoldingBars is the number of bars between entry and exit.
	HoldingBars int `csv:"holding_bars" yaml:"holding_bars" json:"holding_bars"`
	// ForcedExit marks a closure triggered by reaching the end of the series
	// rather than a SELL signal. Metrics may exclude such trades.
	ForcedExit bool `csv:"forced_exit" yaml:"forced_exit" json:"forced_exit"`
}

// CloseTrade converts an open position into a closed Trade at the given exit.
func CloseTrade(seq int64, p *Position, exitTime time.Time, exitPrice float64, exitBarIndex int, forced bool) Trade {
	qty := decimal.NewFromFloat(p.Quantity)
	entry := decimal.NewFromFloat(p.EntryPrice)
	exit := decimal.NewFromFloat(exitPrice)

	pnl := exit.Sub(entry).Mul(qty)
	cost := entry.Mul(qty)

	returnPct := 0.0
	if !cost.IsZero() {
		returnPct, _ = pnl.Div(cost).Float64()
	}

	pnlF, _ := pnl.Float64()

	return Trade{
		Seq:         seq,
		Symbol:      p.Symbol,
		EntryTime:   p.EntryTime,
		EntryPrice:  p.EntryPrice,
		ExitTime:    exitTime,
		ExitPrice:   exitPrice,
		Quantity:    p.Quantity,
		PnL:         pnlF,
		ReturnPct:   returnPct,
		HoldingBars: exitBarIndex - p.EntryBarIndex,
		ForcedExit:  forced,
	}
}
