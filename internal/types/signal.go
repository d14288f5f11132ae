package types

import "time"

// SignalType is a discrete per-bar trading decision.
type SignalType string

const (
	// SignalTypeBuy tells the simulator to open a long position.
	SignalTypeBuy SignalType = "BUY"
	// SignalTypeSell tells the simulator to close the open position.
	SignalTypeSell SignalType = "SELL"
	// SignalTypeHold tells the simulator to take no action.
	SignalTypeHold SignalType = "HOLD"
)

// Signal is a trading decision bound to exactly one bar's timestamp.
type Signal struct {
	// Time is the timestamp of the bar this signal is aligned with.
	Time time.Time `yaml:"time" json:"time"`
	// Symbol is the instrument the signal applies to.
	Symbol string `yaml:"symbol" json:"symbol"`
	// Type is the trading decision.
	Type SignalType `yaml:"type" json:"type"`
	// Name is the name of the strategy that produced the signal.
	Name string `yaml:"name" json:"name"`
	// Reason optionally explains the decision (e.g. "fast MA crossed above slow MA").
	Reason string `yaml:"reason,omitempty" json:"reason,omitempty"`
}
