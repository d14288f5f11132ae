package engine

import (
	"github.com/shopspring/decimal"

	"github.com/tradepruf/tradepruf/pkg/errors"
)

// PositionSizer converts available cash into an entry quantity. The budget is
// a fixed fraction of current cash, and the quantity is rounded down to a
// multiple of the minimum trade unit so the entry can never overspend it.
type PositionSizer struct {
	fraction decimal.Decimal
	unit     decimal.Decimal
}

func NewPositionSizer(fraction float64, minTradeUnit float64) *PositionSizer {
	return &PositionSizer{
		fraction: decimal.NewFromFloat(fraction),
		unit:     decimal.NewFromFloat(minTradeUnit),
	}
}

// Quantity returns the entry quantity for the given cash and price. A coded
// ErrCodeInsufficientCapital error is returned when the budget cannot afford
// even one trade unit; callers treat that as a skipped entry, not a failure.
func (s *PositionSizer) Quantity(cash decimal.Decimal, price decimal.Decimal) (decimal.Decimal, error) {
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidConfiguration, "entry price must be positive, got %s", price)
	}

	budget := cash.Mul(s.fraction)
	units := budget.Div(price).Div(s.unit).Floor()
	quantity := units.Mul(s.unit)

	if quantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errors.Newf(errors.ErrCodeInsufficientCapital,
			"budget %s cannot afford one unit at price %s", budget, price)
	}

	return quantity, nil
}
