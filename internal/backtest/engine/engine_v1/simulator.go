package engine

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradepruf/tradepruf/internal/logger"
	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/pkg/errors"
)

// TimelineEvent pairs one symbol's bar with the signal the strategy emitted
// for it. Events sharing a timestamp form one timeline point.
type TimelineEvent struct {
	Bar    types.Bar
	Signal types.Signal
	// BarIndex is the bar's position within its symbol's series.
	BarIndex int
}

// PortfolioSimulator owns the shared cash pool and the per-symbol position
// state machines. Each symbol is FLAT or OPEN; a BUY while OPEN or a SELL
// while FLAT is ignored. Within a timeline point events are applied in the
// order given by the caller, which is what decides capital contention.
type PortfolioSimulator struct {
	cash   decimal.Decimal
	sizer  *PositionSizer
	ledger *TradeLedger
	logger *logger.Logger

	// maxOpen caps simultaneously open positions; zero means unlimited.
	maxOpen int

	positions    map[string]*types.Position
	lastClose    map[string]float64
	lastBarIndex map[string]int
	nextSeq      int64
}

func NewPortfolioSimulator(config RunConfig, ledger *TradeLedger, logger *logger.Logger) *PortfolioSimulator {
	return &PortfolioSimulator{
		cash:         decimal.NewFromFloat(config.InitialCapital),
		sizer:        NewPositionSizer(config.PositionSizeFraction, config.MinTradeUnit),
		ledger:       ledger,
		logger:       logger,
		maxOpen:      config.MaxOpenPositions,
		positions:    make(map[string]*types.Position),
		lastClose:    make(map[string]float64),
		lastBarIndex: make(map[string]int),
		nextSeq:      1,
	}
}

// Cash returns the current free cash.
func (s *PortfolioSimulator) Cash() decimal.Decimal {
	return s.cash
}

// OpenPositions returns the number of currently open positions.
func (s *PortfolioSimulator) OpenPositions() int {
	return len(s.positions)
}

// State returns the state machine position for a symbol.
func (s *PortfolioSimulator) State(symbol string) types.PositionState {
	if _, ok := s.positions[symbol]; ok {
		return types.PositionStateOpen
	}

	return types.PositionStateFlat
}

// ProcessTimelinePoint applies all events sharing one timestamp, in the given
// order, then records a single mark-to-market equity point. Execution price
// is always the close of the signal bar.
func (s *PortfolioSimulator) ProcessTimelinePoint(ts time.Time, events []TimelineEvent) error {
	for _, event := range events {
		s.lastClose[event.Bar.Symbol] = event.Bar.Close
		s.lastBarIndex[event.Bar.Symbol] = event.BarIndex

		switch event.Signal.Type {
		case types.SignalTypeBuy:
			if err := s.open(event); err != nil {
				return err
			}
		case types.SignalTypeSell:
			if err := s.close(event, false); err != nil {
				return err
			}
		case types.SignalTypeHold:
		}
	}

	return s.markToMarket(ts)
}

// CloseAll force-closes every open position at its last seen close price.
// Symbols are closed in the given order so re-runs produce identical ledgers.
func (s *PortfolioSimulator) CloseAll(ts time.Time, symbolOrder []string) error {
	for _, symbol := range symbolOrder {
		position, ok := s.positions[symbol]
		if !ok {
			continue
		}

		event := TimelineEvent{
			Bar: types.Bar{
				Time:   ts,
				Symbol: symbol,
				Close:  s.lastClose[symbol],
			},
			Signal: types.Signal{
				Time:   ts,
				Symbol: symbol,
				Type:   types.SignalTypeSell,
				Reason: "end of data",
			},
			BarIndex: s.lastBarIndex[symbol],
		}

		if err := s.close(event, true); err != nil {
			return err
		}

		s.logger.Debug("Force-closed position at end of data",
			zap.String("symbol", symbol),
			zap.Float64("exit_price", s.lastClose[symbol]),
			zap.Float64("quantity", position.Quantity),
		)
	}

	return nil
}

func (s *PortfolioSimulator) open(event TimelineEvent) error {
	symbol := event.Bar.Symbol

	if s.State(symbol) == types.PositionStateOpen {
		s.logger.Debug("Ignoring BUY while position is open", zap.String("symbol", symbol))

		return nil
	}

	if s.maxOpen > 0 && len(s.positions) >= s.maxOpen {
		s.logger.Debug("Ignoring BUY at max open positions",
			zap.String("symbol", symbol),
			zap.Int("max_open_positions", s.maxOpen),
		)

		return nil
	}

	price := decimal.NewFromFloat(event.Bar.Close)

	quantity, err := s.sizer.Quantity(s.cash, price)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeInsufficientCapital) {
			s.logger.Debug("Ignoring BUY with insufficient capital",
				zap.String("symbol", symbol),
				zap.String("cash", s.cash.String()),
				zap.Float64("price", event.Bar.Close),
			)

			return nil
		}

		return err
	}

	cost := quantity.Mul(price)

	if cost.GreaterThan(s.cash) {
		return errors.Newf(errors.ErrCodeIllegalTransition,
			"entry cost %s exceeds cash %s for %s", cost, s.cash, symbol)
	}

	s.cash = s.cash.Sub(cost)

	qtyF, _ := quantity.Float64()
	s.positions[symbol] = &types.Position{
		Symbol:        symbol,
		EntryTime:     event.Bar.Time,
		EntryPrice:    event.Bar.Close,
		Quantity:      qtyF,
		Side:          types.SideLong,
		EntryBarIndex: event.BarIndex,
	}

	return nil
}

func (s *PortfolioSimulator) close(event TimelineEvent, forced bool) error {
	symbol := event.Bar.Symbol

	position, ok := s.positions[symbol]
	if !ok {
		s.logger.Debug("Ignoring SELL while flat", zap.String("symbol", symbol))

		return nil
	}

	trade := types.CloseTrade(s.nextSeq, position, event.Bar.Time, event.Bar.Close, event.BarIndex, forced)
	if err := s.ledger.AppendTrade(trade); err != nil {
		return err
	}

	proceeds := decimal.NewFromFloat(position.Quantity).Mul(decimal.NewFromFloat(event.Bar.Close))
	s.cash = s.cash.Add(proceeds)
	s.nextSeq++

	delete(s.positions, symbol)

	return nil
}

// markToMarket appends one equity point valuing every open position at its
// most recent close.
func (s *PortfolioSimulator) markToMarket(ts time.Time) error {
	equity := s.cash

	for symbol, position := range s.positions {
		equity = equity.Add(position.MarketValue(s.lastClose[symbol]))
	}

	equityF, _ := equity.Float64()

	return s.ledger.AppendEquity(types.EquityPoint{Time: ts, Equity: equityF})
}
