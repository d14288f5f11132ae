package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/tradepruf/tradepruf/internal/logger"
	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/pkg/errors"
)

// TradeLedger is the append-only record of closed trades and the equity curve
// for one run, backed by an in-memory DuckDB database. Keeping it in SQL gives
// per-symbol aggregates for free and makes the Parquet export a single COPY.
type TradeLedger struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewTradeLedger(logger *logger.Logger) (*TradeLedger, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to open ledger database", err)
	}

	return &TradeLedger{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the trades and equity curve tables.
func (l *TradeLedger) Initialize() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			seq BIGINT PRIMARY KEY,
			symbol TEXT,
			entry_time TIMESTAMP,
			entry_price DOUBLE,
			exit_time TIMESTAMP,
			exit_price DOUBLE,
			quantity DOUBLE,
			pnl DOUBLE,
			return_pct DOUBLE,
			holding_bars INTEGER,
			forced_exit BOOLEAN
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create trades table", err)
	}

	_, err = l.db.Exec(`
		CREATE TABLE IF NOT EXISTS equity_curve (
			time TIMESTAMP PRIMARY KEY,
			equity DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create equity curve table", err)
	}

	return nil
}

// AppendTrade records a closed trade.
func (l *TradeLedger) AppendTrade(trade types.Trade) error {
	_, err := l.sq.
		Insert("trades").
		Columns(
			"seq", "symbol", "entry_time", "entry_price", "exit_time",
			"exit_price", "quantity", "pnl", "return_pct", "holding_bars", "forced_exit",
		).
		Values(
			trade.Seq, trade.Symbol, trade.EntryTime, trade.EntryPrice, trade.ExitTime,
			trade.ExitPrice, trade.Quantity, trade.PnL, trade.ReturnPct, trade.HoldingBars, trade.ForcedExit,
		).
		RunWith(l.db).
		Exec()
	if err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to append trade %d", trade.Seq)
	}

	return nil
}

// AppendEquity records one mark-to-market equity point.
func (l *TradeLedger) AppendEquity(point types.EquityPoint) error {
	_, err := l.sq.
		Insert("equity_curve").
		Columns("time", "equity").
		Values(point.Time, point.Equity).
		RunWith(l.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to append equity point", err)
	}

	return nil
}

// Trades returns all closed trades in closure order.
func (l *TradeLedger) Trades() ([]types.Trade, error) {
	rows, err := l.sq.
		Select(
			"seq", "symbol", "entry_time", "entry_price", "exit_time",
			"exit_price", "quantity", "pnl", "return_pct", "holding_bars", "forced_exit",
		).
		From("trades").
		OrderBy("seq ASC").
		RunWith(l.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trades", err)
	}
	defer rows.Close()

	var trades []types.Trade

	for rows.Next() {
		var trade types.Trade

		err := rows.Scan(
			&trade.Seq,
			&trade.Symbol,
			&trade.EntryTime,
			&trade.EntryPrice,
			&trade.ExitTime,
			&trade.ExitPrice,
			&trade.Quantity,
			&trade.PnL,
			&trade.ReturnPct,
			&trade.HoldingBars,
			&trade.ForcedExit,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan trade", err)
		}

		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating trades", err)
	}

	return trades, nil
}

// EquityCurve returns the equity points in time order.
func (l *TradeLedger) EquityCurve() ([]types.EquityPoint, error) {
	rows, err := l.sq.
		Select("time", "equity").
		From("equity_curve").
		OrderBy("time ASC").
		RunWith(l.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query equity curve", err)
	}
	defer rows.Close()

	var curve []types.EquityPoint

	for rows.Next() {
		var point types.EquityPoint
		if err := rows.Scan(&point.Time, &point.Equity); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan equity point", err)
		}

		curve = append(curve, point)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating equity curve", err)
	}

	return curve, nil
}

// SymbolStats computes per-symbol trade aggregates in SQL.
func (l *TradeLedger) SymbolStats() ([]types.SymbolStats, error) {
	rows, err := l.sq.
		Select(
			"symbol",
			"COUNT(*) AS total_trades",
			// DuckDB sums integers into HUGEINT, which the driver cannot scan
			// into an int, hence the casts.
			"CAST(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END) AS BIGINT) AS winning_trades",
			"CAST(SUM(CASE WHEN pnl < 0 THEN 1 ELSE 0 END) AS BIGINT) AS losing_trades",
			"SUM(pnl) AS realized_pnl",
			"MAX(pnl) AS max_profit",
			"MIN(pnl) AS max_loss",
			"AVG(holding_bars) AS avg_holding_bars",
		).
		From("trades").
		GroupBy("symbol").
		OrderBy("symbol ASC").
		RunWith(l.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query symbol stats", err)
	}
	defer rows.Close()

	var stats []types.SymbolStats

	for rows.Next() {
		var s types.SymbolStats

		err := rows.Scan(
			&s.Symbol,
			&s.TotalTrades,
			&s.WinningTrades,
			&s.LosingTrades,
			&s.RealizedPnL,
			&s.MaxProfit,
			&s.MaxLoss,
			&s.AvgHolding,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan symbol stats", err)
		}

		if s.TotalTrades > 0 {
			s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades)
		}

		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating symbol stats", err)
	}

	return stats, nil
}

// Write exports the trades and equity curve to Parquet files under dir.
func (l *TradeLedger) Write(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create results directory", err)
	}

	// Squirrel has no COPY support, so raw SQL here.
	tradesPath := filepath.Join(dir, "trades.parquet")

	_, err := l.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM trades ORDER BY seq ASC) TO '%s' (FORMAT PARQUET)`, tradesPath))
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to export trades to parquet", err)
	}

	equityPath := filepath.Join(dir, "equity.parquet")

	_, err = l.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM equity_curve ORDER BY time ASC) TO '%s' (FORMAT PARQUET)`, equityPath))
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to export equity curve to parquet", err)
	}

	l.logger.Info("Exported run artifacts",
		zap.String("trades", tradesPath),
		zap.String("equity", equityPath),
	)

	return nil
}

// Cleanup drops and recreates the tables, resetting the ledger for reuse.
func (l *TradeLedger) Cleanup() error {
	_, err := l.db.Exec(`
		DROP TABLE IF EXISTS trades;
		DROP TABLE IF EXISTS equity_curve;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop ledger tables", err)
	}

	return l.Initialize()
}

// Close releases the underlying database.
func (l *TradeLedger) Close() error {
	return l.db.Close()
}
