package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PerformanceMetrics is the summary derived from the trade ledger and equity
// curve of one run. All ratios are fractions, not percentages. Degenerate
// inputs (empty ledger, zero variance, sub-day span) resolve to zero values,
// never to NaN or an error.
type PerformanceMetrics struct {
	TotalTrades   int `yaml:"total_trades" json:"total_trades"`
	WinningTrades int `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades  int `yaml:"losing_trades" json:"losing_trades"`
	// WinRate is winning trades over total trades; 0 with an empty ledger.
	WinRate float64 `yaml:"win_rate" json:"win_rate"`
	// AvgWin and AvgLoss are mean P&L of the winning/losing sets; 0 when empty.
	AvgWin  float64 `yaml:"avg_win" json:"avg_win"`
	AvgLoss float64 `yaml:"avg_loss" json:"avg_loss"`
	// TotalReturn is final equity over initial capital minus one.
	TotalReturn float64 `yaml:"total_return" json:"total_return"`
	// AnnualizedReturn compounds TotalReturn over the calendar span of the
	// equity curve; 0 when the span is under one day.
	AnnualizedReturn float64 `yaml:"annualized_return" json:"annualized_return"`
	// SharpeRatio is mean per-period return over its standard deviation,
	// annualized; 0 when the deviation is zero.
	SharpeRatio float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	// MaxDrawdown is the largest peak-to-trough equity decline, as a
	// positive fraction.
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// Volatility is the annualized standard deviation of per-period returns.
	Volatility float64 `yaml:"volatility" json:"volatility"`
}

// Flat returns the metrics as a flat mapping from metric name to numeric
// value, the form consumed by reporting collaborators.
func (m PerformanceMetrics) Flat() map[string]float64 {
	return map[string]float64{
		"total_trades":      float64(m.TotalTrades),
		"winning_trades":    float64(m.WinningTrades),
		"losing_trades":     float64(m.LosingTrades),
		"win_rate":          m.WinRate,
		"avg_win":           m.AvgWin,
		"avg_loss":          m.AvgLoss,
		"total_return":      m.TotalReturn,
		"annualized_return": m.AnnualizedReturn,
		"sharpe_ratio":      m.SharpeRatio,
		"max_drawdown":      m.MaxDrawdown,
		"volatility":        m.Volatility,
	}
}

// SymbolStats are per-symbol trade aggregates computed by the ledger.
type SymbolStats struct {
	Symbol        string  `yaml:"symbol" json:"symbol"`
	TotalTrades   int     `yaml:"total_trades" json:"total_trades"`
	WinningTrades int     `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades  int     `yaml:"losing_trades" json:"losing_trades"`
	WinRate       float64 `yaml:"win_rate" json:"win_rate"`
	RealizedPnL   float64 `yaml:"realized_pnl" json:"realized_pnl"`
	MaxProfit     float64 `yaml:"max_profit" json:"max_profit"`
	MaxLoss       float64 `yaml:"max_loss" json:"max_loss"`
	AvgHolding    float64 `yaml:"avg_holding_bars" json:"avg_holding_bars"`
}

// RunStats is the full per-run summary written to the results folder.
type RunStats struct {
	// ID is the unique identifier for this backtest run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when this backtest run was executed.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// FormatVersion is the results-format version, checked on load.
	FormatVersion string `yaml:"format_version" json:"format_version"`
	// Strategy is the name of the strategy that produced the signals.
	Strategy string `yaml:"strategy" json:"strategy"`
	// Symbols are the instruments simulated, in processing order.
	Symbols []string `yaml:"symbols" json:"symbols"`
	// Metrics is the portfolio-level summary.
	Metrics PerformanceMetrics `yaml:"metrics" json:"metrics"`
	// SymbolStats are the per-symbol aggregates.
	SymbolStats []SymbolStats `yaml:"symbol_stats" json:"symbol_stats"`
	// InitialCapital echoes the run configuration for the report reader.
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
	// FinalEquity is the last value of the equity curve.
	FinalEquity float64 `yaml:"final_equity" json:"final_equity"`
	// TradesFilePath and EquityFilePath point at the Parquet exports.
	TradesFilePath string `yaml:"trades_file_path" json:"trades_file_path"`
	EquityFilePath string `yaml:"equity_file_path" json:"equity_file_path"`
}

// WriteRunStats writes the stats to path as YAML.
func WriteRunStats(path string, stats RunStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal run stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run stats to file: %w", err)
	}

	return nil
}

// ReadRunStats reads a YAML stats file written by WriteRunStats.
func ReadRunStats(path string) (RunStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunStats{}, fmt.Errorf("failed to read run stats: %w", err)
	}

	var stats RunStats
	if err := yaml.Unmarshal(data, &stats); err != nil {
		return RunStats{}, fmt.Errorf("failed to unmarshal run stats: %w", err)
	}

	return stats, nil
}
