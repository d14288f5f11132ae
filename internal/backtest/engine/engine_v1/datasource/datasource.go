// Package datasource provides bar series access for the backtest engine.
// Sources must return bars ordered by time ascending; within a timestamp the
// per-symbol ordering is the engine's concern, not the source's.
package datasource

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/tradepruf/tradepruf/internal/types"
)

type DataSource interface {
	// Initialize loads market data from the given path. Parquet and CSV files
	// are supported, including glob patterns for batch loading.
	Initialize(path string) error
	// ReadAll yields every bar in time order, optionally bounded by start and
	// end (inclusive).
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Bar, error) bool)
	// ReadSymbol returns the bar series for one symbol in time order,
	// optionally bounded by start and end (inclusive).
	ReadSymbol(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.Bar, error)
	// Symbols returns the distinct symbols present, sorted.
	Symbols() ([]string, error)
	// Count returns the number of bars, optionally bounded by start and end.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Close releases any resources held by the source.
	Close() error
}
