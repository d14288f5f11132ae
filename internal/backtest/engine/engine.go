// Package engine defines the backtest engine contract. Concrete engines live
// in versioned subpackages so result formats can evolve without breaking
// callers.
package engine

import (
	"context"

	"github.com/moznion/go-optional"

	"github.com/tradepruf/tradepruf/internal/backtest/engine/engine_v1/datasource"
	"github.com/tradepruf/tradepruf/internal/strategy"
)

// OnProgressCallback is called for each processed timeline point. Returning an
// error aborts the run.
type OnProgressCallback func(current int, total int) error

type Engine interface {
	// Initialize configures the engine from YAML content.
	Initialize(config string) error
	// SetDataSource sets the market data source for the engine.
	SetDataSource(source datasource.DataSource) error
	// LoadStrategy sets the strategy whose signals drive the simulation.
	LoadStrategy(s strategy.Strategy) error
	// SetResultsFolder sets the output directory for run artifacts.
	SetResultsFolder(folder string) error
	// Run executes the backtest. The context can cancel a run in flight.
	Run(ctx context.Context, onProgress optional.Option[OnProgressCallback]) error
	// GetConfigSchema returns the JSON schema of the engine configuration.
	GetConfigSchema() (string, error)
}
