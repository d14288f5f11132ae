package datasource

import (
	"sort"
	"time"

	"github.com/moznion/go-optional"

	"github.com/tradepruf/tradepruf/internal/types"
)

// InMemoryDataSource serves bars from a slice. It backs programmatic runs
// where the caller already holds the series, and keeps engine tests off the
// filesystem.
type InMemoryDataSource struct {
	bars     []types.Bar
	bySymbol map[string][]types.Bar
}

// NewInMemoryDataSource builds a source from bars. The input is re-sorted by
// time so callers can append series per symbol in any order.
func NewInMemoryDataSource(bars []types.Bar) DataSource {
	sorted := make([]types.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Time.Equal(sorted[j].Time) {
			return sorted[i].Symbol < sorted[j].Symbol
		}

		return sorted[i].Time.Before(sorted[j].Time)
	})

	bySymbol := make(map[string][]types.Bar)
	for _, bar := range sorted {
		bySymbol[bar.Symbol] = append(bySymbol[bar.Symbol], bar)
	}

	return &InMemoryDataSource{bars: sorted, bySymbol: bySymbol}
}

// Initialize implements DataSource. The in-memory source holds its data from
// construction, so this is a no-op.
func (m *InMemoryDataSource) Initialize(path string) error {
	return nil
}

// ReadAll implements DataSource.
func (m *InMemoryDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		for _, bar := range m.bars {
			if !inRange(bar.Time, start, end) {
				continue
			}

			if !yield(bar, nil) {
				return
			}
		}
	}
}

// ReadSymbol implements DataSource.
func (m *InMemoryDataSource) ReadSymbol(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.Bar, error) {
	var out []types.Bar

	for _, bar := range m.bySymbol[symbol] {
		if inRange(bar.Time, start, end) {
			out = append(out, bar)
		}
	}

	return out, nil
}

// Symbols implements DataSource.
func (m *InMemoryDataSource) Symbols() ([]string, error) {
	symbols := make([]string, 0, len(m.bySymbol))
	for symbol := range m.bySymbol {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols, nil
}

// Count implements DataSource.
func (m *InMemoryDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	count := 0

	for _, bar := range m.bars {
		if inRange(bar.Time, start, end) {
			count++
		}
	}

	return count, nil
}

// Close implements DataSource.
func (m *InMemoryDataSource) Close() error {
	return nil
}

func inRange(t time.Time, start optional.Option[time.Time], end optional.Option[time.Time]) bool {
	if start.IsSome() && t.Before(start.Unwrap()) {
		return false
	}

	if end.IsSome() && t.After(end.Unwrap()) {
		return false
	}

	return true
}
