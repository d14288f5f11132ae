package datasource

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepruf/tradepruf/internal/types"
)

func memBar(symbol string, dayOfMonth int, close float64) types.Bar {
	return types.Bar{
		Time:   day(dayOfMonth),
		Symbol: symbol,
		Open:   close,
		High:   close,
		Low:    close,
		Close:  close,
		Volume: 1000,
	}
}

// newMemSource builds a source from deliberately shuffled input so the tests
// exercise the constructor's re-sort.
func newMemSource() DataSource {
	return NewInMemoryDataSource([]types.Bar{
		memBar("BBB", 2, 52),
		memBar("AAA", 1, 100),
		memBar("BBB", 1, 50),
		memBar("AAA", 3, 120),
		memBar("AAA", 2, 110),
	})
}

func collectAll(t *testing.T, source DataSource, start optional.Option[time.Time], end optional.Option[time.Time]) []types.Bar {
	t.Helper()

	var bars []types.Bar

	for bar, err := range source.ReadAll(start, end) {
		require.NoError(t, err)
		bars = append(bars, bar)
	}

	return bars
}

func TestInMemoryReadAllOrdering(t *testing.T) {
	bars := collectAll(t, newMemSource(), optional.None[time.Time](), optional.None[time.Time]())
	require.Len(t, bars, 5)

	// Time ascending, symbol ascending within a timestamp.
	wantSymbols := []string{"AAA", "BBB", "AAA", "BBB", "AAA"}
	for i, bar := range bars {
		assert.Equal(t, wantSymbols[i], bar.Symbol, "bar %d", i)
	}

	for i := 1; i < len(bars); i++ {
		assert.False(t, bars[i].Time.Before(bars[i-1].Time))
	}
}

func TestInMemoryReadAllWindow(t *testing.T) {
	bars := collectAll(t, newMemSource(), optional.Some(day(2)), optional.Some(day(2)))
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Time.Equal(day(2)))
	assert.True(t, bars[1].Time.Equal(day(2)))
}

func TestInMemoryReadAllEarlyStop(t *testing.T) {
	seen := 0

	for bar, err := range newMemSource().ReadAll(optional.None[time.Time](), optional.None[time.Time]()) {
		require.NoError(t, err)
		require.NotEmpty(t, bar.Symbol)

		seen++
		if seen == 2 {
			break
		}
	}

	assert.Equal(t, 2, seen)
}

func TestInMemoryReadSymbolWindow(t *testing.T) {
	source := newMemSource()

	bars, err := source.ReadSymbol("AAA", optional.Some(day(2)), optional.Some(day(3)))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.InDelta(t, 110, bars[0].Close, 1e-9)
	assert.InDelta(t, 120, bars[1].Close, 1e-9)

	missing, err := source.ReadSymbol("ZZZ", optional.None[time.Time](), optional.None[time.Time]())
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestInMemorySymbolsSorted(t *testing.T) {
	symbols, err := newMemSource().Symbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, symbols)
}

func TestInMemoryCount(t *testing.T) {
	source := newMemSource()

	count, err := source.Count(optional.None[time.Time](), optional.None[time.Time]())
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	count, err = source.Count(optional.Some(day(3)), optional.None[time.Time]())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInMemoryLifecycle(t *testing.T) {
	source := newMemSource()

	assert.NoError(t, source.Initialize("unused"))
	assert.NoError(t, source.Close())
}
