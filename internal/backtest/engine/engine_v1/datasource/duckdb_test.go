package datasource

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/tradepruf/tradepruf/internal/logger"
	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/pkg/errors"
	"github.com/tradepruf/tradepruf/pkg/marketdata/writer"
)

type DuckDBDataSourceTestSuite struct {
	suite.Suite
	source DataSource
}

func TestDuckDBDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DuckDBDataSourceTestSuite))
}

func (s *DuckDBDataSourceTestSuite) SetupTest() {
	log, err := logger.NewLogger()
	require.NoError(s.T(), err)

	source, err := NewDuckDBDataSource(":memory:", log)
	require.NoError(s.T(), err)
	s.source = source
}

func (s *DuckDBDataSourceTestSuite) TearDownTest() {
	if s.source != nil {
		s.source.Close()
	}
}

// writeCSV lays down a small two-symbol fixture: AAA has three daily bars,
// BBB only the first day.
func (s *DuckDBDataSourceTestSuite) writeCSV() string {
	path := filepath.Join(s.T().TempDir(), "bars.csv")
	content := `time,symbol,open,high,low,close,volume
2024-01-01 00:00:00,AAA,100,100,100,100,1000
2024-01-01 00:00:00,BBB,50,50,50,50,1000
2024-01-02 00:00:00,AAA,110,110,110,110,1000
2024-01-03 00:00:00,AAA,120,120,120,120,1000
`
	require.NoError(s.T(), os.WriteFile(path, []byte(content), 0644))

	return path
}

func (s *DuckDBDataSourceTestSuite) collect(start optional.Option[time.Time], end optional.Option[time.Time]) []types.Bar {
	var bars []types.Bar

	for bar, err := range s.source.ReadAll(start, end) {
		require.NoError(s.T(), err)
		bars = append(bars, bar)
	}

	return bars
}

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

func (s *DuckDBDataSourceTestSuite) TestInitializeCSV() {
	require.NoError(s.T(), s.source.Initialize(s.writeCSV()))

	symbols, err := s.source.Symbols()
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"AAA", "BBB"}, symbols)

	count, err := s.source.Count(optional.None[time.Time](), optional.None[time.Time]())
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 4, count)
}

func (s *DuckDBDataSourceTestSuite) TestInitializeParquet() {
	path := filepath.Join(s.T().TempDir(), "bars.parquet")

	w := writer.NewDuckDBWriter(path)
	require.NoError(s.T(), w.Initialize())

	defer w.Close()

	for i, c := range []float64{100, 110} {
		require.NoError(s.T(), w.Write(types.Bar{
			Time:   day(i + 1),
			Symbol: "AAA",
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}))
	}

	_, err := w.Finalize()
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.source.Initialize(path))

	bars, err := s.source.ReadSymbol("AAA", optional.None[time.Time](), optional.None[time.Time]())
	require.NoError(s.T(), err)
	require.Len(s.T(), bars, 2)
	assert.InDelta(s.T(), 100, bars[0].Close, 1e-9)
	assert.InDelta(s.T(), 110, bars[1].Close, 1e-9)
}

func (s *DuckDBDataSourceTestSuite) TestInitializeMissingFile() {
	err := s.source.Initialize(filepath.Join(s.T().TempDir(), "absent.parquet"))
	require.Error(s.T(), err)
	assert.True(s.T(), errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func (s *DuckDBDataSourceTestSuite) TestReadSymbolWindowInclusive() {
	require.NoError(s.T(), s.source.Initialize(s.writeCSV()))

	bars, err := s.source.ReadSymbol("AAA", optional.Some(day(2)), optional.Some(day(3)))
	require.NoError(s.T(), err)
	require.Len(s.T(), bars, 2)
	assert.InDelta(s.T(), 110, bars[0].Close, 1e-9)
	assert.InDelta(s.T(), 120, bars[1].Close, 1e-9)

	all, err := s.source.ReadSymbol("AAA", optional.None[time.Time](), optional.None[time.Time]())
	require.NoError(s.T(), err)
	assert.Len(s.T(), all, 3)
}

func (s *DuckDBDataSourceTestSuite) TestReadSymbolUnknownIsEmpty() {
	require.NoError(s.T(), s.source.Initialize(s.writeCSV()))

	bars, err := s.source.ReadSymbol("ZZZ", optional.None[time.Time](), optional.None[time.Time]())
	require.NoError(s.T(), err)
	assert.Empty(s.T(), bars)
}

func (s *DuckDBDataSourceTestSuite) TestReadAllOrdering() {
	require.NoError(s.T(), s.source.Initialize(s.writeCSV()))

	bars := s.collect(optional.None[time.Time](), optional.None[time.Time]())
	require.Len(s.T(), bars, 4)

	// Time ascending, symbol ascending within a timestamp.
	assert.Equal(s.T(), "AAA", bars[0].Symbol)
	assert.Equal(s.T(), "BBB", bars[1].Symbol)
	assert.True(s.T(), bars[0].Time.Equal(bars[1].Time))

	for i := 1; i < len(bars); i++ {
		assert.False(s.T(), bars[i].Time.Before(bars[i-1].Time))
	}
}

func (s *DuckDBDataSourceTestSuite) TestReadAllWindow() {
	require.NoError(s.T(), s.source.Initialize(s.writeCSV()))

	bars := s.collect(optional.Some(day(2)), optional.None[time.Time]())
	require.Len(s.T(), bars, 2)
	assert.True(s.T(), bars[0].Time.Equal(day(2)))
	assert.True(s.T(), bars[1].Time.Equal(day(3)))
}

func (s *DuckDBDataSourceTestSuite) TestCountWindow() {
	require.NoError(s.T(), s.source.Initialize(s.writeCSV()))

	count, err := s.source.Count(optional.Some(day(2)), optional.Some(day(2)))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, count)

	count, err = s.source.Count(optional.Some(day(4)), optional.None[time.Time]())
	require.NoError(s.T(), err)
	assert.Zero(s.T(), count)
}
