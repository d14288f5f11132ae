package writer

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepruf/tradepruf/internal/types"
)

func sampleBar(symbol string, day int, close float64) types.Bar {
	return types.Bar{
		Time:   time.Date(2024, 1, 1+day, 0, 0, 0, 0, time.UTC),
		Symbol: symbol,
		Open:   close,
		High:   close + 1,
		Low:    close - 1,
		Close:  close,
		Volume: 1000,
	}
}

func TestDuckDBWriterRoundTrip(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "AAPL.parquet")

	w := NewDuckDBWriter(outputPath)
	require.NoError(t, w.Initialize())

	defer w.Close()

	// Written out of order; Finalize sorts the export.
	require.NoError(t, w.Write(sampleBar("AAPL", 1, 101)))
	require.NoError(t, w.Write(sampleBar("AAPL", 0, 100)))

	path, err := w.Finalize()
	require.NoError(t, err)
	assert.Equal(t, outputPath, path)

	db, err := sql.Open("duckdb", ":memory:")
	require.NoError(t, err)

	defer db.Close()

	rows, err := db.Query("SELECT symbol, close FROM read_parquet(?) ORDER BY time ASC", outputPath)
	require.NoError(t, err)

	defer rows.Close()

	var closes []float64

	for rows.Next() {
		var symbol string

		var c float64

		require.NoError(t, rows.Scan(&symbol, &c))
		assert.Equal(t, "AAPL", symbol)

		closes = append(closes, c)
	}

	require.NoError(t, rows.Err())
	assert.Equal(t, []float64{100, 101}, closes)
}

func TestDuckDBWriterRequiresInitialize(t *testing.T) {
	w := NewDuckDBWriter(filepath.Join(t.TempDir(), "out.parquet"))

	assert.Error(t, w.Write(sampleBar("AAPL", 0, 100)))

	_, err := w.Finalize()
	assert.Error(t, err)
}

func TestDuckDBWriterCloseWithoutFinalize(t *testing.T) {
	w := NewDuckDBWriter(filepath.Join(t.TempDir(), "out.parquet"))
	require.NoError(t, w.Initialize())
	require.NoError(t, w.Write(sampleBar("AAPL", 0, 100)))

	// Close before Finalize discards the buffered bars without error.
	assert.NoError(t, w.Close())
}
