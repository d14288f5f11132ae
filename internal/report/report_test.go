package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/internal/version"
	"github.com/tradepruf/tradepruf/pkg/errors"
)

func sampleReport(id string) Report {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	return Report{
		Stats: types.RunStats{
			ID:             id,
			Timestamp:      start,
			FormatVersion:  version.ResultsFormatVersion,
			Strategy:       "sma",
			Symbols:        []string{"AAPL"},
			InitialCapital: 1000,
			FinalEquity:    900,
			Metrics: types.PerformanceMetrics{
				TotalTrades: 1,
				TotalReturn: -0.1,
				MaxDrawdown: 0.18,
			},
		},
		EquityCurve: []types.EquityPoint{
			{Time: start, Equity: 1000},
			{Time: start.AddDate(0, 0, 2), Equity: 900},
		},
		Trades: []types.Trade{
			{Seq: 1, Symbol: "AAPL", EntryPrice: 100, ExitPrice: 90, Quantity: 10, PnL: -100},
		},
	}
}

func TestWriteAndLoad(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, Write(dir, sampleReport("run-1")))

	loaded, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "run-1", loaded.Stats.ID)
	assert.Len(t, loaded.EquityCurve, 2)
	assert.Len(t, loaded.Trades, 1)
	assert.InDelta(t, -100, loaded.Trades[0].PnL, 1e-9)
}

func TestLoadRejectsIncompatibleFormat(t *testing.T) {
	dir := t.TempDir()

	r := sampleReport("run-1")
	r.Stats.FormatVersion = "99.0.0"
	require.NoError(t, Write(dir, r))

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeResultsIncompatible))
}

func TestLoadMissingReport(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()

	for _, sub := range []string{"sma/all_all", "ema/all_all"} {
		dir := filepath.Join(root, sub)
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, Write(dir, sampleReport(sub)))
	}

	dirs, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	assert.Equal(t, filepath.Join(root, "ema/all_all"), dirs[0])
	assert.Equal(t, filepath.Join(root, "sma/all_all"), dirs[1])
}

func TestRender(t *testing.T) {
	out := Render(sampleReport("run-1"))

	assert.Contains(t, out, "sma")
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "-10.00%")
	assert.Contains(t, out, "900.00")
}
