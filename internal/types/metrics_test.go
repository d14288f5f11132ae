package types

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type MetricsTestSuite struct {
	suite.Suite
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func (suite *MetricsTestSuite) TestFlat() {
	metrics := PerformanceMetrics{
		TotalTrades:   3,
		WinningTrades: 2,
		LosingTrades:  1,
		WinRate:       2.0 / 3.0,
		TotalReturn:   0.15,
		MaxDrawdown:   0.05,
	}

	flat := metrics.Flat()
	suite.Equal(3.0, flat["total_trades"])
	suite.InDelta(2.0/3.0, flat["win_rate"], 1e-9)
	suite.InDelta(0.15, flat["total_return"], 1e-9)
	suite.InDelta(0.05, flat["max_drawdown"], 1e-9)
	suite.Len(flat, 11)
}

func (suite *MetricsTestSuite) TestWriteAndReadRunStats() {
	tmpDir := suite.T().TempDir()
	path := filepath.Join(tmpDir, "stats.yaml")

	stats := RunStats{
		ID:            "run-1",
		Timestamp:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		FormatVersion: "1.0.0",
		Strategy:      "sma",
		Symbols:       []string{"AAPL", "MSFT"},
		Metrics: PerformanceMetrics{
			TotalTrades: 5,
			TotalReturn: 0.1,
		},
		InitialCapital: 10000,
		FinalEquity:    11000,
	}

	err := WriteRunStats(path, stats)
	suite.Require().NoError(err)
	suite.Require().FileExists(path)

	loaded, err := ReadRunStats(path)
	suite.Require().NoError(err)
	suite.Equal(stats.ID, loaded.ID)
	suite.Equal(stats.Symbols, loaded.Symbols)
	suite.Equal(stats.Metrics.TotalTrades, loaded.Metrics.TotalTrades)
	suite.InDelta(stats.FinalEquity, loaded.FinalEquity, 1e-9)
}

func (suite *MetricsTestSuite) TestReadRunStatsMissingFile() {
	_, err := ReadRunStats(filepath.Join(suite.T().TempDir(), "missing.yaml"))
	suite.Error(err)
}
