package types

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type MarketTestSuite struct {
	suite.Suite
}

func TestMarketSuite(t *testing.T) {
	suite.Run(t, new(MarketTestSuite))
}

func (suite *MarketTestSuite) TestPeriodsPerYear() {
	tests := []struct {
		interval Interval
		expected float64
	}{
		{Interval1d, 252},
		{Interval1w, 52},
		{Interval1h, 252 * 6.5},
		{Interval1m, 252 * 6.5 * 60},
		{Interval("unknown"), 252},
	}

	for _, tt := range tests {
		suite.Run(string(tt.interval), func() {
			suite.InDelta(tt.expected, tt.interval.PeriodsPerYear(), 1e-9)
		})
	}
}

func (suite *MarketTestSuite) TestIsValid() {
	for _, interval := range AllIntervals {
		suite.True(interval.IsValid(), "interval %s should be valid", interval)
	}

	suite.False(Interval("2d").IsValid())
	suite.False(Interval("").IsValid())
}
