package provider

import (
	"context"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/pkg/errors"
)

func TestNewMarketDataProvider(t *testing.T) {
	t.Run("binance", func(t *testing.T) {
		p, err := NewMarketDataProvider(ProviderBinance, nil)
		require.NoError(t, err)
		assert.NotNil(t, p)
	})

	t.Run("yahoo", func(t *testing.T) {
		p, err := NewMarketDataProvider(ProviderYahoo, nil)
		require.NoError(t, err)
		assert.NotNil(t, p)
	})

	t.Run("polygon requires api key", func(t *testing.T) {
		_, err := NewMarketDataProvider(ProviderPolygon, nil)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidProvider))

		p, err := NewMarketDataProvider(ProviderPolygon, "test-key")
		require.NoError(t, err)
		assert.NotNil(t, p)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewMarketDataProvider("bloomberg", nil)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidProvider))
	})
}

func TestPolygonAggParams(t *testing.T) {
	tests := []struct {
		interval       types.Interval
		wantMultiplier int
		wantTimespan   models.Timespan
	}{
		{types.Interval1m, 1, models.Minute},
		{types.Interval5m, 5, models.Minute},
		{types.Interval1h, 1, models.Hour},
		{types.Interval4h, 4, models.Hour},
		{types.Interval1d, 1, models.Day},
		{types.Interval1w, 1, models.Week},
	}

	for _, tt := range tests {
		t.Run(string(tt.interval), func(t *testing.T) {
			multiplier, timespan, err := polygonAggParams(tt.interval)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMultiplier, multiplier)
			assert.Equal(t, tt.wantTimespan, timespan)
		})
	}

	_, _, err := polygonAggParams("7m")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInterval))
}

func TestBinanceInterval(t *testing.T) {
	got, err := binanceInterval(types.Interval1w)
	require.NoError(t, err)
	assert.Equal(t, "1w", got)

	got, err = binanceInterval(types.Interval4h)
	require.NoError(t, err)
	assert.Equal(t, "4h", got)

	_, err = binanceInterval("2h")
	assert.Error(t, err)
}

func TestYahooInterval(t *testing.T) {
	got, err := yahooInterval(types.Interval1h)
	require.NoError(t, err)
	assert.Equal(t, "60m", got)

	got, err = yahooInterval(types.Interval1w)
	require.NoError(t, err)
	assert.Equal(t, "1wk", got)

	_, err = yahooInterval(types.Interval4h)
	assert.Error(t, err)
}

func TestDownloadRequiresWriter(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	providers := map[string]Provider{}

	binanceClient, err := NewBinanceClient()
	require.NoError(t, err)
	providers["binance"] = binanceClient

	polygonClient, err := NewPolygonClient("test-key")
	require.NoError(t, err)
	providers["polygon"] = polygonClient

	yahooClient, err := NewYahooClient()
	require.NoError(t, err)
	providers["yahoo"] = yahooClient

	for name, p := range providers {
		t.Run(name, func(t *testing.T) {
			_, err := p.Download(context.Background(), "AAPL", start, end, types.Interval1d, nil)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidProvider))
		})
	}
}
