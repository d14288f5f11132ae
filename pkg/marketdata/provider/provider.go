// Package provider implements the market data download backends. Every
// provider converts its native candle format into types.Bar and streams the
// result through a writer, so the rest of the system never sees a
// provider-specific shape.
package provider

import (
	"context"
	"time"

	"github.com/polygon-io/client-go/rest/models"

	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/pkg/errors"
	"github.com/tradepruf/tradepruf/pkg/marketdata/writer"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
	ProviderYahoo   ProviderType = "yahoo"
)

// OnDownloadProgress reports download progress. current and total are in
// provider-specific units (bars, days, or pages).
type OnDownloadProgress = func(current float64, total float64, message string)

type Provider interface {
	// ConfigWriter configures the writer the downloaded bars are streamed to.
	ConfigWriter(w writer.MarketDataWriter)
	// Download fetches bars for the symbol and date range at the given
	// interval. It returns the path of the finalized output file.
	Download(ctx context.Context, symbol string, start time.Time, end time.Time, interval types.Interval, onProgress OnDownloadProgress) (path string, err error)
}

// NewMarketDataProvider creates a provider of the given type. config carries
// the provider-specific settings: the API key string for Polygon, ignored
// otherwise.
func NewMarketDataProvider(providerType ProviderType, config any) (Provider, error) {
	switch providerType {
	case ProviderBinance:
		return NewBinanceClient()
	case ProviderPolygon:
		apiKey, ok := config.(string)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidProvider, "polygon provider requires an API key string config")
		}

		return NewPolygonClient(apiKey)
	case ProviderYahoo:
		return NewYahooClient()
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}

// polygonAggParams maps an interval onto Polygon's multiplier and timespan.
func polygonAggParams(interval types.Interval) (int, models.Timespan, error) {
	switch interval {
	case types.Interval1m:
		return 1, models.Minute, nil
	case types.Interval5m:
		return 5, models.Minute, nil
	case types.Interval15m:
		return 15, models.Minute, nil
	case types.Interval30m:
		return 30, models.Minute, nil
	case types.Interval1h:
		return 1, models.Hour, nil
	case types.Interval4h:
		return 4, models.Hour, nil
	case types.Interval1d:
		return 1, models.Day, nil
	case types.Interval1w:
		return 1, models.Week, nil
	default:
		return 0, "", errors.Newf(errors.ErrCodeInvalidInterval, "polygon does not support interval %q", interval)
	}
}

// binanceInterval maps an interval onto Binance's kline interval string.
func binanceInterval(interval types.Interval) (string, error) {
	switch interval {
	case types.Interval1m, types.Interval5m, types.Interval15m, types.Interval30m,
		types.Interval1h, types.Interval4h, types.Interval1d:
		return string(interval), nil
	case types.Interval1w:
		return "1w", nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidInterval, "binance does not support interval %q", interval)
	}
}

// yahooInterval maps an interval onto Yahoo's chart API interval string.
func yahooInterval(interval types.Interval) (string, error) {
	switch interval {
	case types.Interval1m, types.Interval5m, types.Interval15m, types.Interval30m:
		return string(interval), nil
	case types.Interval1h:
		return "60m", nil
	case types.Interval1d:
		return "1d", nil
	case types.Interval1w:
		return "1wk", nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidInterval, "yahoo does not support interval %q", interval)
	}
}
