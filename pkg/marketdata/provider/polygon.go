package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/pkg/errors"
	"github.com/tradepruf/tradepruf/pkg/marketdata/writer"
)

type PolygonClient struct {
	client *polygon.Client
	writer writer.MarketDataWriter
}

func NewPolygonClient(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidProvider, "polygon api key is required")
	}

	return &PolygonClient{
		client: polygon.New(apiKey),
		writer: nil,
	}, nil
}

// ConfigWriter implements Provider.
func (c *PolygonClient) ConfigWriter(w writer.MarketDataWriter) {
	c.writer = w
}

// Download implements Provider by paging through Polygon's aggregates API.
func (c *PolygonClient) Download(ctx context.Context, symbol string, start time.Time, end time.Time, interval types.Interval, onProgress OnDownloadProgress) (string, error) {
	if c.writer == nil {
		return "", errors.New(errors.ErrCodeInvalidProvider, "no writer configured for PolygonClient, call ConfigWriter first")
	}

	multiplier, timespan, err := polygonAggParams(interval)
	if err != nil {
		return "", err
	}

	totalDays := end.Sub(start).Hours()/24 + 1

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(50000)

	iter := c.client.ListAggs(ctx, params)
	processed := 0

	for iter.Next() {
		agg := iter.Item()

		bar := types.Bar{
			Time:   time.Time(agg.Timestamp),
			Symbol: symbol,
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		}

		if err := c.writer.Write(bar); err != nil {
			return "", err
		}

		processed++

		if onProgress != nil && processed%1000 == 0 {
			daysElapsed := time.Time(agg.Timestamp).Sub(start).Hours() / 24
			onProgress(daysElapsed, totalDays, fmt.Sprintf("Downloading %s from Polygon", symbol))
		}
	}

	if iter.Err() != nil {
		return "", errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, iter.Err(),
			"error iterating polygon aggregates for %s", symbol)
	}

	if onProgress != nil {
		onProgress(totalDays, totalDays, fmt.Sprintf("Downloaded %d bars of %s", processed, symbol))
	}

	return c.writer.Finalize()
}
