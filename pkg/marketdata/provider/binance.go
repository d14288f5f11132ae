package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/pkg/errors"
	"github.com/tradepruf/tradepruf/pkg/marketdata/writer"
)

// binancePageSize is the kline limit per request imposed by the API.
const binancePageSize = 500

type BinanceClient struct {
	client *binance.Client
	writer writer.MarketDataWriter
}

func NewBinanceClient() (Provider, error) {
	// Public kline endpoints need no credentials.
	return &BinanceClient{
		client: binance.NewClient("", ""),
		writer: nil,
	}, nil
}

// ConfigWriter implements Provider.
func (c *BinanceClient) ConfigWriter(w writer.MarketDataWriter) {
	c.writer = w
}

// Download implements Provider by paging through Binance's klines API. The
// last close time of each page becomes the start of the next request.
func (c *BinanceClient) Download(ctx context.Context, symbol string, start time.Time, end time.Time, interval types.Interval, onProgress OnDownloadProgress) (string, error) {
	if c.writer == nil {
		return "", errors.New(errors.ErrCodeInvalidProvider, "no writer configured for BinanceClient, call ConfigWriter first")
	}

	binInterval, err := binanceInterval(interval)
	if err != nil {
		return "", err
	}

	startMillis := start.UnixMilli()
	endMillis := end.UnixMilli()
	currentStart := startMillis

	for {
		klines, err := c.client.NewKlinesService().
			Symbol(symbol).
			Interval(binInterval).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(binancePageSize).
			Do(ctx)
		if err != nil {
			return "", errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err,
				"failed to fetch %s klines from binance", symbol)
		}

		if err := c.writeKlines(symbol, klines); err != nil {
			return "", err
		}

		if onProgress != nil {
			onProgress(float64(currentStart-startMillis), float64(endMillis-startMillis),
				fmt.Sprintf("Downloading %s from Binance", symbol))
		}

		if len(klines) < binancePageSize {
			break
		}

		currentStart = klines[len(klines)-1].CloseTime + 1
	}

	return c.writer.Finalize()
}

func (c *BinanceClient) writeKlines(symbol string, klines []*binance.Kline) error {
	for _, kline := range klines {
		bar, err := klineToBar(symbol, kline)
		if err != nil {
			return err
		}

		if err := c.writer.Write(bar); err != nil {
			return err
		}
	}

	return nil
}

// klineToBar converts a Binance kline, whose prices arrive as strings, into a
// Bar.
func klineToBar(symbol string, kline *binance.Kline) (types.Bar, error) {
	open, err := strconv.ParseFloat(kline.Open, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid open price", err)
	}

	high, err := strconv.ParseFloat(kline.High, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid high price", err)
	}

	low, err := strconv.ParseFloat(kline.Low, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid low price", err)
	}

	closePrice, err := strconv.ParseFloat(kline.Close, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid close price", err)
	}

	volume, err := strconv.ParseFloat(kline.Volume, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid volume", err)
	}

	return types.Bar{
		Time:   time.UnixMilli(kline.OpenTime).UTC(),
		Symbol: symbol,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}
