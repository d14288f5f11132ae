package provider

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/pkg/errors"
	"github.com/tradepruf/tradepruf/pkg/marketdata/writer"
)

const (
	yahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

	// Yahoo has no published quota; two requests per second keeps us well
	// under the rejection threshold the community has observed.
	yahooRequestsPerSecond = 2
)

// yahooChartResponse mirrors the subset of the chart API response we consume.
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// YahooClient downloads bars from Yahoo Finance's unauthenticated chart API.
type YahooClient struct {
	client  *resty.Client
	limiter *rate.Limiter
	writer  writer.MarketDataWriter
}

func NewYahooClient() (Provider, error) {
	client := resty.New().
		SetBaseURL(yahooBaseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36")

	return &YahooClient{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(yahooRequestsPerSecond), 1),
		writer:  nil,
	}, nil
}

// ConfigWriter implements Provider.
func (c *YahooClient) ConfigWriter(w writer.MarketDataWriter) {
	c.writer = w
}

// Download implements Provider. The chart API returns the full range in one
// response, so there is no pagination.
func (c *YahooClient) Download(ctx context.Context, symbol string, start time.Time, end time.Time, interval types.Interval, onProgress OnDownloadProgress) (string, error) {
	if c.writer == nil {
		return "", errors.New(errors.ErrCodeInvalidProvider, "no writer configured for YahooClient, call ConfigWriter first")
	}

	yInterval, err := yahooInterval(interval)
	if err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var chart yahooChartResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"period1":        strconv.FormatInt(start.Unix(), 10),
			"period2":        strconv.FormatInt(end.Unix(), 10),
			"interval":       yInterval,
			"includePrePost": "false",
			"events":         "div,split",
		}).
		SetResult(&chart).
		Get("/{symbol}")
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch %s from yahoo", symbol)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", errors.Newf(errors.ErrCodeMarketDataFetchFailed,
			"yahoo chart api returned status %d for %s", resp.StatusCode(), symbol)
	}

	if chart.Chart.Error != nil {
		return "", errors.Newf(errors.ErrCodeMarketDataFetchFailed, "yahoo chart api error: %v", chart.Chart.Error)
	}

	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return "", errors.Newf(errors.ErrCodeDataNotFound, "no data returned for symbol %s", symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	total := float64(len(result.Timestamp))

	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) ||
			i >= len(quote.Close) || i >= len(quote.Volume) {
			continue
		}

		// A zero close marks a missing sample in the chart API.
		if quote.Close[i] == 0 {
			continue
		}

		bar := types.Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Symbol: symbol,
			Open:   quote.Open[i],
			High:   quote.High[i],
			Low:    quote.Low[i],
			Close:  quote.Close[i],
			Volume: quote.Volume[i],
		}

		if err := c.writer.Write(bar); err != nil {
			return "", err
		}

		if onProgress != nil && (i+1)%1000 == 0 {
			onProgress(float64(i+1), total, fmt.Sprintf("Downloading %s from Yahoo", symbol))
		}
	}

	if onProgress != nil {
		onProgress(total, total, fmt.Sprintf("Downloaded %d bars of %s", len(result.Timestamp), symbol))
	}

	return c.writer.Finalize()
}
