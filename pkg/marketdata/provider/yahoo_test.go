package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/pkg/errors"
)

// fakeWriter collects bars in memory for provider tests.
type fakeWriter struct {
	bars      []types.Bar
	finalized bool
}

func (f *fakeWriter) Initialize() error { return nil }

func (f *fakeWriter) Write(bar types.Bar) error {
	f.bars = append(f.bars, bar)

	return nil
}

func (f *fakeWriter) Finalize() (string, error) {
	f.finalized = true

	return "fake.parquet", nil
}

func (f *fakeWriter) Close() error { return nil }

func (f *fakeWriter) GetOutputPath() string { return "fake.parquet" }

func newTestYahooClient(serverURL string) *YahooClient {
	return &YahooClient{
		client:  resty.New().SetBaseURL(serverURL),
		limiter: rate.NewLimiter(rate.Inf, 1),
		writer:  nil,
	}
}

func TestYahooDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/AAPL", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.NotEmpty(t, r.URL.Query().Get("period1"))

		w.Header().Set("Content-Type", "application/json")
		// Three samples; the middle one has a zero close and must be skipped.
		_, _ = w.Write([]byte(`{
			"chart": {
				"result": [{
					"timestamp": [1704067200, 1704153600, 1704240000],
					"indicators": {
						"quote": [{
							"open":   [100, 0, 104],
							"high":   [101, 0, 105],
							"low":    [99, 0, 103],
							"close":  [100.5, 0, 104.5],
							"volume": [1000, 0, 1200]
						}]
					}
				}],
				"error": null
			}
		}`))
	}))
	defer server.Close()

	client := newTestYahooClient(server.URL)
	w := &fakeWriter{}
	client.ConfigWriter(w)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)

	path, err := client.Download(context.Background(), "AAPL", start, end, types.Interval1d, nil)
	require.NoError(t, err)
	assert.Equal(t, "fake.parquet", path)
	assert.True(t, w.finalized)

	require.Len(t, w.bars, 2)
	assert.Equal(t, "AAPL", w.bars[0].Symbol)
	assert.InDelta(t, 100.5, w.bars[0].Close, 1e-9)
	assert.InDelta(t, 104.5, w.bars[1].Close, 1e-9)
	assert.Equal(t, time.Unix(1704067200, 0).UTC(), w.bars[0].Time)
}

func TestYahooDownloadNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"chart": {"result": [], "error": null}}`))
	}))
	defer server.Close()

	client := newTestYahooClient(server.URL)
	client.ConfigWriter(&fakeWriter{})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := client.Download(context.Background(), "NOPE", start, start.AddDate(0, 0, 1), types.Interval1d, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func TestYahooDownloadServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestYahooClient(server.URL)
	client.ConfigWriter(&fakeWriter{})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := client.Download(context.Background(), "AAPL", start, start.AddDate(0, 0, 1), types.Interval1d, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMarketDataFetchFailed))
}
