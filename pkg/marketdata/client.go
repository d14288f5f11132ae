// Package marketdata ties a download provider to a writer and adds parameter
// validation plus a short-lived download cache, so repeated backtest
// invocations over the same range do not hammer the upstream APIs.
package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	gocache "github.com/patrickmn/go-cache"

	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/pkg/errors"
	"github.com/tradepruf/tradepruf/pkg/marketdata/provider"
	"github.com/tradepruf/tradepruf/pkg/marketdata/writer"
)

// WriterType defines the type of market data writer.
type WriterType string

const (
	WriterDuckDB WriterType = "duckdb"
)

// defaultCacheTTL bounds how long a downloaded file is reused before a fresh
// download is forced.
const defaultCacheTTL = 15 * time.Minute

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	ProviderType  provider.ProviderType `validate:"required,oneof=polygon binance yahoo"`
	WriterType    WriterType            `validate:"required,oneof=duckdb"`
	DataPath      string                `validate:"required"`
	PolygonAPIKey string                `validate:"required_if=ProviderType polygon"`
	// CacheTTL overrides the default download cache lifetime when positive.
	CacheTTL time.Duration `validate:"omitempty"`
}

// DownloadParams holds the parameters for a market data download request.
type DownloadParams struct {
	Symbol    string         `validate:"required"`
	StartDate time.Time      `validate:"required"`
	EndDate   time.Time      `validate:"required,gtfield=StartDate"`
	Interval  types.Interval `validate:"required"`
}

// Client downloads market data from a provider and stores it via a writer.
type Client struct {
	provider   provider.Provider
	config     ClientConfig
	validate   *validator.Validate
	cache      *gocache.Cache
	onProgress provider.OnDownloadProgress
}

// NewClient creates a market data client with the given configuration.
func NewClient(config ClientConfig, onProgress provider.OnDownloadProgress) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	var providerConfig any
	if config.ProviderType == provider.ProviderPolygon {
		providerConfig = config.PolygonAPIKey
	}

	marketProvider, err := provider.NewMarketDataProvider(config.ProviderType, providerConfig)
	if err != nil {
		return nil, err
	}

	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &Client{
		provider:   marketProvider,
		config:     config,
		validate:   validate,
		cache:      gocache.New(ttl, 2*ttl),
		onProgress: onProgress,
	}, nil
}

// Download fetches the requested range and returns the path of the resulting
// data file. A cached path from a recent identical request is returned
// without contacting the provider, as long as the file still exists.
func (c *Client) Download(ctx context.Context, params DownloadParams) (string, error) {
	if err := c.validate.Struct(params); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid download parameters", err)
	}

	if !params.Interval.IsValid() {
		return "", errors.Newf(errors.ErrCodeInvalidInterval, "unknown interval %q", params.Interval)
	}

	cacheKey := c.downloadKey(params)
	if cached, found := c.cache.Get(cacheKey); found {
		path, ok := cached.(string)
		if ok {
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		c.cache.Delete(cacheKey)
	}

	marketWriter, err := c.setupWriter(params)
	if err != nil {
		return "", err
	}
	defer marketWriter.Close()

	c.provider.ConfigWriter(marketWriter)

	path, err := c.provider.Download(ctx, params.Symbol, params.StartDate, params.EndDate, params.Interval, c.onProgress)
	if err != nil {
		return "", err
	}

	c.cache.SetDefault(cacheKey, path)

	return path, nil
}

func (c *Client) downloadKey(params DownloadParams) string {
	return fmt.Sprintf("%s_%s_%s_%s_%s",
		c.config.ProviderType,
		params.Symbol,
		params.StartDate.Format("2006-01-02"),
		params.EndDate.Format("2006-01-02"),
		params.Interval,
	)
}

// setupWriter initializes the writer for one download request.
func (c *Client) setupWriter(params DownloadParams) (writer.MarketDataWriter, error) {
	switch c.config.WriterType {
	case WriterDuckDB:
		fileName := fmt.Sprintf("%s_%s_%s_%s.parquet",
			params.Symbol,
			params.StartDate.Format("2006-01-02"),
			params.EndDate.Format("2006-01-02"),
			params.Interval,
		)
		outputPath := filepath.Join(c.config.DataPath, fileName)

		if _, err := os.Stat(c.config.DataPath); os.IsNotExist(err) {
			if err := os.MkdirAll(c.config.DataPath, 0755); err != nil {
				return nil, errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to create data path", err)
			}
		}

		duckdbWriter := writer.NewDuckDBWriter(outputPath)
		if err := duckdbWriter.Initialize(); err != nil {
			return nil, err
		}

		return duckdbWriter, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported writer type: %s", c.config.WriterType)
	}
}
