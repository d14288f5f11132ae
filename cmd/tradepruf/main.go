package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/tradepruf/tradepruf/internal/backtest/engine"
	engine_v1 "github.com/tradepruf/tradepruf/internal/backtest/engine/engine_v1"
	"github.com/tradepruf/tradepruf/internal/backtest/engine/engine_v1/datasource"
	"github.com/tradepruf/tradepruf/internal/logger"
	"github.com/tradepruf/tradepruf/internal/report"
	"github.com/tradepruf/tradepruf/internal/strategy"
	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/internal/version"
	"github.com/tradepruf/tradepruf/pkg/marketdata"
	"github.com/tradepruf/tradepruf/pkg/marketdata/provider"
)

const dateLayout = "2006-01-02"

func newLogger(cmd *cli.Command) (*logger.Logger, error) {
	if cmd.Bool("verbose") {
		return logger.NewDevelopmentLogger()
	}

	return logger.NewLogger()
}

// parseParams turns repeated key=value flags into strategy parameters.
func parseParams(raw []string) (strategy.Params, error) {
	params := strategy.Params{}

	for _, kv := range raw {
		key, value, found := strings.Cut(kv, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", kv)
		}

		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid parameter value %q: %w", kv, err)
		}

		params[key] = f
	}

	return params, nil
}

// buildConfigYAML assembles the run config from CLI flags. A --config file
// takes precedence and is passed through untouched.
func buildConfigYAML(cmd *cli.Command) (string, error) {
	if path := cmd.String("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read config file: %w", err)
		}

		return string(data), nil
	}

	raw := struct {
		InitialCapital       float64    `yaml:"initial_capital"`
		PositionSizeFraction float64    `yaml:"position_size_fraction"`
		MaxOpenPositions     int        `yaml:"max_open_positions"`
		MinTradeUnit         float64    `yaml:"min_trade_unit"`
		Interval             string     `yaml:"interval"`
		Symbols              []string   `yaml:"symbols,omitempty"`
		StartTime            *time.Time `yaml:"start_time,omitempty"`
		EndTime              *time.Time `yaml:"end_time,omitempty"`
		ExcludeForcedExits   bool       `yaml:"exclude_forced_exits"`
	}{
		InitialCapital:       cmd.Float("capital"),
		PositionSizeFraction: cmd.Float("size-fraction"),
		MaxOpenPositions:     int(cmd.Int("max-open")),
		MinTradeUnit:         cmd.Float("trade-unit"),
		Interval:             cmd.String("interval"),
		Symbols:              cmd.StringSlice("symbols"),
		ExcludeForcedExits:   cmd.Bool("exclude-forced"),
	}

	if start := cmd.Timestamp("start"); !start.IsZero() {
		raw.StartTime = &start
	}

	if end := cmd.Timestamp("end"); !end.IsZero() {
		raw.EndTime = &end
	}

	data, err := yaml.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	return string(data), nil
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	return runBacktest(ctx, cmd)
}

// portfolioAction is backtestAction with an explicit multi-symbol contract:
// the run shares one cash pool across at least two symbols.
func portfolioAction(ctx context.Context, cmd *cli.Command) error {
	if len(cmd.StringSlice("symbols")) < 2 {
		return fmt.Errorf("portfolio runs need at least two --symbols")
	}

	return runBacktest(ctx, cmd)
}

func runBacktest(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}

	configYAML, err := buildConfigYAML(cmd)
	if err != nil {
		return err
	}

	params, err := parseParams(cmd.StringSlice("param"))
	if err != nil {
		return err
	}

	strat, err := strategy.New(cmd.String("strategy"), params)
	if err != nil {
		return err
	}

	source, err := datasource.NewDuckDBDataSource(":memory:", log)
	if err != nil {
		return err
	}
	defer source.Close()

	if err := source.Initialize(cmd.String("data")); err != nil {
		return err
	}

	backtester := engine_v1.NewBacktestEngineV1()
	if err := backtester.Initialize(configYAML); err != nil {
		return err
	}

	if err := backtester.SetDataSource(source); err != nil {
		return err
	}

	if err := backtester.LoadStrategy(strat); err != nil {
		return err
	}

	resultsRoot := cmd.String("results")
	if err := backtester.SetResultsFolder(resultsRoot); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	onProgress := engine.OnProgressCallback(func(current, total int) error {
		if bar == nil {
			bar = progressbar.Default(int64(total))
		}

		return bar.Set(current)
	})

	if err := backtester.Run(ctx, optional.Some(onProgress)); err != nil {
		return err
	}

	var config engine_v1.RunConfig
	if err := yaml.Unmarshal([]byte(configYAML), &config); err != nil {
		return err
	}

	resultDir := engine_v1.ResultFolder(resultsRoot, strat.Name(), config.StartTime, config.EndTime)

	result, err := report.Load(resultDir)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(report.Render(result))
	fmt.Printf("Results written to %s\n", resultDir)

	return nil
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	interval := types.Interval(cmd.String("interval"))

	var bar *progressbar.ProgressBar

	onProgress := provider.OnDownloadProgress(func(current, total float64, message string) {
		if bar == nil {
			bar = progressbar.NewOptions(int(total),
				progressbar.OptionSetDescription(message),
				progressbar.OptionShowCount(),
			)
		}

		bar.Set(int(current)) //nolint:errcheck // progress display only
	})

	client, err := marketdata.NewClient(marketdata.ClientConfig{
		ProviderType:  provider.ProviderType(cmd.String("provider")),
		WriterType:    marketdata.WriterType(cmd.String("writer")),
		DataPath:      cmd.String("data"),
		PolygonAPIKey: os.Getenv("POLYGON_API_KEY"),
	}, onProgress)
	if err != nil {
		return fmt.Errorf("failed to create market data client: %w", err)
	}

	path, err := client.Download(ctx, marketdata.DownloadParams{
		Symbol:    cmd.String("symbol"),
		StartDate: cmd.Timestamp("start"),
		EndDate:   cmd.Timestamp("end"),
		Interval:  interval,
	})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	fmt.Printf("\nDownloaded %s to %s\n", cmd.String("symbol"), path)

	return nil
}

func schemaAction(ctx context.Context, cmd *cli.Command) error {
	backtester := engine_v1.NewBacktestEngineV1()

	schema, err := backtester.GetConfigSchema()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func reportAction(ctx context.Context, cmd *cli.Command) error {
	dirs, err := report.Discover(cmd.String("results"))
	if err != nil {
		return err
	}

	if len(dirs) == 0 {
		return fmt.Errorf("no reports found under %s", cmd.String("results"))
	}

	for _, dir := range dirs {
		result, err := report.Load(dir)
		if err != nil {
			return err
		}

		fmt.Println(report.Render(result))
	}

	return nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}

	server := report.NewServer(cmd.String("results"), log)
	addr := cmd.String("addr")

	fmt.Printf("Serving results from %s on %s\n", cmd.String("results"), addr)

	return http.ListenAndServe(addr, server.Handler())
}

func timestampFlag(name, alias, usage string, required bool) *cli.TimestampFlag {
	return &cli.TimestampFlag{
		Name:     name,
		Aliases:  []string{alias},
		Usage:    usage,
		Required: required,
		Config: cli.TimestampConfig{
			Layouts: []string{dateLayout},
		},
	}
}

func backtestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "data",
			Aliases:  []string{"d"},
			Usage:    "Path to the market data file (parquet or csv, globs allowed)",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "strategy",
			Aliases: []string{"S"},
			Usage:   fmt.Sprintf("Strategy to run (one of %s)", strings.Join(strategy.Names(), ", ")),
			Value:   "sma",
		},
		&cli.StringSliceFlag{
			Name:    "param",
			Aliases: []string{"p"},
			Usage:   "Strategy parameter as key=value, repeatable",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a run config YAML file, overrides the sizing flags",
		},
		&cli.StringFlag{
			Name:    "results",
			Aliases: []string{"r"},
			Usage:   "Root directory for run results",
			Value:   "results",
		},
		&cli.StringSliceFlag{
			Name:  "symbols",
			Usage: "Symbols to simulate, in capital priority order. Defaults to every symbol in the data",
		},
		&cli.FloatFlag{
			Name:  "capital",
			Usage: "Initial capital",
			Value: 10000,
		},
		&cli.FloatFlag{
			Name:  "size-fraction",
			Usage: "Fraction of current cash committed per entry",
			Value: 1.0,
		},
		&cli.IntFlag{
			Name:  "max-open",
			Usage: "Cap on simultaneously open positions, 0 for unlimited",
		},
		&cli.FloatFlag{
			Name:  "trade-unit",
			Usage: "Quantity granularity, entries round down to a multiple of this",
			Value: 1.0,
		},
		&cli.StringFlag{
			Name:  "interval",
			Usage: "Bar interval of the input data",
			Value: string(types.Interval1d),
		},
		&cli.BoolFlag{
			Name:  "exclude-forced",
			Usage: "Drop end-of-data closes from the win-rate statistics",
		},
		timestampFlag("start", "s", "Inclusive start date (YYYY-MM-DD)", false),
		timestampFlag("end", "e", "Inclusive end date (YYYY-MM-DD)", false),
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Human-readable debug logging",
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "tradepruf",
		Usage:   "Backtest trading strategies over historical bar data",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:   "backtest",
				Usage:  "Run a strategy over historical data and write a report",
				Flags:  backtestFlags(),
				Action: backtestAction,
			},
			{
				Name:   "portfolio",
				Usage:  "Run a strategy over several symbols sharing one cash pool",
				Flags:  backtestFlags(),
				Action: portfolioAction,
			},
			{
				Name:   "download",
				Usage:  "Download historical market data",
				Action: downloadAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "symbol",
						Aliases:  []string{"t"},
						Usage:    "Ticker symbol to download",
						Required: true,
					},
					timestampFlag("start", "s", "Start date (YYYY-MM-DD)", true),
					&cli.TimestampFlag{
						Name:    "end",
						Aliases: []string{"e"},
						Usage:   "End date (YYYY-MM-DD), defaults to today",
						Value:   time.Now(),
						Config: cli.TimestampConfig{
							Layouts: []string{dateLayout},
						},
					},
					&cli.StringFlag{
						Name:    "provider",
						Aliases: []string{"P"},
						Usage: fmt.Sprintf("Data provider (%s, %s, %s)",
							provider.ProviderYahoo, provider.ProviderPolygon, provider.ProviderBinance),
						Value: string(provider.ProviderYahoo),
					},
					&cli.StringFlag{
						Name:    "writer",
						Aliases: []string{"w"},
						Usage:   fmt.Sprintf("Data writer format (e.g., %s)", marketdata.WriterDuckDB),
						Value:   string(marketdata.WriterDuckDB),
					},
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "Output directory for downloaded data",
						Value:   "data",
					},
					&cli.StringFlag{
						Name:    "interval",
						Aliases: []string{"i"},
						Usage:   "Bar interval to download",
						Value:   string(types.Interval1d),
					},
				},
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the run config",
				Action: schemaAction,
			},
			{
				Name:   "report",
				Usage:  "Render every report found under a results directory",
				Action: reportAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "results",
						Aliases: []string{"r"},
						Usage:   "Root directory of run results",
						Value:   "results",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve run results over HTTP",
				Action: serveAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "results",
						Aliases: []string{"r"},
						Usage:   "Root directory of run results",
						Value:   "results",
					},
					&cli.StringFlag{
						Name:    "addr",
						Aliases: []string{"a"},
						Usage:   "Listen address",
						Value:   ":8080",
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "Human-readable debug logging",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
