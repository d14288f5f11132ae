package engine

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tradepruf/tradepruf/internal/backtest/engine"
	"github.com/tradepruf/tradepruf/internal/backtest/engine/engine_v1/datasource"
	"github.com/tradepruf/tradepruf/internal/logger"
	"github.com/tradepruf/tradepruf/internal/report"
	"github.com/tradepruf/tradepruf/internal/strategy"
	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/internal/version"
	"github.com/tradepruf/tradepruf/pkg/errors"
)

// BacktestEngineV1 drives one strategy over one or more symbols sharing a
// single cash pool. Per-symbol signal streams are merged into a chronological
// timeline; signals sharing a timestamp are applied in config symbol order.
type BacktestEngineV1 struct {
	config        RunConfig
	strategy      strategy.Strategy
	datasource    datasource.DataSource
	resultsFolder string
	log           *logger.Logger
}

func NewBacktestEngineV1() engine.Engine {
	return &BacktestEngineV1{
		config:        DefaultConfig(),
		strategy:      nil,
		datasource:    nil,
		resultsFolder: "",
		log:           nil,
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	if err := yaml.Unmarshal([]byte(config), &b.config); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse engine config", err)
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	b.log = log

	if err := b.config.Validate(); err != nil {
		return err
	}

	b.log.Debug("Backtest engine initialized",
		zap.Float64("initial_capital", b.config.InitialCapital),
		zap.Float64("position_size_fraction", b.config.PositionSizeFraction),
		zap.Int("max_open_positions", b.config.MaxOpenPositions),
		zap.String("interval", string(b.config.Interval)),
	)

	return nil
}

// LoadStrategy implements engine.Engine.
func (b *BacktestEngineV1) LoadStrategy(s strategy.Strategy) error {
	b.strategy = s

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(source datasource.DataSource) error {
	b.datasource = source

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder

	return nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	return b.config.GenerateSchemaJSON()
}

// symbolSeries is one symbol's aligned bar and signal streams.
type symbolSeries struct {
	symbol  string
	signals []types.Signal
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, onProgress optional.Option[engine.OnProgressCallback]) error {
	if err := b.preRunCheck(); err != nil {
		return err
	}

	totalBars, err := b.datasource.Count(b.config.StartTime, b.config.EndTime)
	if err != nil {
		return err
	}

	if totalBars == 0 {
		return errors.New(errors.ErrCodeDataNotFound, "no bars in the configured time window")
	}

	b.log.Debug("Loaded market data", zap.Int("bars", totalBars))

	series, err := b.loadSeries()
	if err != nil {
		return err
	}

	ledger, err := NewTradeLedger(b.log)
	if err != nil {
		return err
	}
	defer ledger.Close()

	if err := ledger.Initialize(); err != nil {
		return err
	}

	symbolOrder := make([]string, 0, len(series))
	for _, s := range series {
		symbolOrder = append(symbolOrder, s.symbol)
	}

	timeline, err := b.buildTimeline(series)
	if err != nil {
		return err
	}

	simulator := NewPortfolioSimulator(b.config, ledger, b.log)

	for i, point := range timeline {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := simulator.ProcessTimelinePoint(point.ts, point.events); err != nil {
			return err
		}

		if onProgress.IsSome() {
			if err := onProgress.Unwrap()(i+1, len(timeline)); err != nil {
				return err
			}
		}
	}

	if len(timeline) > 0 {
		lastTs := timeline[len(timeline)-1].ts
		if err := simulator.CloseAll(lastTs, symbolOrder); err != nil {
			return err
		}
	}

	return b.writeResults(ledger, symbolOrder)
}

func (b *BacktestEngineV1) preRunCheck() error {
	if b.strategy == nil {
		return errors.New(errors.ErrCodeBacktestNoStrategy, "no strategy loaded")
	}

	if b.datasource == nil {
		return errors.New(errors.ErrCodeBacktestNoDatasource, "no data source set")
	}

	if b.resultsFolder == "" {
		return errors.New(errors.ErrCodeBacktestNoResultsDir, "no results folder set")
	}

	return nil
}

// loadSeries materializes the bar series and signal stream for every symbol.
// In portfolio mode a symbol whose stream cannot be produced is skipped with
// a warning; with a single symbol the same condition is fatal.
func (b *BacktestEngineV1) loadSeries() ([]symbolSeries, error) {
	symbols := b.config.Symbols

	if len(symbols) == 0 {
		var err error

		symbols, err = b.datasource.Symbols()
		if err != nil {
			return nil, err
		}
	}

	if len(symbols) == 0 {
		return nil, errors.New(errors.ErrCodeDataNotFound, "no symbols to simulate")
	}

	portfolioMode := len(symbols) > 1

	var series []symbolSeries

	for _, symbol := range symbols {
		s, err := b.loadSymbol(symbol)
		if err != nil {
			if !portfolioMode {
				return nil, err
			}

			b.log.Warn("Skipping symbol",
				zap.String("symbol", symbol),
				zap.Error(err),
			)

			continue
		}

		series = append(series, s)
	}

	if len(series) == 0 {
		return nil, errors.New(errors.ErrCodeDataNotFound, "no usable symbol series")
	}

	return series, nil
}

func (b *BacktestEngineV1) loadSymbol(symbol string) (symbolSeries, error) {
	bars, err := b.datasource.ReadSymbol(symbol, b.config.StartTime, b.config.EndTime)
	if err != nil {
		return symbolSeries{}, err
	}

	if len(bars) == 0 {
		return symbolSeries{}, errors.Newf(errors.ErrCodeDataNotFound, "no bars for symbol %s", symbol)
	}

	times := make([]int64, len(bars))
	for i, bar := range bars {
		times[i] = bar.Time.UnixNano()
	}

	if !isSortedStrictly(times) {
		return symbolSeries{}, errors.Newf(errors.ErrCodeDataNotSorted,
			"bars for %s are not strictly increasing in time", symbol)
	}

	signals, err := b.strategy.GenerateSignals(bars)
	if err != nil {
		return symbolSeries{}, errors.Wrapf(errors.ErrCodeSignalGeneration, err,
			"strategy %s failed on %s", b.strategy.Name(), symbol)
	}

	if len(signals) != len(bars) {
		return symbolSeries{}, errors.Newf(errors.ErrCodeDataAlignment,
			"strategy %s produced %d signals for %d bars of %s",
			b.strategy.Name(), len(signals), len(bars), symbol)
	}

	return symbolSeries{symbol: symbol, signals: signals}, nil
}

// timelinePoint is all events sharing one timestamp, in symbol order.
type timelinePoint struct {
	ts     time.Time
	events []TimelineEvent
}

// buildTimeline walks the datasource's time-ordered bar stream and groups it
// into timeline points, pairing each bar with the signal at the same index of
// its loaded series. Within a timestamp events follow the series order, so
// the configured symbol order decides who gets capital first. Bars for
// symbols outside the run are skipped.
func (b *BacktestEngineV1) buildTimeline(series []symbolSeries) ([]timelinePoint, error) {
	order := make(map[string]int, len(series))
	cursor := make(map[string]int, len(series))
	signals := make(map[string][]types.Signal, len(series))

	for i, s := range series {
		order[s.symbol] = i
		signals[s.symbol] = s.signals
	}

	var timeline []timelinePoint

	flush := func(ts time.Time, events []TimelineEvent) {
		sort.SliceStable(events, func(i, j int) bool {
			return order[events[i].Bar.Symbol] < order[events[j].Bar.Symbol]
		})

		timeline = append(timeline, timelinePoint{ts: ts, events: events})
	}

	var (
		pending   []TimelineEvent
		pendingTs time.Time
	)

	for bar, err := range b.datasource.ReadAll(b.config.StartTime, b.config.EndTime) {
		if err != nil {
			return nil, err
		}

		stream, ok := signals[bar.Symbol]
		if !ok {
			continue
		}

		i := cursor[bar.Symbol]
		if i >= len(stream) {
			return nil, errors.Newf(errors.ErrCodeDataAlignment,
				"datasource returned more bars for %s than its loaded series", bar.Symbol)
		}

		cursor[bar.Symbol] = i + 1

		if len(pending) > 0 && !bar.Time.Equal(pendingTs) {
			flush(pendingTs, pending)
			pending = nil
		}

		pendingTs = bar.Time
		pending = append(pending, TimelineEvent{Bar: bar, Signal: stream[i], BarIndex: i})
	}

	if len(pending) > 0 {
		flush(pendingTs, pending)
	}

	return timeline, nil
}

func (b *BacktestEngineV1) writeResults(ledger *TradeLedger, symbols []string) error {
	trades, err := ledger.Trades()
	if err != nil {
		return err
	}

	curve, err := ledger.EquityCurve()
	if err != nil {
		return err
	}

	symbolStats, err := ledger.SymbolStats()
	if err != nil {
		return err
	}

	metricTrades := trades
	if b.config.ExcludeForcedExits {
		metricTrades = make([]types.Trade, 0, len(trades))

		for _, trade := range trades {
			if !trade.ForcedExit {
				metricTrades = append(metricTrades, trade)
			}
		}
	}

	metrics := ComputeMetrics(b.config.InitialCapital, curve, metricTrades, b.config.Interval)

	finalEquity := b.config.InitialCapital
	if len(curve) > 0 {
		finalEquity = curve[len(curve)-1].Equity
	}

	resultDir := ResultFolder(b.resultsFolder, b.strategy.Name(), b.config.StartTime, b.config.EndTime)
	if err := os.MkdirAll(resultDir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create result folder", err)
	}

	if err := ledger.Write(resultDir); err != nil {
		return err
	}

	stats := types.RunStats{
		ID:             uuid.New().String(),
		Timestamp:      time.Now().UTC(),
		FormatVersion:  version.ResultsFormatVersion,
		Strategy:       b.strategy.Name(),
		Symbols:        symbols,
		Metrics:        metrics,
		SymbolStats:    symbolStats,
		InitialCapital: b.config.InitialCapital,
		FinalEquity:    finalEquity,
		TradesFilePath: filepath.Join(resultDir, "trades.parquet"),
		EquityFilePath: filepath.Join(resultDir, "equity.parquet"),
	}

	if err := types.WriteRunStats(filepath.Join(resultDir, "stats.yaml"), stats); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to write run stats", err)
	}

	if err := report.Write(resultDir, report.Report{
		Stats:       stats,
		EquityCurve: curve,
		Trades:      trades,
	}); err != nil {
		return err
	}

	b.log.Info("Backtest run complete",
		zap.String("run_id", stats.ID),
		zap.String("result_folder", resultDir),
		zap.Int("trades", len(trades)),
		zap.Float64("final_equity", finalEquity),
	)

	return nil
}
