package datasource

import (
	"database/sql"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/tradepruf/tradepruf/internal/logger"
	"github.com/tradepruf/tradepruf/internal/types"
	"github.com/tradepruf/tradepruf/pkg/errors"
)

// DuckDBDataSource serves bars out of a DuckDB view over Parquet or CSV
// files. Filtering and ordering happen in SQL so large datasets never have to
// fit in memory at once.
type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBDataSource opens a DuckDB database at the given path. Use ":memory:"
// for an ephemeral database. Initialize() loads the market data afterwards.
func NewDuckDBDataSource(path string, logger *logger.Logger) (DataSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to open duckdb", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements DataSource.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	_, err := d.db.Exec(`DROP VIEW IF EXISTS bars;`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop existing view", err)
	}

	// Squirrel has no CREATE VIEW support, so raw SQL here.
	var reader string

	switch strings.ToLower(filepath.Ext(strings.TrimSuffix(path, "*"))) {
	case ".csv":
		reader = "read_csv_auto"
	default:
		reader = "read_parquet"
	}

	_, err = d.db.Exec(`
		CREATE VIEW bars AS
		SELECT time, symbol, open, high, low, close, volume
		FROM ` + reader + `('` + path + `');
	`)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to load market data from %s", path)
	}

	return nil
}

// ReadAll implements DataSource.
func (d *DuckDBDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		query := d.sq.
			Select("time", "symbol", "open", "high", "low", "close", "volume").
			From("bars").
			OrderBy("time ASC, symbol ASC").
			RunWith(d.db)

		if start.IsSome() {
			query = query.Where(squirrel.GtOrEq{"time": start.Unwrap()})
		}

		if end.IsSome() {
			query = query.Where(squirrel.LtOrEq{"time": end.Unwrap()})
		}

		rows, err := query.Query()
		if err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			bar, err := scanBar(rows)
			if err != nil {
				yield(types.Bar{}, err)

				return
			}

			if !yield(bar, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating bars", err))
		}
	}
}

// ReadSymbol implements DataSource.
func (d *DuckDBDataSource) ReadSymbol(symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.Bar, error) {
	query := d.sq.
		Select("time", "symbol", "open", "high", "low", "close", "volume").
		From("bars").
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("time ASC").
		RunWith(d.db)

	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		query = query.Where(squirrel.LtOrEq{"time": end.Unwrap()})
	}

	rows, err := query.Query()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query bars for %s", symbol)
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		bar, err := scanBar(rows)
		if err != nil {
			return nil, err
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating bars", err)
	}

	return bars, nil
}

// Symbols implements DataSource.
func (d *DuckDBDataSource) Symbols() ([]string, error) {
	rows, err := d.sq.
		Select("DISTINCT symbol").
		From("bars").
		OrderBy("symbol ASC").
		RunWith(d.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query symbols", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan symbol", err)
		}

		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating symbols", err)
	}

	return symbols, nil
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	query := d.sq.
		Select("COUNT(*)").
		From("bars").
		RunWith(d.db)

	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		query = query.Where(squirrel.LtOrEq{"time": end.Unwrap()})
	}

	var count int
	if err := query.QueryRow().Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count bars", err)
	}

	return count, nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}

func scanBar(rows *sql.Rows) (types.Bar, error) {
	var bar types.Bar

	err := rows.Scan(&bar.Time, &bar.Symbol, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
	}

	return bar, nil
}
