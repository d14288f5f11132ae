package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidConfiguration ErrorCode = 100
	ErrCodeInvalidCapital       ErrorCode = 101
	ErrCodeInvalidSizeFraction  ErrorCode = 102
	ErrCodeInvalidMaxPositions  ErrorCode = 103
	ErrCodeInvalidDateRange     ErrorCode = 104
	ErrCodeInvalidInterval      ErrorCode = 105
	ErrCodeInvalidTradeUnit     ErrorCode = 106

	// Data errors (200-299)
	ErrCodeDataNotFound  ErrorCode = 200
	ErrCodeQueryFailed   ErrorCode = 201
	ErrCodeDataAlignment ErrorCode = 202
	ErrCodeDataNotSorted ErrorCode = 203

	// Strategy errors (400-499)
	ErrCodeStrategyNotFound    ErrorCode = 400
	ErrCodeStrategyConfigError ErrorCode = 401
	ErrCodeSignalGeneration    ErrorCode = 402

	// Simulation errors (500-599)
	ErrCodeInsufficientCapital ErrorCode = 500
	ErrCodeIllegalTransition   ErrorCode = 501

	// Backtest errors (600-699)
	ErrCodeBacktestNoStrategy   ErrorCode = 600
	ErrCodeBacktestNoDatasource ErrorCode = 601
	ErrCodeBacktestNoResultsDir ErrorCode = 602
	ErrCodeBacktestWriteFailed  ErrorCode = 603
	ErrCodeResultsIncompatible  ErrorCode = 604

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataWriteFailed ErrorCode = 701
	ErrCodeMarketDataParseFailed ErrorCode = 702
	ErrCodeInvalidProvider       ErrorCode = 703
)
