package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter      ErrorCode = 100
	ErrCodeInvalidConfiguration  ErrorCode = 101
	ErrCodeInvalidOrder          ErrorCode = 102
	ErrCodeInvalidQuantity       ErrorCode = 103
	ErrCodeInvalidLimitPrice     ErrorCode = 104
	ErrCodeMissingReferencePrice ErrorCode = 105
	ErrCodeInvalidOrderKind      ErrorCode = 106
	ErrCodeInvalidSide           ErrorCode = 107
	ErrCodeInvalidPeriod         ErrorCode = 108
	ErrCodeInvalidInstrument     ErrorCode = 109
	ErrCodeInvalidCurrency       ErrorCode = 110
	ErrCodeInvalidVersion        ErrorCode = 111
	ErrCodeInvalidTheme          ErrorCode = 112
	ErrCodeInvalidFeeRate        ErrorCode = 113

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound       ErrorCode = 200
	ErrCodeInstrumentNotFound ErrorCode = 201

	// Trading errors (500-599)
	ErrCodeOrderFailed     ErrorCode = 500
	ErrCodeNoPosition      ErrorCode = 501
	ErrCodeVersionMismatch ErrorCode = 502
	ErrCodeUnsupportedKind ErrorCode = 503

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataParseFailed ErrorCode = 701
	ErrCodeInvalidProvider       ErrorCode = 702
	ErrCodeRateLimitWaitAborted  ErrorCode = 703

	// Persistence errors (900-999)
	ErrCodePersistFailed ErrorCode = 900
	ErrCodeLoadFailed    ErrorCode = 901
)
