package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Order Errors
	ErrInvalidOrder         = errors.New("invalid order parameters")
	ErrInsufficientHoldings = errors.New("insufficient holdings for sale")
	ErrInvalidTransition    = errors.New("illegal order state transition")
	ErrRiskLimitExceeded    = errors.New("order exceeds configured risk limits")

	// Strategy Errors
	ErrUnknownStrategy = errors.New("unknown strategy identifier")

	// Price Feed Errors
	ErrPriceUnavailable = errors.New("price feed is unavailable")
	ErrRateLimited      = errors.New("API rate limit exceeded")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrUpdateFailed = errors.New("database update failed")
	ErrDeleteFailed = errors.New("database delete failed")
)
