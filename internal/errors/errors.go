package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorCode identifies a class of analytics failure.
type ErrorCode string

const (
	// Generic errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"
	ErrCodeRateLimit    ErrorCode = "RATE_LIMIT"

	// Analytics errors
	ErrCodeInsufficientData ErrorCode = "INSUFFICIENT_DATA"
	ErrCodeInvalidRange     ErrorCode = "INVALID_RANGE"
	ErrCodeUnknownFrequency ErrorCode = "UNKNOWN_FREQUENCY"
	ErrCodeUnknownPeriod    ErrorCode = "UNKNOWN_PERIOD"

	// Market data errors
	ErrCodeUnresolvedTicker      ErrorCode = "UNRESOLVED_TICKER"
	ErrCodeMarketDataUnavailable ErrorCode = "MARKET_DATA_UNAVAILABLE"

	// Storage/cache errors
	ErrCodeStoreConnection ErrorCode = "STORE_CONNECTION_ERROR"
	ErrCodeStoreQuery      ErrorCode = "STORE_QUERY_ERROR"
	ErrCodeCacheOperation  ErrorCode = "CACHE_OPERATION_ERROR"
)

// ErrorSeverity ranks an error for logging and alerting.
type ErrorSeverity string

const (
	SeverityLow      ErrorSeverity = "low"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityHigh     ErrorSeverity = "high"
	SeverityCritical ErrorSeverity = "critical"
)

// AppError is the typed error returned by every engine computation.
// Errors are local to one computation: a failed ticker or request never
// aborts unrelated in-flight work.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Severity  ErrorSeverity          `json:"severity"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Cause     error                  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error code to an HTTP status code.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeNotFound, ErrCodeUnresolvedTicker:
		return http.StatusNotFound
	case ErrCodeInvalidInput, ErrCodeInvalidRange, ErrCodeUnknownFrequency,
		ErrCodeUnknownPeriod, ErrCodeInsufficientData:
		return http.StatusBadRequest
	case ErrCodeTimeout:
		return http.StatusRequestTimeout
	case ErrCodeRateLimit:
		return http.StatusTooManyRequests
	case ErrCodeMarketDataUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewAppError creates a new application error.
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  severityByCode(code),
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// NewAppErrorWithDetails creates an application error carrying extra detail text.
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	err := NewAppError(code, message, cause)
	err.Details = details
	return err
}

// NewInsufficientData reports that a computation had fewer observations than
// it requires. The minimum required count is always surfaced to the caller.
func NewInsufficientData(what string, got, need int) *AppError {
	return NewAppError(ErrCodeInsufficientData,
		fmt.Sprintf("%s requires at least %d observations, got %d", what, need, got), nil).
		WithContext("required", need).
		WithContext("observed", got)
}

// NewInvalidRange reports an invalid parameter range (start >= end,
// non-positive amount, empty trading window).
func NewInvalidRange(details string) *AppError {
	return NewAppErrorWithDetails(ErrCodeInvalidRange, "Invalid parameter range", details, nil)
}

// NewUnknownFrequency reports an unrecognized contribution frequency token.
func NewUnknownFrequency(token string) *AppError {
	return NewAppErrorWithDetails(ErrCodeUnknownFrequency, "Unknown frequency", token, nil)
}

// NewUnresolvedTicker reports that the price-data provider could not resolve
// an identifier. In batch operations this degrades to a partial result.
func NewUnresolvedTicker(ticker string, cause error) *AppError {
	return NewAppError(ErrCodeUnresolvedTicker,
		fmt.Sprintf("Ticker %q could not be resolved", ticker), cause).
		WithContext("ticker", ticker)
}

// WithContext attaches a key/value pair to the error.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRequestID attaches the originating request ID.
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

func severityByCode(code ErrorCode) ErrorSeverity {
	switch code {
	case ErrCodeInternal, ErrCodeStoreConnection:
		return SeverityCritical
	case ErrCodeStoreQuery, ErrCodeMarketDataUnavailable:
		return SeverityHigh
	case ErrCodeCacheOperation, ErrCodeTimeout:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ErrorResponse is the API error envelope.
type ErrorResponse struct {
	Error     *AppError `json:"error"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path,omitempty"`
}

// NewErrorResponse creates an error response for the given request path.
func NewErrorResponse(err *AppError, path string) *ErrorResponse {
	return &ErrorResponse{
		Error:     err,
		Success:   false,
		Timestamp: time.Now(),
		Path:      path,
	}
}

// WrapError wraps a plain error into an AppError; existing AppErrors pass through.
func WrapError(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return NewAppError(code, message, err)
}

// IsAppError reports whether err is an AppError.
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError extracts the AppError from err, or nil.
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return nil
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}
