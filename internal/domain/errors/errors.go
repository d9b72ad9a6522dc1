package errors

import (
	"errors"
	"fmt"
)

// Error types for different domains
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeBusiness   ErrorType = "business"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeExternal   ErrorType = "external"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeConfig     ErrorType = "configuration"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

func NewBusinessError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeBusiness,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 422,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       "RESOURCE_NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		Retryable:  false,
		StatusCode: 404,
	}
}

func NewConflictError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		Retryable:  true,
		StatusCode: 409,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 500,
	}
}

func NewExternalError(service, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       "EXTERNAL_SERVICE_ERROR",
		Message:    fmt.Sprintf("%s service error: %s", service, message),
		Retryable:  true,
		StatusCode: 502,
		Details:    map[string]interface{}{"service": service},
	}
}

func NewConfigurationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConfig,
		Code:       "CONFIGURATION_ERROR",
		Message:    message,
		Retryable:  false,
		StatusCode: 500,
	}
}

// NewAuctionNotOpenError indicates a bid arrived before the item opened.
func NewAuctionNotOpenError() *AppError {
	return NewBusinessError("AUCTION_NOT_OPEN", "auction is not open for bidding yet")
}

// NewAuctionClosedError indicates a bid arrived after close or on a terminal item.
func NewAuctionClosedError() *AppError {
	return NewBusinessError("AUCTION_CLOSED", "auction is closed")
}

// NewBelowMinimumBidError carries the minimum acceptable bid so callers can
// surface it to the bidder.
func NewBelowMinimumBidError(minimum string) *AppError {
	return NewBusinessError("BID_TOO_LOW", "bid amount is below the minimum next bid").
		WithDetails(map[string]interface{}{"minimum": minimum})
}

// NewItemAlreadySoldError indicates buy-now was attempted on a non-open item.
func NewItemAlreadySoldError() *AppError {
	return NewBusinessError("ITEM_ALREADY_SOLD", "item is no longer available for purchase")
}

// NewVersionConflictError indicates an optimistic-lock race on the item row.
// Always retryable; the resolver is pure so recomputation from a fresh read is safe.
func NewVersionConflictError() *AppError {
	return NewConflictError("VERSION_CONFLICT", "item was modified concurrently")
}

// NewTransientFailureError is surfaced when version-conflict retries are exhausted.
func NewTransientFailureError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "TRANSIENT_FAILURE",
		Message:    message,
		Retryable:  true,
		StatusCode: 503,
	}
}

// NewCurrencyMismatchError indicates a bid carried a currency other than the
// item's. Money comparisons are only defined within one currency, so this is
// rejected before any resolution math runs.
func NewCurrencyMismatchError(expected string) *AppError {
	return NewValidationError("CURRENCY_MISMATCH", "bid currency does not match the item currency").
		WithDetails(map[string]interface{}{"currency": expected})
}

// NewRateLimitedError indicates a bidder exceeded the submission rate limit.
func NewRateLimitedError() *AppError {
	return &AppError{
		Type:       ErrorTypeBusiness,
		Code:       "RATE_LIMITED",
		Message:    "too many submissions, slow down",
		Retryable:  true,
		StatusCode: 429,
	}
}

// Predefined common errors
var (
	ErrItemNotFound = NewNotFoundError("auction item")
	ErrBidNotFound  = NewNotFoundError("bid")
)

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsCode checks if an error carries a specific code
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetStatusCode extracts HTTP status code from error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 500
}
