package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Validation errors (VALIDATION_*): rejected before any store I/O
	ErrorCodeValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrorCodeValidationInvalidPeriod ErrorCode = "VALIDATION_INVALID_PERIOD"

	// Webhook errors (WEBHOOK_*)
	ErrorCodePaymentNotFound     ErrorCode = "WEBHOOK_PAYMENT_NOT_FOUND"
	ErrorCodeAlreadyProcessed    ErrorCode = "WEBHOOK_ALREADY_PROCESSED"
	ErrorCodeInvalidTransition   ErrorCode = "WEBHOOK_INVALID_TRANSITION"
	ErrorCodeUnrecognizedEvent   ErrorCode = "WEBHOOK_UNRECOGNIZED_EVENT"

	// Settlement errors (SETTLEMENT_*)
	ErrorCodeStatementInsertFailed ErrorCode = "SETTLEMENT_STATEMENT_INSERT_FAILED"
	ErrorCodeItemInsertFailed      ErrorCode = "SETTLEMENT_ITEM_INSERT_FAILED"

	// Internal errors (INTERNAL_*)
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail returns a copy of the error with one extra detail field.
// The receiver is never mutated, so the shared error instances below stay
// safe for concurrent use.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Err:     e.Err,
		Details: details,
		Code:    e.Code,
		Message: e.Message,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsValidationError checks if an error was rejected before any store I/O
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationMissingField ||
		code == ErrorCodeValidationInvalidPeriod
}

// IsIntegrityError checks if an error is fatal for an entire settlement run
func IsIntegrityError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeStatementInsertFailed ||
		code == ErrorCodeItemInsertFailed
}

// Structured error instances
var (
	ErrMissingEventType    = NewDomainError(ErrorCodeValidationMissingField, "event type is required")
	ErrMissingOrderID      = NewDomainError(ErrorCodeValidationMissingField, "gateway order id is required")
	ErrMissingPeriodBounds = NewDomainError(ErrorCodeValidationMissingField, "period start and end are required")
	ErrInvalidPeriod       = NewDomainError(ErrorCodeValidationInvalidPeriod, "period end must be after period start")
	ErrPaymentNotFound     = NewDomainError(ErrorCodePaymentNotFound, "no payment matches the gateway order id")
	ErrStatementNoID       = NewDomainError(ErrorCodeStatementInsertFailed, "statement insert returned no identifier")
)
