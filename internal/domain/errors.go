package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Configuration Errors (CONFIG_*)
	ErrorCodeConfigKeyMissing ErrorCode = "CONFIG_KEY_MISSING"
	ErrorCodeConfigKeyInvalid ErrorCode = "CONFIG_KEY_INVALID"
	ErrorCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"

	// Message Authentication Errors (MAC_*)
	ErrorCodeMACMismatch ErrorCode = "MAC_MISMATCH"
	ErrorCodeMACMissing  ErrorCode = "MAC_MISSING"

	// Field Errors (FIELD_*)
	ErrorCodeFieldMissing ErrorCode = "FIELD_MISSING"

	// Order Errors (ORDER_*)
	ErrorCodeOrderNotFound ErrorCode = "ORDER_NOT_FOUND"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
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

// Is reports whether target is a DomainError carrying the same code, so that
// errors.Is(err, ErrMACMismatch) matches freshly constructed errors too.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
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

// NewConfigurationError reports missing or unusable key material or gateway settings.
// Signing must not proceed once one is raised.
func NewConfigurationError(code ErrorCode, message string, err error) *DomainError {
	return WrapError(code, message, err)
}

// NewMalformedFieldError reports a field required by the canonical signing string that is absent.
func NewMalformedFieldError(field string) *DomainError {
	return NewDomainError(ErrorCodeFieldMissing, fmt.Sprintf("required field %q is missing", field)).
		WithDetail("field", field)
}

// NewMACMismatchError reports an inbound message whose MAC does not authenticate it.
func NewMACMismatchError(reference string) *DomainError {
	return NewDomainError(ErrorCodeMACMismatch, "message authentication code mismatch").
		WithDetail("reference", reference)
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

// IsConfigurationError checks if an error is fatal configuration trouble
func IsConfigurationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeConfigKeyMissing ||
		code == ErrorCodeConfigKeyInvalid ||
		code == ErrorCodeConfigInvalid
}

// IsAuthenticationError checks if an error means an inbound message could not be authenticated
func IsAuthenticationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeMACMismatch || code == ErrorCodeMACMissing
}

// IsMalformedFieldError checks if an error is a missing-field error
func IsMalformedFieldError(err error) bool {
	return GetErrorCode(err) == ErrorCodeFieldMissing
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	return GetErrorCode(err) == ErrorCodeOrderNotFound
}

// Sentinel values for errors.Is comparisons. Never mutate them; use the
// constructors above to attach details.
var (
	ErrConfigKeyMissing = NewDomainError(ErrorCodeConfigKeyMissing, "no signing key configured")
	ErrConfigKeyInvalid = NewDomainError(ErrorCodeConfigKeyInvalid, "signing key is invalid")
	ErrConfigInvalid    = NewDomainError(ErrorCodeConfigInvalid, "gateway configuration is invalid")

	ErrMACMismatch = NewDomainError(ErrorCodeMACMismatch, "message authentication code mismatch")
	ErrMACMissing  = NewDomainError(ErrorCodeMACMissing, "message authentication code missing")

	ErrFieldMissing = NewDomainError(ErrorCodeFieldMissing, "required field missing")

	ErrOrderNotFound = NewDomainError(ErrorCodeOrderNotFound, "order not found")

	ErrValidationFailed        = NewDomainError(ErrorCodeValidationFailed, "validation failed")
	ErrValidationAmountInvalid = NewDomainError(ErrorCodeValidationAmountInvalid, "invalid amount")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal server error")
)
