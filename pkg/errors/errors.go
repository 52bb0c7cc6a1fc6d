// Package errors holds the error and outcome categories shared across packages.
package errors

import (
	"fmt"
)

// ErrorCategory classifies a gateway return code or refusal motive
type ErrorCategory string

const (
	CategoryApproved       ErrorCategory = "approved"
	CategoryDeclined       ErrorCategory = "declined"
	CategoryFraud          ErrorCategory = "fraud"
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryInvalidRequest ErrorCategory = "invalid_request"
)

// PaymentError describes a refused or unclassified payment with the gateway's reason
type PaymentError struct {
	Code           string
	Message        string
	GatewayMessage string
	IsRetriable    bool
	Category       ErrorCategory
	Details        map[string]interface{}
}

func (e *PaymentError) Error() string {
	if e.GatewayMessage != "" {
		return fmt.Sprintf("%s: %s (gateway: %s)", e.Code, e.Message, e.GatewayMessage)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ValidationError represents invalid configuration or input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
