package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *PaymentError
		expected string
	}{
		{
			name: "with gateway message",
			err: &PaymentError{
				Code:           "Annulation",
				Message:        "Payment refused by your bank",
				GatewayMessage: "scoring",
				Category:       CategoryFraud,
			},
			expected: "Annulation: Payment refused by your bank (gateway: scoring)",
		},
		{
			name: "without gateway message",
			err: &PaymentError{
				Code:     "garbage",
				Message:  "Payment status could not be determined",
				Category: CategoryInvalidRequest,
			},
			expected: "garbage: Payment status could not be determined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError("cybermut.tpe", "CYBERMUT_TPE is required")
	assert.Equal(t, "validation error on field 'cybermut.tpe': CYBERMUT_TPE is required", err.Error())
}
