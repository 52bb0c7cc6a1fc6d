package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDomainErrors_Messages tests that every sentinel carries a readable message
func TestDomainErrors_Messages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "config_key_missing",
			err:      ErrConfigKeyMissing,
			contains: "no signing key configured",
		},
		{
			name:     "config_key_invalid",
			err:      ErrConfigKeyInvalid,
			contains: "signing key is invalid",
		},
		{
			name:     "mac_mismatch",
			err:      ErrMACMismatch,
			contains: "message authentication code mismatch",
		},
		{
			name:     "mac_missing",
			err:      ErrMACMissing,
			contains: "message authentication code missing",
		},
		{
			name:     "field_missing",
			err:      ErrFieldMissing,
			contains: "required field missing",
		},
		{
			name:     "order_not_found",
			err:      ErrOrderNotFound,
			contains: "order not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Errorf("expected error to be defined, got nil")
			}
			if !strings.Contains(strings.ToLower(tt.err.Error()), tt.contains) {
				t.Errorf("error message %q does not contain %q", tt.err.Error(), tt.contains)
			}
		})
	}
}

// TestDomainErrors_Constructors tests that constructed errors match their sentinels and carry details
func TestDomainErrors_Constructors(t *testing.T) {
	t.Run("malformed_field", func(t *testing.T) {
		err := NewMalformedFieldError("code-retour")

		assert.True(t, errors.Is(err, ErrFieldMissing))
		assert.True(t, IsMalformedFieldError(err))
		assert.Equal(t, "code-retour", err.Details["field"])
		assert.Contains(t, err.Error(), `"code-retour"`)
	})

	t.Run("mac_mismatch", func(t *testing.T) {
		err := NewMACMismatchError("100008")

		assert.True(t, errors.Is(err, ErrMACMismatch))
		assert.True(t, IsAuthenticationError(err))
		assert.False(t, IsConfigurationError(err))
		assert.Equal(t, "100008", err.Details["reference"])
	})

	t.Run("configuration_wraps_cause", func(t *testing.T) {
		cause := errors.New("encoding/hex: invalid byte")
		err := NewConfigurationError(ErrorCodeConfigKeyInvalid, "security key is not hex", cause)

		assert.True(t, errors.Is(err, ErrConfigKeyInvalid))
		assert.True(t, errors.Is(err, cause))
		assert.True(t, IsConfigurationError(err))
		assert.Equal(t, ErrorCodeConfigKeyInvalid, GetErrorCode(err))
	})

	t.Run("sentinels_are_not_mutated", func(t *testing.T) {
		_ = NewMACMismatchError("1")
		assert.Empty(t, ErrMACMismatch.Details)
	})
}

// TestDomainErrors_Wrapping tests that domain errors can be wrapped and unwrapped correctly
func TestDomainErrors_Wrapping(t *testing.T) {
	tests := []struct {
		name        string
		baseErr     error
		wrapMessage string
	}{
		{
			name:        "wrap_mac_mismatch",
			baseErr:     ErrMACMismatch,
			wrapMessage: "failed to verify notification",
		},
		{
			name:        "wrap_key_missing",
			baseErr:     ErrConfigKeyMissing,
			wrapMessage: "cannot sign request",
		},
		{
			name:        "wrap_order_not_found",
			baseErr:     ErrOrderNotFound,
			wrapMessage: "redirect failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("%s: %w", tt.wrapMessage, tt.baseErr)

			if !strings.Contains(wrapped.Error(), tt.wrapMessage) {
				t.Errorf("wrapped error %q does not contain wrap message %q", wrapped.Error(), tt.wrapMessage)
			}
			if !errors.Is(wrapped, tt.baseErr) {
				t.Errorf("errors.Is failed: wrapped error does not match base error %v", tt.baseErr)
			}
		})
	}
}

// TestDomainErrors_IsComparison tests that errors.Is() distinguishes codes
func TestDomainErrors_IsComparison(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		shouldNot error
	}{
		{
			name:      "mac_mismatch_matches_itself",
			err:       ErrMACMismatch,
			target:    ErrMACMismatch,
			shouldNot: ErrMACMissing,
		},
		{
			name:      "wrapped_key_missing_matches",
			err:       fmt.Errorf("context: %w", ErrConfigKeyMissing),
			target:    ErrConfigKeyMissing,
			shouldNot: ErrConfigKeyInvalid,
		},
		{
			name:      "constructed_field_error_matches",
			err:       NewMalformedFieldError("TPE"),
			target:    ErrFieldMissing,
			shouldNot: ErrValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false, want true", tt.err, tt.target)
			}
			if errors.Is(tt.err, tt.shouldNot) {
				t.Errorf("errors.Is(%v, %v) = true, want false", tt.err, tt.shouldNot)
			}
		})
	}
}
