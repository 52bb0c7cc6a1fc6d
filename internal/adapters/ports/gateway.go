package ports

import (
	"context"

	"github.com/kevin07696/cybermut-service/internal/domain"
)

// PaymentRequest contains everything needed to render the auto-submit form that
// hands the customer over to the bank payment page.
type PaymentRequest struct {
	PostURL   string           // Bank endpoint (live or test)
	Fields    *domain.FieldSet // Signed fields in emission order, MAC last
	Reference string           // Merchant reference sent to the bank
	TestMode  bool             // Whether the test endpoint was selected
}

// PaymentGateway is the capability set a hosted-page payment method exposes to checkout.
// Implementations are pure with respect to the configuration they were built with.
type PaymentGateway interface {
	// BuildRequest signs the outbound fields for an order
	// Returns error if:
	//   - No key material is configured (ConfigurationError)
	//   - A field required by the signing string is missing
	BuildRequest(ctx context.Context, order *domain.Order, reqCtx RequestContext) (*PaymentRequest, error)

	// VerifyResponse authenticates an inbound notification and classifies it.
	// A missing or mismatched MAC yields OutcomeUnknown together with an
	// authentication error; the returned notification is never nil.
	VerifyResponse(ctx context.Context, fields *domain.FieldSet) (*domain.Notification, error)

	// Acknowledge renders the plaintext body returned to the bank after a notification
	Acknowledge(macValid bool) string

	// SuccessURL is where the bank sends the customer after a successful payment
	SuccessURL() string

	// ErrorURL is where the bank sends the customer after a failed or cancelled payment
	ErrorURL() string

	// NotifyURL is the server-to-server notification endpoint
	NotifyURL() string
}
