package ports

import (
	"context"

	"github.com/kevin07696/cybermut-service/internal/domain"
)

// OrderReader loads the order snapshot a payment request is built from
type OrderReader interface {
	// GetOrder returns the order for a merchant reference.
	// Returns domain.ErrOrderNotFound (possibly wrapped) when no such order exists.
	GetOrder(ctx context.Context, reference string) (*domain.Order, error)
}

// OutcomeRecorder persists the classification of a verified notification
type OutcomeRecorder interface {
	// RecordOutcome applies the outcome to the order identified by the notification reference.
	// Unknown outcomes are recorded as comments only and leave the order pending.
	RecordOutcome(ctx context.Context, notification *domain.Notification) error
}
