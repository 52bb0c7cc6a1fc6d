package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kevin07696/cybermut-service/internal/domain"
	"go.uber.org/zap"
)

// OrderStatus is the payment state of a stored order
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusOnHold         OrderStatus = "on_hold"
	OrderStatusCanceled       OrderStatus = "canceled"
)

// IsValid checks if the status is one an order can be moved to
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPendingPayment, OrderStatusPaid, OrderStatusOnHold, OrderStatusCanceled:
		return true
	}
	return false
}

// HistoryEntry is one comment appended to an order by a notification
type HistoryEntry struct {
	Outcome   domain.TransactionOutcome
	Comment   string
	CreatedAt time.Time
}

// OrderRecord is an order together with its payment state
type OrderRecord struct {
	Order   domain.Order
	Status  OrderStatus
	History []HistoryEntry
}

// OrderStore is an in-process OrderReader and OutcomeRecorder
type OrderStore struct {
	mu          sync.RWMutex
	orders      map[string]*OrderRecord
	logger      *zap.Logger
	now         func() time.Time
	riskyStatus OrderStatus
}

// OrderStoreOption configures an OrderStore
type OrderStoreOption func(*OrderStore)

// WithRiskyAcceptedStatus sets the status given to accepted payments whose
// 3-D Secure authentication the bank flagged as risky. Defaults to paid.
func WithRiskyAcceptedStatus(status OrderStatus) OrderStoreOption {
	return func(s *OrderStore) {
		if status.IsValid() {
			s.riskyStatus = status
		}
	}
}

// NewOrderStore creates an empty order store
func NewOrderStore(logger *zap.Logger, opts ...OrderStoreOption) *OrderStore {
	s := &OrderStore{
		orders:      make(map[string]*OrderRecord),
		logger:      logger,
		now:         time.Now,
		riskyStatus: OrderStatusPaid,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveOrder validates and stores an order in pending payment state.
// Each real order id of a multi-shipping order is indexed as well.
func (s *OrderStore) SaveOrder(ctx context.Context, order *domain.Order) error {
	if err := order.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := &OrderRecord{Order: *order, Status: OrderStatusPendingPayment}
	s.orders[order.Reference] = record
	for _, id := range order.RealOrderIDs {
		s.orders[id] = record
	}
	s.orders[order.PaymentReference()] = record
	return nil
}

// GetOrder implements ports.OrderReader
func (s *OrderStore) GetOrder(ctx context.Context, reference string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.orders[reference]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, reference)
	}
	order := record.Order
	return &order, nil
}

// GetRecord returns a copy of the stored record for a reference
func (s *OrderStore) GetRecord(ctx context.Context, reference string) (*OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.orders[reference]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, reference)
	}
	copied := *record
	copied.History = append([]HistoryEntry(nil), record.History...)
	return &copied, nil
}

// RecordOutcome implements ports.OutcomeRecorder. Accepted outcomes mark the order paid,
// or the risky status when 3-D Secure was flagged. Refusals cancel it and unknown
// outcomes only add a comment. Orders that already left
// pending payment are not transitioned again.
func (s *OrderStore) RecordOutcome(ctx context.Context, notification *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.orders[notification.Reference]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, notification.Reference)
	}

	record.History = append(record.History, HistoryEntry{
		Outcome:   notification.Outcome,
		Comment:   notification.Message,
		CreatedAt: s.now(),
	})

	if record.Status != OrderStatusPendingPayment {
		s.logger.Info("Order already settled, outcome recorded as comment",
			zap.String("reference", notification.Reference),
			zap.String("status", string(record.Status)),
			zap.String("outcome", notification.Outcome.String()),
		)
		return nil
	}

	switch {
	case notification.Outcome.IsAccepted() && notification.ThreeDSRisky():
		record.Status = s.riskyStatus
	case notification.Outcome.IsAccepted():
		record.Status = OrderStatusPaid
	case notification.Outcome == domain.OutcomeRefused:
		record.Status = OrderStatusCanceled
	}

	s.logger.Info("Order outcome recorded",
		zap.String("reference", notification.Reference),
		zap.String("status", string(record.Status)),
		zap.String("outcome", notification.Outcome.String()),
		zap.String("status3ds", notification.Status3DS),
	)
	return nil
}
