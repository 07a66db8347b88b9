package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos-service/internal/billing"
	"pos-service/internal/models"
	"pos-service/internal/store"
)

// EventPublisher publishes billing events after their transaction commits
type EventPublisher interface {
	PublishPaymentCompleted(ctx context.Context, event *models.PaymentCompletedEvent) error
	PublishPaymentDeleted(ctx context.Context, event *models.PaymentDeletedEvent) error
	PublishGiftCardRedeemed(ctx context.Context, event *models.GiftCardRedeemedEvent) error
	PublishOrderClosed(ctx context.Context, event *models.OrderClosedEvent) error
	PublishOrderRefunded(ctx context.Context, event *models.OrderRefundedEvent) error
	PublishRefundCreated(ctx context.Context, event *models.RefundCreatedEvent) error
}

// IdempotencyStore remembers request keys and guards them with short locks
type IdempotencyStore interface {
	GetIdempotencyKey(ctx context.Context, key string) (string, bool, error)
	SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// StockReserver holds stock for order lines until the order closes
type StockReserver interface {
	ReserveStock(ctx context.Context, itemID int64, quantity int) (bool, error)
	ReleaseStock(ctx context.Context, itemID int64, quantity int) error
	CommitStock(ctx context.Context, itemID int64, quantity int) error
}

// Settings carries the billing configuration the services need
type Settings struct {
	IdempotencyTTL    time.Duration
	DefaultCurrency   string
	SettlementTimeout time.Duration
}

// withSettlementTimeout bounds a settlement transaction when a timeout is configured
func (st Settings) withSettlementTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if st.SettlementTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, st.SettlementTimeout)
}

// storeError turns a missing row into a billing NotFound error
func storeError(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return billing.NotFound(op, "%v", err)
	}
	return err
}

// errorReason is a low-cardinality metric label for a failed operation
func errorReason(err error) string {
	switch {
	case errors.Is(err, billing.ErrNotFound):
		return "not_found"
	case errors.Is(err, billing.ErrValidation):
		return "validation"
	case errors.Is(err, billing.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, billing.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, store.ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}

func orderClosedEvent(order *models.Order, totals billing.Totals) *models.OrderClosedEvent {
	items := make([]models.OrderItemData, 0, len(order.Items))
	for _, line := range order.Items {
		items = append(items, models.OrderItemData{ItemID: line.ItemID, Quantity: line.Quantity})
	}
	return &models.OrderClosedEvent{
		BaseEvent:  models.NewBaseEvent(models.EventTypeOrderClosed),
		OrderID:    order.ID,
		BusinessID: order.BusinessID,
		Total:      totals.Total,
		AmountPaid: totals.AmountPaid,
		Items:      items,
	}
}

func wrapTx(what string, err error) error {
	if err == nil {
		return nil
	}
	var be *billing.Error
	if errors.As(err, &be) || errors.Is(err, store.ErrConflict) {
		return err
	}
	return fmt.Errorf("failed to %s: %w", what, err)
}
