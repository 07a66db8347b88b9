package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypePaymentCompleted = "PAYMENT_COMPLETED"
	EventTypePaymentDeleted   = "PAYMENT_DELETED"
	EventTypeGiftCardRedeemed = "GIFT_CARD_REDEEMED"
	EventTypeOrderClosed      = "ORDER_CLOSED"
	EventTypeOrderRefunded    = "ORDER_REFUNDED"
	EventTypeRefundCreated    = "REFUND_CREATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent stamps a fresh event id and time for eventType
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// PaymentCompletedEvent published when a payment reaches COMPLETED
type PaymentCompletedEvent struct {
	BaseEvent
	OrderID    int64           `json:"order_id"`
	PaymentID  int64           `json:"payment_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	GiftCardID *int64          `json:"gift_card_id,omitempty"`
}

// PaymentDeletedEvent published when a payment is removed. Nothing it caused
// (gift card debit, order closure) is reversed.
type PaymentDeletedEvent struct {
	BaseEvent
	OrderID   int64           `json:"order_id"`
	PaymentID int64           `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
}

// GiftCardRedeemedEvent published when a card balance reaches zero
type GiftCardRedeemedEvent struct {
	BaseEvent
	GiftCardID int64 `json:"gift_card_id"`
	PaymentID  int64 `json:"payment_id"`
}

// OrderClosedEvent published when settlement closes an order
type OrderClosedEvent struct {
	BaseEvent
	OrderID    int64           `json:"order_id"`
	BusinessID int64           `json:"business_id"`
	Total      decimal.Decimal `json:"total"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Items      []OrderItemData `json:"items"`
}

// OrderRefundedEvent published when a completed refund flips the order
type OrderRefundedEvent struct {
	BaseEvent
	OrderID  int64           `json:"order_id"`
	RefundID int64           `json:"refund_id"`
	Amount   decimal.Decimal `json:"amount"`
}

// RefundCreatedEvent published for every accepted refund
type RefundCreatedEvent struct {
	BaseEvent
	OrderID  int64           `json:"order_id"`
	RefundID int64           `json:"refund_id"`
	Amount   decimal.Decimal `json:"amount"`
	Status   string          `json:"status"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}
