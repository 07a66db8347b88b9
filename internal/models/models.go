package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Business is the tenant every other record belongs to
type Business struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Kind      string    `db:"kind" json:"kind"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Item represents a sellable product or service in the catalog
type Item struct {
	ID         int64           `db:"id" json:"id"`
	BusinessID int64           `db:"business_id" json:"business_id"`
	Name       string          `db:"name" json:"name"`
	Price      decimal.Decimal `db:"price" json:"price"`
	Type       string          `db:"type" json:"type"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`

	VariationOptions []VariationOption `db:"-" json:"variation_options,omitempty"`
}

// VariationOption is a selectable variant of an item (size, length, colour)
type VariationOption struct {
	ID     int64  `db:"id" json:"id"`
	ItemID int64  `db:"item_id" json:"item_id"`
	Name   string `db:"name" json:"name"`
}

// Inventory represents item stock
type Inventory struct {
	ItemID    int64     `db:"item_id" json:"item_id"`
	Available int       `db:"available" json:"available"`
	Reserved  int       `db:"reserved" json:"reserved"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Discount is a percentage reduction scoped to an order or an item type
type Discount struct {
	ID         int64           `db:"id" json:"id"`
	BusinessID int64           `db:"business_id" json:"business_id"`
	Rate       decimal.Decimal `db:"rate" json:"rate"`
	Type       string          `db:"type" json:"type"`
	AppliesTo  string          `db:"applies_to" json:"applies_to"`
	Status     string          `db:"status" json:"status"`
	ValidFrom  time.Time       `db:"valid_from" json:"valid_from"`
	ValidTo    *time.Time      `db:"valid_to" json:"valid_to,omitempty"`
}

// Tax is a percentage addition gated by status and an effective window
type Tax struct {
	ID            int64           `db:"id" json:"id"`
	BusinessID    int64           `db:"business_id" json:"business_id"`
	Name          string          `db:"name" json:"name"`
	Rate          decimal.Decimal `db:"rate" json:"rate"`
	Status        string          `db:"status" json:"status"`
	EffectiveFrom time.Time       `db:"effective_from" json:"effective_from"`
	EffectiveTo   *time.Time      `db:"effective_to" json:"effective_to,omitempty"`
}

// ServiceCharge is a percentage addition applied whenever it is attached
type ServiceCharge struct {
	ID         int64           `db:"id" json:"id"`
	BusinessID int64           `db:"business_id" json:"business_id"`
	Name       string          `db:"name" json:"name"`
	Rate       decimal.Decimal `db:"rate" json:"rate"`
}

// Order represents a single sale or tab
type Order struct {
	ID            int64            `db:"id" json:"id"`
	BusinessID    int64            `db:"business_id" json:"business_id"`
	UserID        int64            `db:"user_id" json:"user_id"`
	Status        string           `db:"status" json:"status"`
	Tip           *decimal.Decimal `db:"tip" json:"tip,omitempty"`
	TableID       *int64           `db:"table_id" json:"table_id,omitempty"`
	DiscountID    *int64           `db:"discount_id" json:"discount_id,omitempty"`
	ReservationID *int64           `db:"reservation_id" json:"reservation_id,omitempty"`
	Version       int64            `db:"version" json:"version"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`

	Discount *Discount   `db:"-" json:"discount,omitempty"`
	Items    []OrderItem `db:"-" json:"items"`
	Payments []Payment   `db:"-" json:"payments"`
}

// OrderItem represents one line of an order
type OrderItem struct {
	ID                int64   `db:"id" json:"id"`
	OrderID           int64   `db:"order_id" json:"order_id"`
	ItemID            int64   `db:"item_id" json:"item_id"`
	Quantity          int     `db:"quantity" json:"quantity"`
	DiscountID        *int64  `db:"discount_id" json:"discount_id,omitempty"`
	TaxID             *int64  `db:"tax_id" json:"tax_id,omitempty"`
	ServiceChargeID   *int64  `db:"service_charge_id" json:"service_charge_id,omitempty"`
	VariationOptionID *int64  `db:"variation_option_id" json:"variation_option_id,omitempty"`
	Notes             *string `db:"notes" json:"notes,omitempty"`

	Item          *Item          `db:"-" json:"item,omitempty"`
	Discount      *Discount      `db:"-" json:"discount,omitempty"`
	Tax           *Tax           `db:"-" json:"tax,omitempty"`
	ServiceCharge *ServiceCharge `db:"-" json:"service_charge,omitempty"`
}

// Payment represents money applied against an order
type Payment struct {
	ID         int64           `db:"id" json:"id"`
	OrderID    int64           `db:"order_id" json:"order_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	PaidAt     time.Time       `db:"paid_at" json:"paid_at"`
	Method     string          `db:"method" json:"method"`
	Provider   string          `db:"provider" json:"provider"`
	Currency   string          `db:"currency" json:"currency"`
	Status     string          `db:"status" json:"status"`
	GiftCardID *int64          `db:"gift_card_id" json:"gift_card_id,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// GiftCard holds a stored balance redeemable against orders
type GiftCard struct {
	ID             int64           `db:"id" json:"id"`
	BusinessID     int64           `db:"business_id" json:"business_id"`
	Code           string          `db:"code" json:"code"`
	InitialValue   decimal.Decimal `db:"initial_value" json:"initial_value"`
	CurrentBalance decimal.Decimal `db:"current_balance" json:"current_balance"`
	Currency       string          `db:"currency" json:"currency"`
	IssuedAt       time.Time       `db:"issued_at" json:"issued_at"`
	ExpiresAt      *time.Time      `db:"expires_at" json:"expires_at,omitempty"`
	Status         string          `db:"status" json:"status"`
	Version        int64           `db:"version" json:"version"`
}

// Refund reverses part of the money collected for an order
type Refund struct {
	ID           int64           `db:"id" json:"id"`
	OrderID      int64           `db:"order_id" json:"order_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	RefundedAt   time.Time       `db:"refunded_at" json:"refunded_at"`
	Reason       string          `db:"reason" json:"reason"`
	RefundMethod string          `db:"refund_method" json:"refund_method"`
	Currency     string          `db:"currency" json:"currency"`
	Status       string          `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Item types
const (
	ItemTypeProduct = "PRODUCT"
	ItemTypeService = "SERVICE"
)

// Discount scopes
const (
	DiscountAppliesToOrder   = "ORDER"
	DiscountAppliesToProduct = "PRODUCT"
	DiscountAppliesToService = "SERVICE"
)

// Discount types (informational, rates are always percentages)
const (
	DiscountTypePercentage = "PERCENTAGE"
	DiscountTypeFixed      = "FIXED"
)

// Rate statuses shared by discounts and taxes
const (
	RateStatusActive   = "ACTIVE"
	RateStatusInactive = "INACTIVE"
)

// Order statuses
const (
	OrderStatusOpen     = "OPEN"
	OrderStatusPending  = "PENDING"
	OrderStatusClosed   = "CLOSED"
	OrderStatusRefunded = "REFUNDED"
)

// Payment statuses
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
	PaymentStatusRefunded  = "REFUNDED"
)

// Gift card statuses
const (
	GiftCardStatusValid    = "VALID"
	GiftCardStatusRedeemed = "REDEEMED"
	GiftCardStatusVoid     = "VOID"
	GiftCardStatusExpired  = "EXPIRED"
)

// Refund statuses
const (
	RefundStatusPending   = "PENDING"
	RefundStatusCompleted = "COMPLETED"
	RefundStatusFailed    = "FAILED"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
