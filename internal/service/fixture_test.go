package service

import (
	"context"
	"testing"
	"time"

	"pos-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func clock() time.Time { return testNow }

type fixture struct {
	store     *memStore
	stock     *fakeStock
	idem      *fakeIdempotency
	publisher *fakePublisher

	orders    *OrderService
	payments  *PaymentService
	refunds   *RefundService
	giftCards *GiftCardService
	processor *EventProcessor
}

func newFixture() *fixture {
	f := &fixture{
		store:     newMemStore(),
		stock:     newFakeStock(),
		idem:      newFakeIdempotency(),
		publisher: &fakePublisher{},
	}
	settings := Settings{IdempotencyTTL: time.Hour, DefaultCurrency: "USD", SettlementTimeout: 5 * time.Second}

	f.orders = NewOrderService(f.store, f.stock)
	f.orders.now = clock
	f.payments = NewPaymentService(f.store, f.idem, f.publisher, settings)
	f.payments.now = clock
	f.refunds = NewRefundService(f.store, f.publisher, settings)
	f.refunds.now = clock
	f.giftCards = NewGiftCardService(f.store, settings)
	f.giftCards.now = clock
	f.processor = NewEventProcessor(f.store, f.stock)
	return f
}

func (f *fixture) seedItem(price, itemType string, options ...string) int64 {
	id := f.store.id()
	item := models.Item{ID: id, BusinessID: 1, Name: "item", Price: dec(price), Type: itemType}
	for _, name := range options {
		item.VariationOptions = append(item.VariationOptions, models.VariationOption{ID: f.store.id(), ItemID: id, Name: name})
	}
	f.store.items[id] = item
	return id
}

func (f *fixture) seedTax(rate string) int64 {
	id := f.store.id()
	f.store.taxes[id] = models.Tax{
		ID: id, BusinessID: 1, Name: "VAT", Rate: dec(rate),
		Status: models.RateStatusActive, EffectiveFrom: testNow.Add(-24 * time.Hour),
	}
	return id
}

func (f *fixture) seedDiscount(rate, appliesTo string) int64 {
	id := f.store.id()
	f.store.discounts[id] = models.Discount{
		ID: id, BusinessID: 1, Rate: dec(rate), Type: models.DiscountTypePercentage,
		AppliesTo: appliesTo, Status: models.RateStatusActive, ValidFrom: testNow.Add(-24 * time.Hour),
	}
	return id
}

func (f *fixture) seedCard(balance, status string) int64 {
	id := f.store.id()
	f.store.cards[id] = models.GiftCard{
		ID: id, BusinessID: 1, Code: "CARD", InitialValue: dec(balance), CurrentBalance: dec(balance),
		Currency: "USD", IssuedAt: testNow, Status: status, Version: 1,
	}
	return id
}

func (f *fixture) openOrder(t *testing.T) int64 {
	t.Helper()
	view, err := f.orders.CreateOrder(context.Background(), &CreateOrderRequest{BusinessID: 1, UserID: 7})
	require.NoError(t, err)
	return view.ID
}

// orderWith opens an order holding one line of itemID
func (f *fixture) orderWith(t *testing.T, itemID int64, quantity int) int64 {
	t.Helper()
	orderID := f.openOrder(t)
	_, err := f.orders.AddItem(context.Background(), orderID, &AddItemRequest{ItemID: itemID, Quantity: quantity})
	require.NoError(t, err)
	return orderID
}

func (f *fixture) setStatus(orderID int64, status string) {
	order := f.store.orders[orderID]
	order.Status = status
	f.store.orders[orderID] = order
}
