package service

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/store"
)

// memStore is an in-memory store.Transactor. WithTx restores every table when
// the callback fails, which is enough to observe rollbacks.
type memStore struct {
	nextID    int64
	items     map[int64]models.Item
	discounts map[int64]models.Discount
	taxes     map[int64]models.Tax
	charges   map[int64]models.ServiceCharge
	orders    map[int64]models.Order
	lines     map[int64]models.OrderItem
	payments  map[int64]models.Payment
	cards     map[int64]models.GiftCard
	refunds   map[int64]models.Refund
	events    map[string]string

	failCreatePayment error
}

func newMemStore() *memStore {
	return &memStore{
		items:     map[int64]models.Item{},
		discounts: map[int64]models.Discount{},
		taxes:     map[int64]models.Tax{},
		charges:   map[int64]models.ServiceCharge{},
		orders:    map[int64]models.Order{},
		lines:     map[int64]models.OrderItem{},
		payments:  map[int64]models.Payment{},
		cards:     map[int64]models.GiftCard{},
		refunds:   map[int64]models.Refund{},
		events:    map[string]string{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) WithTx(ctx context.Context, fn func(tx store.Repository) error) error {
	snapshot := *m
	snapshot.items = maps.Clone(m.items)
	snapshot.discounts = maps.Clone(m.discounts)
	snapshot.taxes = maps.Clone(m.taxes)
	snapshot.charges = maps.Clone(m.charges)
	snapshot.orders = maps.Clone(m.orders)
	snapshot.lines = maps.Clone(m.lines)
	snapshot.payments = maps.Clone(m.payments)
	snapshot.cards = maps.Clone(m.cards)
	snapshot.refunds = maps.Clone(m.refunds)
	snapshot.events = maps.Clone(m.events)

	if err := fn(m); err != nil {
		*m = snapshot
		return err
	}
	return nil
}

func missing(what string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", what, id, store.ErrNotFound)
}

func (m *memStore) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, missing("item", id)
	}
	return &item, nil
}

func (m *memStore) GetDiscount(ctx context.Context, id int64) (*models.Discount, error) {
	d, ok := m.discounts[id]
	if !ok {
		return nil, missing("discount", id)
	}
	return &d, nil
}

func (m *memStore) GetTax(ctx context.Context, id int64) (*models.Tax, error) {
	t, ok := m.taxes[id]
	if !ok {
		return nil, missing("tax", id)
	}
	return &t, nil
}

func (m *memStore) GetServiceCharge(ctx context.Context, id int64) (*models.ServiceCharge, error) {
	c, ok := m.charges[id]
	if !ok {
		return nil, missing("service charge", id)
	}
	return &c, nil
}

func (m *memStore) CreateOrder(ctx context.Context, order *models.Order) error {
	order.ID = m.id()
	order.Version = 1
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	stored := *order
	stored.Items, stored.Payments, stored.Discount = nil, nil, nil
	m.orders[order.ID] = stored
	return nil
}

func (m *memStore) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	stored, ok := m.orders[id]
	if !ok {
		return nil, missing("order", id)
	}
	order := stored

	if order.DiscountID != nil {
		d := m.discounts[*order.DiscountID]
		order.Discount = &d
	}

	order.Items = []models.OrderItem{}
	for _, line := range m.lines {
		if line.OrderID != id {
			continue
		}
		item := m.items[line.ItemID]
		line.Item = &item
		if line.DiscountID != nil {
			d := m.discounts[*line.DiscountID]
			line.Discount = &d
		}
		if line.TaxID != nil {
			t := m.taxes[*line.TaxID]
			line.Tax = &t
		}
		if line.ServiceChargeID != nil {
			c := m.charges[*line.ServiceChargeID]
			line.ServiceCharge = &c
		}
		order.Items = append(order.Items, line)
	}
	sort.Slice(order.Items, func(i, j int) bool { return order.Items[i].ID < order.Items[j].ID })

	order.Payments = []models.Payment{}
	for _, p := range m.payments {
		if p.OrderID == id {
			order.Payments = append(order.Payments, p)
		}
	}
	sort.Slice(order.Payments, func(i, j int) bool { return order.Payments[i].ID < order.Payments[j].ID })

	return &order, nil
}

func (m *memStore) GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	return m.GetOrder(ctx, id)
}

func (m *memStore) UpdateOrder(ctx context.Context, order *models.Order) error {
	stored, ok := m.orders[order.ID]
	if !ok || stored.Version != order.Version {
		return fmt.Errorf("order %d: %w", order.ID, store.ErrConflict)
	}
	order.Version++
	order.UpdatedAt = time.Now()
	next := *order
	next.Items, next.Payments, next.Discount = nil, nil, nil
	m.orders[order.ID] = next
	return nil
}

func (m *memStore) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	item.ID = m.id()
	stored := *item
	stored.Item, stored.Discount, stored.Tax, stored.ServiceCharge = nil, nil, nil, nil
	m.lines[item.ID] = stored
	return nil
}

func (m *memStore) UpdateOrderItem(ctx context.Context, item *models.OrderItem) error {
	if _, ok := m.lines[item.ID]; !ok {
		return missing("order item", item.ID)
	}
	stored := *item
	stored.Item, stored.Discount, stored.Tax, stored.ServiceCharge = nil, nil, nil, nil
	m.lines[item.ID] = stored
	return nil
}

func (m *memStore) DeleteOrderItem(ctx context.Context, id int64) error {
	if _, ok := m.lines[id]; !ok {
		return missing("order item", id)
	}
	delete(m.lines, id)
	return nil
}

func (m *memStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if m.failCreatePayment != nil {
		return m.failCreatePayment
	}
	payment.ID = m.id()
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt
	m.payments[payment.ID] = *payment
	return nil
}

func (m *memStore) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, missing("payment", id)
	}
	return &p, nil
}

func (m *memStore) GetPaymentForUpdate(ctx context.Context, id int64) (*models.Payment, error) {
	return m.GetPayment(ctx, id)
}

func (m *memStore) UpdatePayment(ctx context.Context, payment *models.Payment) error {
	if _, ok := m.payments[payment.ID]; !ok {
		return missing("payment", payment.ID)
	}
	payment.UpdatedAt = time.Now()
	m.payments[payment.ID] = *payment
	return nil
}

func (m *memStore) DeletePayment(ctx context.Context, id int64) (bool, error) {
	if _, ok := m.payments[id]; !ok {
		return false, nil
	}
	delete(m.payments, id)
	return true, nil
}

func (m *memStore) CreateGiftCard(ctx context.Context, card *models.GiftCard) error {
	for _, existing := range m.cards {
		if existing.Code == card.Code {
			return fmt.Errorf("gift card code %q: %w", card.Code, store.ErrConflict)
		}
	}
	card.ID = m.id()
	card.Version = 1
	m.cards[card.ID] = *card
	return nil
}

func (m *memStore) GetGiftCardByCode(ctx context.Context, code string) (*models.GiftCard, error) {
	for _, card := range m.cards {
		if card.Code == code {
			c := card
			return &c, nil
		}
	}
	return nil, missing("gift card", code)
}

func (m *memStore) GetGiftCardForUpdate(ctx context.Context, id int64) (*models.GiftCard, error) {
	card, ok := m.cards[id]
	if !ok {
		return nil, missing("gift card", id)
	}
	return &card, nil
}

func (m *memStore) UpdateGiftCard(ctx context.Context, card *models.GiftCard) error {
	stored, ok := m.cards[card.ID]
	if !ok || stored.Version != card.Version {
		return fmt.Errorf("gift card %d: %w", card.ID, store.ErrConflict)
	}
	card.Version++
	m.cards[card.ID] = *card
	return nil
}

func (m *memStore) CreateRefund(ctx context.Context, refund *models.Refund) error {
	refund.ID = m.id()
	refund.CreatedAt = time.Now()
	refund.UpdatedAt = refund.CreatedAt
	m.refunds[refund.ID] = *refund
	return nil
}

func (m *memStore) GetRefundForUpdate(ctx context.Context, id int64) (*models.Refund, error) {
	r, ok := m.refunds[id]
	if !ok {
		return nil, missing("refund", id)
	}
	return &r, nil
}

func (m *memStore) UpdateRefund(ctx context.Context, refund *models.Refund) error {
	if _, ok := m.refunds[refund.ID]; !ok {
		return missing("refund", refund.ID)
	}
	refund.UpdatedAt = time.Now()
	m.refunds[refund.ID] = *refund
	return nil
}

func (m *memStore) ListRefundsByOrderID(ctx context.Context, orderID int64) ([]models.Refund, error) {
	out := []models.Refund{}
	for _, r := range m.refunds {
		if r.OrderID == orderID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	_, ok := m.events[eventID]
	return ok, nil
}

func (m *memStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	m.events[eventID] = eventType
	return nil
}

// fakeStock tracks reservations per item; items absent from available are untracked
type fakeStock struct {
	available map[int64]int
	reserved  map[int64]int
	committed map[int64]int
	err       error
}

func newFakeStock() *fakeStock {
	return &fakeStock{available: map[int64]int{}, reserved: map[int64]int{}, committed: map[int64]int{}}
}

func (f *fakeStock) ReserveStock(ctx context.Context, itemID int64, quantity int) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	avail, tracked := f.available[itemID]
	if !tracked {
		return true, nil
	}
	if avail < quantity {
		return false, nil
	}
	f.available[itemID] = avail - quantity
	f.reserved[itemID] += quantity
	return true, nil
}

func (f *fakeStock) ReleaseStock(ctx context.Context, itemID int64, quantity int) error {
	if _, tracked := f.available[itemID]; !tracked {
		return nil
	}
	f.available[itemID] += quantity
	f.reserved[itemID] -= quantity
	return nil
}

func (f *fakeStock) CommitStock(ctx context.Context, itemID int64, quantity int) error {
	f.reserved[itemID] -= quantity
	f.committed[itemID] += quantity
	return nil
}

type fakeIdempotency struct {
	values map[string]string
	locks  map[string]bool

	// beforeLock runs inside AcquireLock, standing in for a concurrent request
	beforeLock func(key string)
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{values: map[string]string{}, locks: map[string]bool{}}
}

func (f *fakeIdempotency) GetIdempotencyKey(ctx context.Context, key string) (string, bool, error) {
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeIdempotency) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.values[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeIdempotency) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	if f.beforeLock != nil {
		f.beforeLock(lockKey)
	}
	if f.locks[lockKey] {
		return false, nil
	}
	f.locks[lockKey] = true
	return true, nil
}

func (f *fakeIdempotency) ReleaseLock(ctx context.Context, lockKey string) error {
	delete(f.locks, lockKey)
	return nil
}

// fakePublisher records the type of every published event
type fakePublisher struct {
	events []string
	closed []*models.OrderClosedEvent
	err    error
}

func (f *fakePublisher) record(eventType string) error {
	f.events = append(f.events, eventType)
	return f.err
}

func (f *fakePublisher) PublishPaymentCompleted(ctx context.Context, event *models.PaymentCompletedEvent) error {
	return f.record(event.EventType)
}

func (f *fakePublisher) PublishPaymentDeleted(ctx context.Context, event *models.PaymentDeletedEvent) error {
	return f.record(event.EventType)
}

func (f *fakePublisher) PublishGiftCardRedeemed(ctx context.Context, event *models.GiftCardRedeemedEvent) error {
	return f.record(event.EventType)
}

func (f *fakePublisher) PublishOrderClosed(ctx context.Context, event *models.OrderClosedEvent) error {
	f.closed = append(f.closed, event)
	return f.record(event.EventType)
}

func (f *fakePublisher) PublishOrderRefunded(ctx context.Context, event *models.OrderRefundedEvent) error {
	return f.record(event.EventType)
}

func (f *fakePublisher) PublishRefundCreated(ctx context.Context, event *models.RefundCreatedEvent) error {
	return f.record(event.EventType)
}
