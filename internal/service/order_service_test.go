package service

import (
	"context"
	"errors"
	"testing"

	"pos-service/internal/billing"
	"pos-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	view, err := f.orders.CreateOrder(ctx, &CreateOrderRequest{
		BusinessID: 1,
		UserID:     7,
		TableID:    int64Ptr(4),
		Tip:        decPtr("2.50"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusOpen, view.Status)
	assert.Equal(t, int64(4), *view.TableID)
	assert.True(t, view.Totals.Total.Equal(dec("2.5")))
	assert.Empty(t, view.Items)
}

func TestCreateOrderRejects(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.orders.CreateOrder(ctx, &CreateOrderRequest{BusinessID: 1, UserID: 7, Tip: decPtr("-1")})
	assert.ErrorIs(t, err, billing.ErrValidation)

	_, err = f.orders.CreateOrder(ctx, &CreateOrderRequest{BusinessID: 1, UserID: 7, DiscountID: int64Ptr(999)})
	assert.ErrorIs(t, err, billing.ErrNotFound)
	assert.Empty(t, f.store.orders)
}

func TestGetOrderNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.orders.GetOrder(context.Background(), 404)
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestAddItemComputesTotalsAndReservesStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	itemID := f.seedItem("10.00", models.ItemTypeProduct)
	taxID := f.seedTax("10")
	f.stock.available[itemID] = 5
	orderID := f.openOrder(t)

	view, err := f.orders.AddItem(ctx, orderID, &AddItemRequest{ItemID: itemID, Quantity: 2, TaxID: &taxID})
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	assert.True(t, view.Totals.Subtotal.Equal(dec("20")))
	assert.True(t, view.Totals.TaxTotal.Equal(dec("2")))
	assert.True(t, view.Totals.Total.Equal(dec("22")))
	assert.Equal(t, 3, f.stock.available[itemID])
	assert.Equal(t, 2, f.stock.reserved[itemID])
}

func TestAddItemRejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	plain := f.seedItem("10.00", models.ItemTypeProduct)
	sized := f.seedItem("30.00", models.ItemTypeService, "Short", "Long")
	scarce := f.seedItem("5.00", models.ItemTypeProduct)
	f.stock.available[scarce] = 1

	tests := []struct {
		name string
		req  AddItemRequest
		kind error
	}{
		{"unknown item", AddItemRequest{ItemID: 999, Quantity: 1}, billing.ErrNotFound},
		{"zero quantity", AddItemRequest{ItemID: plain, Quantity: 0}, billing.ErrValidation},
		{"missing variation", AddItemRequest{ItemID: sized, Quantity: 1}, billing.ErrValidation},
		{"foreign variation", AddItemRequest{ItemID: sized, Quantity: 1, VariationOptionID: int64Ptr(999)}, billing.ErrValidation},
		{"unknown tax", AddItemRequest{ItemID: plain, Quantity: 1, TaxID: int64Ptr(999)}, billing.ErrNotFound},
		{"unknown discount", AddItemRequest{ItemID: plain, Quantity: 1, DiscountID: int64Ptr(999)}, billing.ErrNotFound},
		{"unknown service charge", AddItemRequest{ItemID: plain, Quantity: 1, ServiceChargeID: int64Ptr(999)}, billing.ErrNotFound},
		{"insufficient stock", AddItemRequest{ItemID: scarce, Quantity: 2}, billing.ErrValidation},
	}

	orderID := f.openOrder(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.orders.AddItem(ctx, orderID, &req)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	view, err := f.orders.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, 1, f.stock.available[scarce])
}

func TestAddItemWithVariation(t *testing.T) {
	f := newFixture()
	itemID := f.seedItem("30.00", models.ItemTypeService, "Short", "Long")
	option := f.store.items[itemID].VariationOptions[1].ID
	orderID := f.openOrder(t)

	view, err := f.orders.AddItem(context.Background(), orderID, &AddItemRequest{
		ItemID: itemID, Quantity: 1, VariationOptionID: &option, Notes: strPtr("layered"),
	})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, option, *view.Items[0].VariationOptionID)
}

func TestItemsFrozenOnceClosed(t *testing.T) {
	for _, status := range []string{models.OrderStatusClosed, models.OrderStatusRefunded} {
		t.Run(status, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()
			itemID := f.seedItem("10.00", models.ItemTypeProduct)
			f.stock.available[itemID] = 10
			orderID := f.orderWith(t, itemID, 1)
			var lineID int64
			for id := range f.store.lines {
				lineID = id
			}
			f.setStatus(orderID, status)

			_, err := f.orders.AddItem(ctx, orderID, &AddItemRequest{ItemID: itemID, Quantity: 1})
			assert.ErrorIs(t, err, billing.ErrInvalidState)

			_, err = f.orders.UpdateItem(ctx, orderID, lineID, &UpdateItemRequest{Quantity: intPtr(3)})
			assert.ErrorIs(t, err, billing.ErrInvalidState)

			_, err = f.orders.RemoveItem(ctx, orderID, lineID)
			assert.ErrorIs(t, err, billing.ErrInvalidState)

			_, err = f.orders.UpdateOrder(ctx, orderID, &UpdateOrderRequest{Tip: decPtr("1")})
			assert.ErrorIs(t, err, billing.ErrInvalidState)

			assert.Equal(t, 9, f.stock.available[itemID])
			assert.Len(t, f.store.lines, 1)
		})
	}
}

func TestPendingOrderItemsMutable(t *testing.T) {
	f := newFixture()
	itemID := f.seedItem("10.00", models.ItemTypeProduct)
	orderID := f.openOrder(t)
	f.setStatus(orderID, models.OrderStatusPending)

	_, err := f.orders.AddItem(context.Background(), orderID, &AddItemRequest{ItemID: itemID, Quantity: 1})
	assert.NoError(t, err)
}

func TestUpdateItemAdjustsReservation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	itemID := f.seedItem("10.00", models.ItemTypeProduct)
	f.stock.available[itemID] = 5
	orderID := f.orderWith(t, itemID, 2)

	view, err := f.orders.GetOrder(ctx, orderID)
	require.NoError(t, err)
	lineID := view.Items[0].ID

	view, err = f.orders.UpdateItem(ctx, orderID, lineID, &UpdateItemRequest{Quantity: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, 4, view.Items[0].Quantity)
	assert.Equal(t, 1, f.stock.available[itemID])
	assert.Equal(t, 4, f.stock.reserved[itemID])

	_, err = f.orders.UpdateItem(ctx, orderID, lineID, &UpdateItemRequest{Quantity: intPtr(9)})
	assert.ErrorIs(t, err, billing.ErrValidation)
	assert.Equal(t, 1, f.stock.available[itemID])

	view, err = f.orders.UpdateItem(ctx, orderID, lineID, &UpdateItemRequest{Quantity: intPtr(1)})
	require.NoError(t, err)
	assert.True(t, view.Totals.Total.Equal(dec("10")))
	assert.Equal(t, 4, f.stock.available[itemID])
	assert.Equal(t, 1, f.stock.reserved[itemID])

	_, err = f.orders.UpdateItem(ctx, orderID, 999, &UpdateItemRequest{Quantity: intPtr(1)})
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestRemoveItemReleasesStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	itemID := f.seedItem("10.00", models.ItemTypeProduct)
	f.stock.available[itemID] = 5
	orderID := f.orderWith(t, itemID, 3)

	view, err := f.orders.GetOrder(ctx, orderID)
	require.NoError(t, err)

	view, err = f.orders.RemoveItem(ctx, orderID, view.Items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.Totals.Total.IsZero())
	assert.Equal(t, 5, f.stock.available[itemID])

	_, err = f.orders.RemoveItem(ctx, orderID, 999)
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestAddItemStockErrorIsNotValidation(t *testing.T) {
	f := newFixture()
	itemID := f.seedItem("10.00", models.ItemTypeProduct)
	f.stock.err = errors.New("redis down")
	orderID := f.openOrder(t)

	_, err := f.orders.AddItem(context.Background(), orderID, &AddItemRequest{ItemID: itemID, Quantity: 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, billing.ErrValidation)
}

func TestUpdateOrderAppliesTipAndDiscount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	itemID := f.seedItem("100.00", models.ItemTypeProduct)
	discountID := f.seedDiscount("10", models.DiscountAppliesToOrder)
	orderID := f.orderWith(t, itemID, 1)

	view, err := f.orders.UpdateOrder(ctx, orderID, &UpdateOrderRequest{
		DiscountID: &discountID,
		Tip:        decPtr("5"),
		TableID:    int64Ptr(12),
	})
	require.NoError(t, err)

	assert.True(t, view.Totals.DiscountTotal.Equal(dec("10")))
	assert.True(t, view.Totals.Total.Equal(dec("95")))
	assert.Equal(t, int64(12), *view.TableID)

	_, err = f.orders.UpdateOrder(ctx, orderID, &UpdateOrderRequest{Tip: decPtr("-3")})
	assert.ErrorIs(t, err, billing.ErrValidation)

	_, err = f.orders.UpdateOrder(ctx, orderID, &UpdateOrderRequest{Tip: decPtr("1.005")})
	assert.ErrorIs(t, err, billing.ErrValidation)

	_, err = f.orders.UpdateOrder(ctx, orderID, &UpdateOrderRequest{DiscountID: int64Ptr(999)})
	assert.ErrorIs(t, err, billing.ErrNotFound)
}
