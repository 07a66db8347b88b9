package service

import (
	"context"
	"testing"

	"pos-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleOrderClosedCommitsReservedStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	itemID := f.seedItem("10.00", models.ItemTypeProduct)
	f.stock.available[itemID] = 10
	orderID := f.orderWith(t, itemID, 3)

	_, err := f.payments.CreatePayment(ctx, completedPayment(orderID, "30"), "")
	require.NoError(t, err)
	require.Len(t, f.publisher.closed, 1)
	event := f.publisher.closed[0]

	require.NoError(t, f.processor.HandleOrderClosed(ctx, event))
	assert.Equal(t, 3, f.stock.committed[itemID])
	assert.Equal(t, 0, f.stock.reserved[itemID])
	assert.Equal(t, 7, f.stock.available[itemID])
	assert.Equal(t, models.EventTypeOrderClosed, f.store.events[event.EventID])

	// redelivery is a no-op
	require.NoError(t, f.processor.HandleOrderClosed(ctx, event))
	assert.Equal(t, 3, f.stock.committed[itemID])
}
