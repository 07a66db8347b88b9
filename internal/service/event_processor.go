package service

import (
	"context"
	"fmt"

	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// EventProcessor reacts to billing events consumed from the bus
type EventProcessor struct {
	store  store.Repository
	stock  StockReserver
	logger *zap.Logger
}

// NewEventProcessor creates a new event processor
func NewEventProcessor(store store.Repository, stock StockReserver) *EventProcessor {
	return &EventProcessor{
		store:  store,
		stock:  stock,
		logger: util.GetLogger(),
	}
}

// HandleOrderClosed turns the stock reserved by a closed order into a final
// deduction. Each event is applied at most once.
func (ep *EventProcessor) HandleOrderClosed(ctx context.Context, event *models.OrderClosedEvent) error {
	ctx, span := util.StartSpan(ctx, "EventProcessor.HandleOrderClosed")
	defer span.End()

	processed, err := ep.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		ep.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	for _, item := range event.Items {
		if err := ep.stock.CommitStock(ctx, item.ItemID, item.Quantity); err != nil {
			ep.logger.Error("Failed to commit stock",
				zap.Int64("order_id", event.OrderID),
				zap.Int64("item_id", item.ItemID),
				zap.Error(err))
		}
	}

	if err := ep.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		ep.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	ep.logger.Info("Stock committed for closed order",
		zap.Int64("order_id", event.OrderID),
		zap.Int("lines", len(event.Items)))
	return nil
}
