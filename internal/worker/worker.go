package worker

import (
	"context"

	"pos-service/internal/broker"
	"pos-service/internal/service"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// StockWorker commits reserved stock once billing events report an order closed
type StockWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewStockWorker creates a new stock worker
func NewStockWorker(consumer *broker.Consumer, processor *service.EventProcessor) *StockWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderClosed(processor.HandleOrderClosed)

	return &StockWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start starts the worker
func (w *StockWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockWorker) Stop() error {
	w.logger.Info("Stopping stock worker")
	return w.consumer.Close()
}
