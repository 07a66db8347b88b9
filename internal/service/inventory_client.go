package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/redisclient"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// InventoryStore is the Postgres side of stock keeping
type InventoryStore interface {
	ListInventory(ctx context.Context) ([]models.Inventory, error)
	ReserveStockTx(ctx context.Context, itemID int64, quantity int) error
	ReleaseStock(ctx context.Context, itemID int64, quantity int) error
	CommitStock(ctx context.Context, itemID int64, quantity int) error
}

// StockCache is the Redis side of stock keeping
type StockCache interface {
	ReserveStock(ctx context.Context, itemID int64, quantity int) (bool, error)
	ReleaseStock(ctx context.Context, itemID int64, quantity int) error
	CommitStock(ctx context.Context, itemID int64, quantity int) error
	InitInventory(ctx context.Context, itemID int64, available, reserved int) error
}

// InventoryClient handles inventory operations
type InventoryClient struct {
	store  InventoryStore
	cache  StockCache
	logger *zap.Logger
}

// NewInventoryClient creates a new inventory client
func NewInventoryClient(store InventoryStore, cache StockCache) *InventoryClient {
	return &InventoryClient{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// ReserveStock reserves stock for an item. Redis is the fast path and
// Postgres the source of truth; items without an inventory row are not stock
// tracked and always succeed.
func (ic *InventoryClient) ReserveStock(ctx context.Context, itemID int64, quantity int) (bool, error) {
	ctx, span := util.StartSpan(ctx, "InventoryClient.ReserveStock")
	defer span.End()

	start := time.Now()
	defer func() {
		util.InventoryReserveLatency.Observe(time.Since(start).Seconds())
	}()

	success, err := ic.cache.ReserveStock(ctx, itemID, quantity)
	if err != nil {
		if !errors.Is(err, redisclient.ErrUntracked) {
			ic.logger.Warn("Redis reservation failed, falling back to DB",
				zap.Int64("item_id", itemID),
				zap.Error(err))
		}
		return ic.reserveStockDB(ctx, itemID, quantity)
	}

	if !success {
		util.InventoryReservationsFailed.WithLabelValues("insufficient_stock").Inc()
		return false, nil
	}

	if err := ic.store.ReserveStockTx(ctx, itemID, quantity); err != nil {
		if rerr := ic.cache.ReleaseStock(ctx, itemID, quantity); rerr != nil && !errors.Is(rerr, redisclient.ErrUntracked) {
			ic.logger.Error("Failed to undo Redis reservation",
				zap.Int64("item_id", itemID),
				zap.Error(rerr))
		}
		if errors.Is(err, store.ErrInsufficientStock) {
			util.InventoryReservationsFailed.WithLabelValues("insufficient_stock").Inc()
			return false, nil
		}
		if errors.Is(err, store.ErrNotFound) {
			return true, nil
		}
		util.InventoryReservationsFailed.WithLabelValues("db_error").Inc()
		return false, fmt.Errorf("failed to sync reservation to DB: %w", err)
	}

	return true, nil
}

// reserveStockDB reserves stock using database transaction (fallback)
func (ic *InventoryClient) reserveStockDB(ctx context.Context, itemID int64, quantity int) (bool, error) {
	err := ic.store.ReserveStockTx(ctx, itemID, quantity)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return true, nil
	case errors.Is(err, store.ErrInsufficientStock):
		util.InventoryReservationsFailed.WithLabelValues("insufficient_stock").Inc()
		return false, nil
	default:
		util.InventoryReservationsFailed.WithLabelValues("db_error").Inc()
		return false, err
	}
}

// ReleaseStock releases reserved stock (compensation)
func (ic *InventoryClient) ReleaseStock(ctx context.Context, itemID int64, quantity int) error {
	ctx, span := util.StartSpan(ctx, "InventoryClient.ReleaseStock")
	defer span.End()

	if err := ic.cache.ReleaseStock(ctx, itemID, quantity); err != nil && !errors.Is(err, redisclient.ErrUntracked) {
		ic.logger.Error("Failed to release stock in Redis",
			zap.Int64("item_id", itemID),
			zap.Error(err))
	}

	return ic.store.ReleaseStock(ctx, itemID, quantity)
}

// CommitStock commits reserved stock (final deduction)
func (ic *InventoryClient) CommitStock(ctx context.Context, itemID int64, quantity int) error {
	ctx, span := util.StartSpan(ctx, "InventoryClient.CommitStock")
	defer span.End()

	if err := ic.cache.CommitStock(ctx, itemID, quantity); err != nil && !errors.Is(err, redisclient.ErrUntracked) {
		ic.logger.Error("Failed to commit stock in Redis",
			zap.Int64("item_id", itemID),
			zap.Error(err))
	}

	return ic.store.CommitStock(ctx, itemID, quantity)
}

// SyncInventoryToRedis synchronizes database inventory to Redis
func (ic *InventoryClient) SyncInventoryToRedis(ctx context.Context) error {
	ic.logger.Info("Starting inventory sync to Redis")

	rows, err := ic.store.ListInventory(ctx)
	if err != nil {
		return fmt.Errorf("failed to list inventory: %w", err)
	}

	for _, inv := range rows {
		if err := ic.cache.InitInventory(ctx, inv.ItemID, inv.Available, inv.Reserved); err != nil {
			ic.logger.Error("Failed to init Redis inventory",
				zap.Int64("item_id", inv.ItemID),
				zap.Error(err))
		}
	}

	ic.logger.Info("Inventory sync completed", zap.Int("count", len(rows)))
	return nil
}
