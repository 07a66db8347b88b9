package service

import (
	"context"
	"fmt"
	"time"

	"pos-service/internal/billing"
	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService handles orders and their lines
type OrderService struct {
	store  store.Transactor
	stock  StockReserver
	logger *zap.Logger
	now    func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(store store.Transactor, stock StockReserver) *OrderService {
	return &OrderService{
		store:  store,
		stock:  stock,
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// OrderView is an order snapshot together with its computed totals
type OrderView struct {
	*models.Order
	Totals billing.Totals `json:"totals"`
}

// CreateOrderRequest represents a request to open an order
type CreateOrderRequest struct {
	BusinessID    int64            `json:"business_id" binding:"required"`
	UserID        int64            `json:"user_id" binding:"required"`
	TableID       *int64           `json:"table_id,omitempty"`
	ReservationID *int64           `json:"reservation_id,omitempty"`
	DiscountID    *int64           `json:"discount_id,omitempty"`
	Tip           *decimal.Decimal `json:"tip,omitempty"`
}

// UpdateOrderRequest changes the order-level fields; nil fields are kept
type UpdateOrderRequest struct {
	TableID    *int64           `json:"table_id,omitempty"`
	DiscountID *int64           `json:"discount_id,omitempty"`
	Tip        *decimal.Decimal `json:"tip,omitempty"`
}

// AddItemRequest represents a line to add to an order
type AddItemRequest struct {
	ItemID            int64   `json:"item_id" binding:"required"`
	Quantity          int     `json:"quantity" binding:"required"`
	VariationOptionID *int64  `json:"variation_option_id,omitempty"`
	DiscountID        *int64  `json:"discount_id,omitempty"`
	TaxID             *int64  `json:"tax_id,omitempty"`
	ServiceChargeID   *int64  `json:"service_charge_id,omitempty"`
	Notes             *string `json:"notes,omitempty"`
}

// UpdateItemRequest changes an existing line; nil fields are kept
type UpdateItemRequest struct {
	Quantity          *int    `json:"quantity,omitempty"`
	VariationOptionID *int64  `json:"variation_option_id,omitempty"`
	DiscountID        *int64  `json:"discount_id,omitempty"`
	TaxID             *int64  `json:"tax_id,omitempty"`
	ServiceChargeID   *int64  `json:"service_charge_id,omitempty"`
	Notes             *string `json:"notes,omitempty"`
}

func validateTip(op string, tip *decimal.Decimal) error {
	if tip == nil {
		return nil
	}
	if tip.IsNegative() {
		return billing.Validation(op, "tip must not be negative, got %s", tip)
	}
	return billing.ValidateScale(op, "tip", *tip)
}

// CreateOrder opens a new order
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	const op = "OrderService.CreateOrder"

	if err := validateTip(op, req.Tip); err != nil {
		return nil, err
	}

	order := &models.Order{
		BusinessID:    req.BusinessID,
		UserID:        req.UserID,
		Status:        models.OrderStatusOpen,
		Tip:           req.Tip,
		TableID:       req.TableID,
		DiscountID:    req.DiscountID,
		ReservationID: req.ReservationID,
	}

	err := s.store.WithTx(ctx, func(tx store.Repository) error {
		if order.DiscountID != nil {
			if _, err := tx.GetDiscount(ctx, *order.DiscountID); err != nil {
				return storeError(op, err)
			}
		}
		return tx.CreateOrder(ctx, order)
	})
	if err != nil {
		return nil, wrapTx("create order", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("business_id", order.BusinessID))

	return s.GetOrder(ctx, order.ID)
}

// GetOrder loads an order snapshot and computes its totals
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, storeError("OrderService.GetOrder", err)
	}

	return &OrderView{Order: order, Totals: billing.ComputeTotals(order, s.now())}, nil
}

// UpdateOrder changes tip, order discount or table of an OPEN or PENDING order
func (s *OrderService) UpdateOrder(ctx context.Context, orderID int64, req *UpdateOrderRequest) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrder")
	defer span.End()

	const op = "OrderService.UpdateOrder"

	if err := validateTip(op, req.Tip); err != nil {
		return nil, err
	}

	err := s.store.WithTx(ctx, func(tx store.Repository) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return storeError(op, err)
		}
		if !billing.ItemsMutable(order.Status) {
			return billing.InvalidState(op, "order %d is %s and can no longer be changed", order.ID, order.Status)
		}

		if req.DiscountID != nil {
			if _, err := tx.GetDiscount(ctx, *req.DiscountID); err != nil {
				return storeError(op, err)
			}
			order.DiscountID = req.DiscountID
		}
		if req.Tip != nil {
			order.Tip = req.Tip
		}
		if req.TableID != nil {
			order.TableID = req.TableID
		}
		return tx.UpdateOrder(ctx, order)
	})
	if err != nil {
		return nil, wrapTx("update order", err)
	}

	return s.GetOrder(ctx, orderID)
}

// resolveRates checks that every rate a line references exists
func resolveRates(ctx context.Context, op string, tx store.Repository, line *models.OrderItem) error {
	if line.DiscountID != nil {
		if _, err := tx.GetDiscount(ctx, *line.DiscountID); err != nil {
			return storeError(op, err)
		}
	}
	if line.TaxID != nil {
		if _, err := tx.GetTax(ctx, *line.TaxID); err != nil {
			return storeError(op, err)
		}
	}
	if line.ServiceChargeID != nil {
		if _, err := tx.GetServiceCharge(ctx, *line.ServiceChargeID); err != nil {
			return storeError(op, err)
		}
	}
	return nil
}

// reserve holds quantity of itemID, failing with a validation error when stock is short
func (s *OrderService) reserve(ctx context.Context, op string, itemID int64, quantity int) error {
	ok, err := s.stock.ReserveStock(ctx, itemID, quantity)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	if !ok {
		return billing.Validation(op, "insufficient stock for item %d", itemID)
	}
	return nil
}

func (s *OrderService) release(ctx context.Context, itemID int64, quantity int) {
	if err := s.stock.ReleaseStock(ctx, itemID, quantity); err != nil {
		s.logger.Error("Failed to release stock",
			zap.Int64("item_id", itemID),
			zap.Int("quantity", quantity),
			zap.Error(err))
	}
}

// AddItem adds a line to an OPEN or PENDING order and reserves its stock
func (s *OrderService) AddItem(ctx context.Context, orderID int64, req *AddItemRequest) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.AddItem")
	defer span.End()

	const op = "OrderService.AddItem"

	line := &models.OrderItem{
		OrderID:           orderID,
		ItemID:            req.ItemID,
		Quantity:          req.Quantity,
		VariationOptionID: req.VariationOptionID,
		DiscountID:        req.DiscountID,
		TaxID:             req.TaxID,
		ServiceChargeID:   req.ServiceChargeID,
		Notes:             req.Notes,
	}

	reserved := false
	err := s.store.WithTx(ctx, func(tx store.Repository) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return storeError(op, err)
		}
		if err := billing.EnsureItemsMutable(op, order); err != nil {
			return err
		}

		item, err := tx.GetItem(ctx, req.ItemID)
		if err != nil {
			return storeError(op, err)
		}
		if err := billing.ValidateLine(op, item, line.Quantity, line.VariationOptionID); err != nil {
			return err
		}
		if err := resolveRates(ctx, op, tx, line); err != nil {
			return err
		}

		if err := s.reserve(ctx, op, item.ID, line.Quantity); err != nil {
			return err
		}
		reserved = true

		if err := tx.CreateOrderItem(ctx, line); err != nil {
			return err
		}
		return tx.UpdateOrder(ctx, order)
	})
	if err != nil {
		if reserved {
			s.release(ctx, line.ItemID, line.Quantity)
		}
		return nil, wrapTx("add order item", err)
	}

	util.OrderItemsChangedTotal.WithLabelValues("add").Inc()
	s.logger.Info("Order item added",
		zap.Int64("order_id", orderID),
		zap.Int64("order_item_id", line.ID),
		zap.Int64("item_id", line.ItemID),
		zap.Int("quantity", line.Quantity))

	return s.GetOrder(ctx, orderID)
}

// UpdateItem changes a line of an OPEN or PENDING order. A larger quantity
// reserves the difference, a smaller one releases it.
func (s *OrderService) UpdateItem(ctx context.Context, orderID, lineID int64, req *UpdateItemRequest) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateItem")
	defer span.End()

	const op = "OrderService.UpdateItem"

	var itemID int64
	delta := 0
	reserved := false
	err := s.store.WithTx(ctx, func(tx store.Repository) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return storeError(op, err)
		}
		if err := billing.EnsureItemsMutable(op, order); err != nil {
			return err
		}

		current := billing.FindLine(order, lineID)
		if current == nil {
			return billing.NotFound(op, "order item %d on order %d", lineID, orderID)
		}

		next := *current
		if req.Quantity != nil {
			next.Quantity = *req.Quantity
		}
		if req.VariationOptionID != nil {
			next.VariationOptionID = req.VariationOptionID
		}
		if req.DiscountID != nil {
			next.DiscountID = req.DiscountID
		}
		if req.TaxID != nil {
			next.TaxID = req.TaxID
		}
		if req.ServiceChargeID != nil {
			next.ServiceChargeID = req.ServiceChargeID
		}
		if req.Notes != nil {
			next.Notes = req.Notes
		}

		item, err := tx.GetItem(ctx, next.ItemID)
		if err != nil {
			return storeError(op, err)
		}
		if err := billing.ValidateLine(op, item, next.Quantity, next.VariationOptionID); err != nil {
			return err
		}
		if err := resolveRates(ctx, op, tx, &next); err != nil {
			return err
		}

		itemID = next.ItemID
		delta = next.Quantity - current.Quantity
		if delta > 0 {
			if err := s.reserve(ctx, op, itemID, delta); err != nil {
				return err
			}
			reserved = true
		}

		if err := tx.UpdateOrderItem(ctx, &next); err != nil {
			return storeError(op, err)
		}
		return tx.UpdateOrder(ctx, order)
	})
	if err != nil {
		if reserved {
			s.release(ctx, itemID, delta)
		}
		return nil, wrapTx("update order item", err)
	}

	if delta < 0 {
		s.release(ctx, itemID, -delta)
	}

	util.OrderItemsChangedTotal.WithLabelValues("update").Inc()
	s.logger.Info("Order item updated",
		zap.Int64("order_id", orderID),
		zap.Int64("order_item_id", lineID),
		zap.Int("quantity_delta", delta))

	return s.GetOrder(ctx, orderID)
}

// RemoveItem deletes a line from an OPEN or PENDING order and releases its stock
func (s *OrderService) RemoveItem(ctx context.Context, orderID, lineID int64) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.RemoveItem")
	defer span.End()

	const op = "OrderService.RemoveItem"

	var removed models.OrderItem
	err := s.store.WithTx(ctx, func(tx store.Repository) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return storeError(op, err)
		}
		if err := billing.EnsureItemsMutable(op, order); err != nil {
			return err
		}

		line := billing.FindLine(order, lineID)
		if line == nil {
			return billing.NotFound(op, "order item %d on order %d", lineID, orderID)
		}
		removed = *line

		if err := tx.DeleteOrderItem(ctx, lineID); err != nil {
			return storeError(op, err)
		}
		billing.RemoveLine(order, lineID)
		return tx.UpdateOrder(ctx, order)
	})
	if err != nil {
		return nil, wrapTx("remove order item", err)
	}

	s.release(ctx, removed.ItemID, removed.Quantity)

	util.OrderItemsChangedTotal.WithLabelValues("remove").Inc()
	s.logger.Info("Order item removed",
		zap.Int64("order_id", orderID),
		zap.Int64("order_item_id", lineID))

	return s.GetOrder(ctx, orderID)
}
