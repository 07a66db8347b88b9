package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"pos-service/internal/billing"
	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RefundService records refunds within the refundable cap of an order
type RefundService struct {
	store          store.Transactor
	eventPublisher EventPublisher
	settings       Settings
	logger         *zap.Logger
	now            func() time.Time
}

// NewRefundService creates a new refund service
func NewRefundService(store store.Transactor, eventPublisher EventPublisher, settings Settings) *RefundService {
	return &RefundService{
		store:          store,
		eventPublisher: eventPublisher,
		settings:       settings,
		logger:         util.GetLogger(),
		now:            time.Now,
	}
}

// CreateRefundRequest represents a refund against an order
type CreateRefundRequest struct {
	OrderID      int64           `json:"order_id" binding:"required"`
	Amount       decimal.Decimal `json:"amount"`
	Reason       string          `json:"reason"`
	RefundMethod string          `json:"refund_method"`
	Currency     string          `json:"currency"`
	Status       string          `json:"status"`
}

// CreateRefund records a refund. The amount may not exceed what was paid and
// not yet refunded; a COMPLETED refund moves the order to REFUNDED.
func (s *RefundService) CreateRefund(ctx context.Context, req *CreateRefundRequest) (*models.Refund, error) {
	ctx, span := util.StartSpan(ctx, "RefundService.CreateRefund")
	defer span.End()

	refund := &models.Refund{
		OrderID:      req.OrderID,
		Amount:       req.Amount,
		Reason:       req.Reason,
		RefundMethod: req.RefundMethod,
		Currency:     strings.ToUpper(req.Currency),
		Status:       req.Status,
	}
	if refund.Currency == "" {
		refund.Currency = s.settings.DefaultCurrency
	}

	var order *models.Order
	flipped := false
	err := s.store.WithTx(ctx, func(tx store.Repository) error {
		var err error
		order, err = tx.GetOrderForUpdate(ctx, req.OrderID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		var prior []models.Refund
		if order != nil {
			prior, err = tx.ListRefundsByOrderID(ctx, order.ID)
			if err != nil {
				return err
			}
		}

		flipped, err = billing.AcceptRefund(order, prior, refund, s.now())
		if err != nil {
			return err
		}

		if err := tx.CreateRefund(ctx, refund); err != nil {
			return err
		}
		if flipped {
			return tx.UpdateOrder(ctx, order)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, billing.ErrValidation) {
			util.RefundsRejectedTotal.Inc()
		}
		s.logger.Warn("Refund rejected",
			zap.Int64("order_id", req.OrderID),
			zap.String("amount", req.Amount.String()),
			zap.Error(err))
		return nil, wrapTx("create refund", err)
	}

	util.RefundsCreatedTotal.WithLabelValues(refund.Status).Inc()
	s.logger.Info("Refund created",
		zap.Int64("order_id", refund.OrderID),
		zap.Int64("refund_id", refund.ID),
		zap.String("status", refund.Status),
		zap.String("amount", refund.Amount.String()))

	event := &models.RefundCreatedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeRefundCreated),
		OrderID:   refund.OrderID,
		RefundID:  refund.ID,
		Amount:    refund.Amount,
		Status:    refund.Status,
	}
	if err := s.eventPublisher.PublishRefundCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish RefundCreated event", zap.Error(err))
	}

	if flipped {
		s.orderRefunded(ctx, refund)
	}

	return refund, nil
}

// UpdateRefund applies a patch. A changed amount must still fit the cap and a
// resulting COMPLETED status moves the order to REFUNDED.
func (s *RefundService) UpdateRefund(ctx context.Context, id int64, patch billing.RefundPatch) (*models.Refund, error) {
	ctx, span := util.StartSpan(ctx, "RefundService.UpdateRefund")
	defer span.End()

	const op = "RefundService.UpdateRefund"

	if patch.Currency != nil {
		upper := strings.ToUpper(*patch.Currency)
		patch.Currency = &upper
	}

	var refund *models.Refund
	flipped := false
	err := s.store.WithTx(ctx, func(tx store.Repository) error {
		var err error
		refund, err = tx.GetRefundForUpdate(ctx, id)
		if err != nil {
			return storeError(op, err)
		}

		order, err := tx.GetOrderForUpdate(ctx, refund.OrderID)
		if err != nil {
			return storeError(op, err)
		}

		refunds, err := tx.ListRefundsByOrderID(ctx, order.ID)
		if err != nil {
			return err
		}

		flipped, err = billing.ApplyRefundPatch(order, refunds, refund, patch, s.now())
		if err != nil {
			return err
		}

		if err := tx.UpdateRefund(ctx, refund); err != nil {
			return storeError(op, err)
		}
		if flipped {
			return tx.UpdateOrder(ctx, order)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, billing.ErrValidation) {
			util.RefundsRejectedTotal.Inc()
		}
		s.logger.Warn("Refund update rejected", zap.Int64("refund_id", id), zap.Error(err))
		return nil, wrapTx("update refund", err)
	}

	s.logger.Info("Refund updated",
		zap.Int64("refund_id", refund.ID),
		zap.String("status", refund.Status))

	if flipped {
		s.orderRefunded(ctx, refund)
	}

	return refund, nil
}

func (s *RefundService) orderRefunded(ctx context.Context, refund *models.Refund) {
	util.OrdersRefundedTotal.Inc()
	s.logger.Info("Order refunded",
		zap.Int64("order_id", refund.OrderID),
		zap.Int64("refund_id", refund.ID))

	event := &models.OrderRefundedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeOrderRefunded),
		OrderID:   refund.OrderID,
		RefundID:  refund.ID,
		Amount:    refund.Amount,
	}
	if err := s.eventPublisher.PublishOrderRefunded(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderRefunded event", zap.Error(err))
	}
}
