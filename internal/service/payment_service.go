package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"pos-service/internal/billing"
	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const idempotencyLockTTL = 30 * time.Second

// PaymentService records payments, debits gift cards and closes settled orders
type PaymentService struct {
	store          store.Transactor
	idempotency    IdempotencyStore
	eventPublisher EventPublisher
	settings       Settings
	logger         *zap.Logger
	now            func() time.Time
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	store store.Transactor,
	idempotency IdempotencyStore,
	eventPublisher EventPublisher,
	settings Settings,
) *PaymentService {
	return &PaymentService{
		store:          store,
		idempotency:    idempotency,
		eventPublisher: eventPublisher,
		settings:       settings,
		logger:         util.GetLogger(),
		now:            time.Now,
	}
}

// CreatePaymentRequest represents a payment against an order
type CreatePaymentRequest struct {
	OrderID    int64           `json:"order_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
	Method     string          `json:"method" binding:"required"`
	Provider   string          `json:"provider"`
	Currency   string          `json:"currency"`
	Status     string          `json:"status"`
	GiftCardID *int64          `json:"gift_card_id,omitempty"`
}

// settlement is what a payment transaction changed, used once it commits
type settlement struct {
	order    *models.Order
	card     *models.GiftCard
	debited  bool
	redeemed bool
	closed   bool
	totals   billing.Totals
}

// CreatePayment records a payment. A COMPLETED payment with a gift card
// debits the card, and the order closes once nothing remains to be paid.
// A non-empty idempotency key returns the payment first created with it.
func (s *PaymentService) CreatePayment(ctx context.Context, req *CreatePaymentRequest, idempotencyKey string) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.CreatePayment")
	defer span.End()

	const op = "PaymentService.CreatePayment"

	if idempotencyKey != "" {
		key := "payment:" + idempotencyKey
		if existing := s.replay(ctx, key); existing != nil {
			return existing, nil
		}

		locked, err := s.idempotency.AcquireLock(ctx, key, idempotencyLockTTL)
		if err != nil {
			s.logger.Warn("Idempotency lock unavailable, continuing without it",
				zap.String("idempotency_key", idempotencyKey),
				zap.Error(err))
		} else if !locked {
			return nil, billing.InvalidState(op, "a payment with idempotency key %q is already being processed", idempotencyKey)
		} else {
			defer func() {
				if err := s.idempotency.ReleaseLock(context.Background(), key); err != nil {
					s.logger.Warn("Failed to release idempotency lock", zap.Error(err))
				}
			}()

			// a request holding the lock before us may have stored the key since the first lookup
			if existing := s.replay(ctx, key); existing != nil {
				return existing, nil
			}
		}
	}

	payment := &models.Payment{
		OrderID:    req.OrderID,
		Amount:     req.Amount,
		PaidAt:     s.now(),
		Method:     req.Method,
		Provider:   req.Provider,
		Currency:   strings.ToUpper(req.Currency),
		Status:     req.Status,
		GiftCardID: req.GiftCardID,
	}
	if req.PaidAt != nil {
		payment.PaidAt = *req.PaidAt
	}
	if payment.Currency == "" {
		payment.Currency = s.settings.DefaultCurrency
	}

	start := time.Now()
	txCtx, cancel := s.settings.withSettlementTimeout(ctx)
	defer cancel()

	var result settlement
	err := s.store.WithTx(txCtx, func(tx store.Repository) error {
		result = settlement{}

		order, err := tx.GetOrderForUpdate(txCtx, req.OrderID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		result.order = order

		if payment.GiftCardID != nil {
			card, err := tx.GetGiftCardForUpdate(txCtx, *payment.GiftCardID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			result.card = card
		}

		result.redeemed, err = billing.SettleNewPayment(order, payment, result.card, s.now())
		if err != nil {
			return err
		}

		if payment.Status == models.PaymentStatusCompleted && result.card != nil {
			if err := tx.UpdateGiftCard(txCtx, result.card); err != nil {
				return err
			}
			result.debited = true
		}

		if err := tx.CreatePayment(txCtx, payment); err != nil {
			return err
		}

		if payment.Status == models.PaymentStatusCompleted {
			return s.closeIfSettled(txCtx, tx, payment, &result)
		}
		return nil
	})
	util.SettlementLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.PaymentsRejectedTotal.WithLabelValues(errorReason(err)).Inc()
		s.logger.Warn("Payment rejected",
			zap.Int64("order_id", req.OrderID),
			zap.String("amount", req.Amount.String()),
			zap.Error(err))
		return nil, wrapTx("create payment", err)
	}

	util.PaymentsCreatedTotal.WithLabelValues(payment.Status).Inc()
	s.logger.Info("Payment created",
		zap.Int64("order_id", payment.OrderID),
		zap.Int64("payment_id", payment.ID),
		zap.String("status", payment.Status),
		zap.String("amount", payment.Amount.String()))

	if idempotencyKey != "" {
		err := s.idempotency.SetIdempotencyKey(ctx, "payment:"+idempotencyKey,
			strconv.FormatInt(payment.ID, 10), s.settings.IdempotencyTTL)
		if err != nil {
			s.logger.Warn("Failed to store idempotency key",
				zap.String("idempotency_key", idempotencyKey),
				zap.Error(err))
		}
	}

	if payment.Status == models.PaymentStatusCompleted {
		s.afterCompletion(ctx, payment, &result)
	}

	return payment, nil
}

// replay returns the payment stored under key, or nil when there is none
func (s *PaymentService) replay(ctx context.Context, key string) *models.Payment {
	value, ok, err := s.idempotency.GetIdempotencyKey(ctx, key)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		s.logger.Warn("Corrupt idempotency value", zap.String("key", key), zap.String("value", value))
		return nil
	}

	payment, err := s.store.GetPayment(ctx, id)
	if err != nil {
		s.logger.Warn("Idempotent payment no longer available",
			zap.Int64("payment_id", id),
			zap.Error(err))
		return nil
	}

	util.IdempotentReplaysTotal.Inc()
	s.logger.Info("Duplicate payment request detected",
		zap.String("key", key),
		zap.Int64("payment_id", payment.ID))
	return payment
}

// closeIfSettled folds the completed payment into the locked order and closes
// the order when it is fully paid
func (s *PaymentService) closeIfSettled(ctx context.Context, tx store.Repository, payment *models.Payment, result *settlement) error {
	billing.ReplacePayment(result.order, *payment)
	result.totals, result.closed = billing.CloseIfSettled(result.order, s.now())
	if !result.closed {
		return nil
	}
	return tx.UpdateOrder(ctx, result.order)
}

// afterCompletion counts and publishes what a completed payment caused
func (s *PaymentService) afterCompletion(ctx context.Context, payment *models.Payment, result *settlement) {
	util.PaymentsCompletedTotal.Inc()

	event := &models.PaymentCompletedEvent{
		BaseEvent:  models.NewBaseEvent(models.EventTypePaymentCompleted),
		OrderID:    payment.OrderID,
		PaymentID:  payment.ID,
		Amount:     payment.Amount,
		Method:     payment.Method,
		GiftCardID: payment.GiftCardID,
	}
	if err := s.eventPublisher.PublishPaymentCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish PaymentCompleted event", zap.Error(err))
	}

	if result.debited {
		util.GiftCardRedemptionsTotal.WithLabelValues("debited").Inc()
	}
	if result.redeemed {
		util.GiftCardRedemptionsTotal.WithLabelValues("redeemed").Inc()
		s.logger.Info("Gift card fully redeemed",
			zap.Int64("gift_card_id", result.card.ID),
			zap.Int64("payment_id", payment.ID))

		event := &models.GiftCardRedeemedEvent{
			BaseEvent:  models.NewBaseEvent(models.EventTypeGiftCardRedeemed),
			GiftCardID: result.card.ID,
			PaymentID:  payment.ID,
		}
		if err := s.eventPublisher.PublishGiftCardRedeemed(ctx, event); err != nil {
			s.logger.Error("Failed to publish GiftCardRedeemed event", zap.Error(err))
		}
	}

	if result.closed {
		util.OrdersClosedTotal.Inc()
		s.logger.Info("Order closed",
			zap.Int64("order_id", result.order.ID),
			zap.String("total", result.totals.Total.String()),
			zap.String("amount_paid", result.totals.AmountPaid.String()))

		if err := s.eventPublisher.PublishOrderClosed(ctx, orderClosedEvent(result.order, result.totals)); err != nil {
			s.logger.Error("Failed to publish OrderClosed event", zap.Error(err))
		}
	}
}

// GetPayment retrieves a payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.GetPayment")
	defer span.End()

	payment, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return nil, storeError("PaymentService.GetPayment", err)
	}
	return payment, nil
}

// UpdatePayment applies a patch. A payment turning COMPLETED debits its gift
// card and closes the order once nothing remains to be paid.
func (s *PaymentService) UpdatePayment(ctx context.Context, id int64, patch billing.PaymentPatch) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.UpdatePayment")
	defer span.End()

	const op = "PaymentService.UpdatePayment"

	if patch.Currency != nil {
		upper := strings.ToUpper(*patch.Currency)
		patch.Currency = &upper
	}

	start := time.Now()
	txCtx, cancel := s.settings.withSettlementTimeout(ctx)
	defer cancel()

	var payment *models.Payment
	var result settlement
	completedNow := false
	err := s.store.WithTx(txCtx, func(tx store.Repository) error {
		result = settlement{}

		existing, err := tx.GetPayment(txCtx, id)
		if err != nil {
			return storeError(op, err)
		}

		// order row first, matching the lock order of CreatePayment
		order, err := tx.GetOrderForUpdate(txCtx, existing.OrderID)
		if err != nil {
			return storeError(op, err)
		}
		result.order = order

		payment, err = tx.GetPaymentForUpdate(txCtx, id)
		if err != nil {
			return storeError(op, err)
		}

		completing := patch.Status != nil && *patch.Status == models.PaymentStatusCompleted &&
			payment.Status != models.PaymentStatusCompleted
		if completing && payment.GiftCardID != nil {
			card, err := tx.GetGiftCardForUpdate(txCtx, *payment.GiftCardID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			result.card = card
		}

		completedNow, result.redeemed, err = billing.ApplyPaymentPatch(payment, patch, result.card, s.now())
		if err != nil {
			return err
		}

		if completedNow && result.card != nil {
			if err := tx.UpdateGiftCard(txCtx, result.card); err != nil {
				return err
			}
			result.debited = true
		}

		if err := tx.UpdatePayment(txCtx, payment); err != nil {
			return storeError(op, err)
		}

		if completedNow {
			return s.closeIfSettled(txCtx, tx, payment, &result)
		}
		return nil
	})
	util.SettlementLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.PaymentsRejectedTotal.WithLabelValues(errorReason(err)).Inc()
		s.logger.Warn("Payment update rejected", zap.Int64("payment_id", id), zap.Error(err))
		return nil, wrapTx("update payment", err)
	}

	s.logger.Info("Payment updated",
		zap.Int64("payment_id", payment.ID),
		zap.String("status", payment.Status),
		zap.Bool("completed_now", completedNow))

	if completedNow {
		s.afterCompletion(ctx, payment, &result)
	}

	return payment, nil
}

// DeletePayment removes a payment and reports whether it existed. A gift card
// debit or an order closure the payment caused is not reversed.
func (s *PaymentService) DeletePayment(ctx context.Context, id int64) (bool, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.DeletePayment")
	defer span.End()

	var payment *models.Payment
	deleted := false
	err := s.store.WithTx(ctx, func(tx store.Repository) error {
		var err error
		payment, err = tx.GetPaymentForUpdate(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		deleted, err = tx.DeletePayment(ctx, id)
		return err
	})
	if err != nil {
		return false, wrapTx("delete payment", err)
	}
	if !deleted {
		return false, nil
	}

	util.PaymentsDeletedTotal.WithLabelValues(payment.Status).Inc()
	s.logger.Warn("Payment deleted without compensation",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("order_id", payment.OrderID),
		zap.String("status", payment.Status),
		zap.String("amount", payment.Amount.String()),
		zap.Bool("gift_card", payment.GiftCardID != nil))

	event := &models.PaymentDeletedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypePaymentDeleted),
		OrderID:   payment.OrderID,
		PaymentID: payment.ID,
		Amount:    payment.Amount,
		Status:    payment.Status,
	}
	if err := s.eventPublisher.PublishPaymentDeleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish PaymentDeleted event", zap.Error(err))
	}

	return true, nil
}
