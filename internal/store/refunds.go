package store

import (
	"context"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateRefund creates a new refund record
func (s *Queries) CreateRefund(ctx context.Context, refund *models.Refund) error {
	query := `
		INSERT INTO refunds (order_id, amount, refunded_at, reason, refund_method, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return sqlx.GetContext(ctx, s.q, refund, query,
		refund.OrderID, refund.Amount, refund.RefundedAt, refund.Reason,
		refund.RefundMethod, refund.Currency, refund.Status)
}

// GetRefundForUpdate retrieves a refund and locks its row
func (s *Queries) GetRefundForUpdate(ctx context.Context, id int64) (*models.Refund, error) {
	var refund models.Refund
	err := sqlx.GetContext(ctx, s.q, &refund, "SELECT * FROM refunds WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		return nil, notFound(err, "refund", id)
	}
	return &refund, nil
}

// UpdateRefund saves every mutable refund field
func (s *Queries) UpdateRefund(ctx context.Context, refund *models.Refund) error {
	query := `
		UPDATE refunds
		SET amount = $1, refunded_at = $2, reason = $3, refund_method = $4,
		    currency = $5, status = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at`

	err := sqlx.GetContext(ctx, s.q, &refund.UpdatedAt, query,
		refund.Amount, refund.RefundedAt, refund.Reason, refund.RefundMethod,
		refund.Currency, refund.Status, refund.ID)
	if err != nil {
		return notFound(err, "refund", refund.ID)
	}
	return nil
}

// ListRefundsByOrderID retrieves all refunds recorded for an order
func (s *Queries) ListRefundsByOrderID(ctx context.Context, orderID int64) ([]models.Refund, error) {
	refunds := []models.Refund{}
	err := sqlx.SelectContext(ctx, s.q, &refunds,
		"SELECT * FROM refunds WHERE order_id = $1 ORDER BY id", orderID)
	return refunds, err
}

// IsEventProcessed checks if an event has been processed
func (s *Queries) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, s.q, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Queries) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
