package store

import (
	"context"
	"fmt"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreatePayment creates a new payment record
func (s *Queries) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (order_id, amount, paid_at, method, provider, currency, status, gift_card_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return sqlx.GetContext(ctx, s.q, payment, query,
		payment.OrderID, payment.Amount, payment.PaidAt, payment.Method,
		payment.Provider, payment.Currency, payment.Status, payment.GiftCardID)
}

// GetPayment retrieves a payment by ID
func (s *Queries) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	var payment models.Payment
	err := sqlx.GetContext(ctx, s.q, &payment, "SELECT * FROM payments WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "payment", id)
	}
	return &payment, nil
}

// GetPaymentForUpdate retrieves a payment and locks its row
func (s *Queries) GetPaymentForUpdate(ctx context.Context, id int64) (*models.Payment, error) {
	var payment models.Payment
	err := sqlx.GetContext(ctx, s.q, &payment, "SELECT * FROM payments WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		return nil, notFound(err, "payment", id)
	}
	return &payment, nil
}

// UpdatePayment saves every mutable payment field
func (s *Queries) UpdatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		UPDATE payments
		SET amount = $1, paid_at = $2, method = $3, provider = $4, currency = $5,
		    status = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at`

	err := sqlx.GetContext(ctx, s.q, &payment.UpdatedAt, query,
		payment.Amount, payment.PaidAt, payment.Method, payment.Provider,
		payment.Currency, payment.Status, payment.ID)
	if err != nil {
		return notFound(err, "payment", payment.ID)
	}
	return nil
}

// DeletePayment removes a payment and reports whether it existed
func (s *Queries) DeletePayment(ctx context.Context, id int64) (bool, error) {
	res, err := s.q.ExecContext(ctx, "DELETE FROM payments WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
