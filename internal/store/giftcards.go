package store

import (
	"context"
	"errors"
	"fmt"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// CreateGiftCard issues a new gift card
func (s *Queries) CreateGiftCard(ctx context.Context, card *models.GiftCard) error {
	query := `
		INSERT INTO gift_cards (business_id, code, initial_value, current_balance, currency, issued_at, expires_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, version`

	err := sqlx.GetContext(ctx, s.q, card, query,
		card.BusinessID, card.Code, card.InitialValue, card.CurrentBalance,
		card.Currency, card.IssuedAt, card.ExpiresAt, card.Status)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("gift card code %q: %w", card.Code, ErrConflict)
	}
	return err
}

// GetGiftCardByCode retrieves a gift card by its code
func (s *Queries) GetGiftCardByCode(ctx context.Context, code string) (*models.GiftCard, error) {
	var card models.GiftCard
	err := sqlx.GetContext(ctx, s.q, &card, "SELECT * FROM gift_cards WHERE code = $1", code)
	if err != nil {
		return nil, notFound(err, "gift card", code)
	}
	return &card, nil
}

// GetGiftCardForUpdate retrieves a gift card and locks its row
func (s *Queries) GetGiftCardForUpdate(ctx context.Context, id int64) (*models.GiftCard, error) {
	var card models.GiftCard
	err := sqlx.GetContext(ctx, s.q, &card, "SELECT * FROM gift_cards WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		return nil, notFound(err, "gift card", id)
	}
	return &card, nil
}

// UpdateGiftCard saves balance and status guarded by the row version. The
// balance check constraint in the schema rejects negative balances as well
func (s *Queries) UpdateGiftCard(ctx context.Context, card *models.GiftCard) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE gift_cards
		SET current_balance = $1, status = $2, version = version + 1
		WHERE id = $3 AND version = $4`,
		card.CurrentBalance, card.Status, card.ID, card.Version)
	if err != nil {
		return fmt.Errorf("failed to update gift card: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("gift card %d: %w", card.ID, ErrConflict)
	}
	card.Version++
	return nil
}
