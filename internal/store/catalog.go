package store

import (
	"context"
	"fmt"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetItem retrieves an item with its variation options
func (s *Queries) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	if err := sqlx.GetContext(ctx, s.q, &item, "SELECT * FROM items WHERE id = $1", id); err != nil {
		return nil, notFound(err, "item", id)
	}

	err := sqlx.SelectContext(ctx, s.q, &item.VariationOptions,
		"SELECT * FROM variation_options WHERE item_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to load variation options: %w", err)
	}
	return &item, nil
}

// GetDiscount retrieves a discount by ID
func (s *Queries) GetDiscount(ctx context.Context, id int64) (*models.Discount, error) {
	var d models.Discount
	if err := sqlx.GetContext(ctx, s.q, &d, "SELECT * FROM discounts WHERE id = $1", id); err != nil {
		return nil, notFound(err, "discount", id)
	}
	return &d, nil
}

// GetTax retrieves a tax by ID
func (s *Queries) GetTax(ctx context.Context, id int64) (*models.Tax, error) {
	var t models.Tax
	if err := sqlx.GetContext(ctx, s.q, &t, "SELECT * FROM taxes WHERE id = $1", id); err != nil {
		return nil, notFound(err, "tax", id)
	}
	return &t, nil
}

// GetServiceCharge retrieves a service charge by ID
func (s *Queries) GetServiceCharge(ctx context.Context, id int64) (*models.ServiceCharge, error) {
	var c models.ServiceCharge
	if err := sqlx.GetContext(ctx, s.q, &c, "SELECT * FROM service_charges WHERE id = $1", id); err != nil {
		return nil, notFound(err, "service charge", id)
	}
	return &c, nil
}
