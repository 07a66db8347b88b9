package store

import (
	"context"
	"fmt"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateOrder creates a new order
func (s *Queries) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (business_id, user_id, status, tip, table_id, discount_id, reservation_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, version, created_at, updated_at`

	return sqlx.GetContext(ctx, s.q, order, query,
		order.BusinessID, order.UserID, order.Status, order.Tip,
		order.TableID, order.DiscountID, order.ReservationID)
}

// GetOrder loads an order snapshot: lines with their item, discount, tax and
// service charge resolved, the order-level discount and all payments
func (s *Queries) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return s.loadOrder(ctx, id, false)
}

// GetOrderForUpdate loads the same snapshot and locks the order row until
// the surrounding transaction ends
func (s *Queries) GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	return s.loadOrder(ctx, id, true)
}

func (s *Queries) loadOrder(ctx context.Context, id int64, lock bool) (*models.Order, error) {
	query := "SELECT * FROM orders WHERE id = $1"
	if lock {
		query += " FOR UPDATE"
	}

	var order models.Order
	if err := sqlx.GetContext(ctx, s.q, &order, query, id); err != nil {
		return nil, notFound(err, "order", id)
	}

	if order.DiscountID != nil {
		d, err := s.GetDiscount(ctx, *order.DiscountID)
		if err != nil {
			return nil, fmt.Errorf("failed to load order discount: %w", err)
		}
		order.Discount = d
	}

	items, err := s.loadOrderItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	order.Payments = []models.Payment{}
	err = sqlx.SelectContext(ctx, s.q, &order.Payments,
		"SELECT * FROM payments WHERE order_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	return &order, nil
}

func (s *Queries) loadOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := sqlx.SelectContext(ctx, s.q, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	if len(items) == 0 {
		return items, nil
	}

	var itemIDs, discountIDs, taxIDs, chargeIDs []*int64
	for i := range items {
		itemIDs = append(itemIDs, &items[i].ItemID)
		discountIDs = append(discountIDs, items[i].DiscountID)
		taxIDs = append(taxIDs, items[i].TaxID)
		chargeIDs = append(chargeIDs, items[i].ServiceChargeID)
	}

	catalog, err := selectIn[models.Item](ctx, s.q, "SELECT * FROM items WHERE id IN (?)", uniqueIDs(itemIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	discounts, err := selectIn[models.Discount](ctx, s.q, "SELECT * FROM discounts WHERE id IN (?)", uniqueIDs(discountIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load discounts: %w", err)
	}
	taxes, err := selectIn[models.Tax](ctx, s.q, "SELECT * FROM taxes WHERE id IN (?)", uniqueIDs(taxIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load taxes: %w", err)
	}
	charges, err := selectIn[models.ServiceCharge](ctx, s.q, "SELECT * FROM service_charges WHERE id IN (?)", uniqueIDs(chargeIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load service charges: %w", err)
	}

	itemMap := make(map[int64]*models.Item, len(catalog))
	for i := range catalog {
		itemMap[catalog[i].ID] = &catalog[i]
	}
	discountMap := make(map[int64]*models.Discount, len(discounts))
	for i := range discounts {
		discountMap[discounts[i].ID] = &discounts[i]
	}
	taxMap := make(map[int64]*models.Tax, len(taxes))
	for i := range taxes {
		taxMap[taxes[i].ID] = &taxes[i]
	}
	chargeMap := make(map[int64]*models.ServiceCharge, len(charges))
	for i := range charges {
		chargeMap[charges[i].ID] = &charges[i]
	}

	for i := range items {
		line := &items[i]
		line.Item = itemMap[line.ItemID]
		if line.DiscountID != nil {
			line.Discount = discountMap[*line.DiscountID]
		}
		if line.TaxID != nil {
			line.Tax = taxMap[*line.TaxID]
		}
		if line.ServiceChargeID != nil {
			line.ServiceCharge = chargeMap[*line.ServiceChargeID]
		}
	}

	return items, nil
}

// UpdateOrder saves status, tip, table and discount. The row version must
// still match the one read; it is bumped on success
func (s *Queries) UpdateOrder(ctx context.Context, order *models.Order) error {
	query := `
		UPDATE orders
		SET status = $1, tip = $2, table_id = $3, discount_id = $4,
		    version = version + 1, updated_at = NOW()
		WHERE id = $5 AND version = $6
		RETURNING version, updated_at`

	rows, err := s.q.QueryxContext(ctx, query,
		order.Status, order.Tip, order.TableID, order.DiscountID, order.ID, order.Version)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return fmt.Errorf("order %d: %w", order.ID, ErrConflict)
	}
	return rows.Scan(&order.Version, &order.UpdatedAt)
}

// CreateOrderItem creates a new order line
func (s *Queries) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, item_id, quantity, discount_id, tax_id, service_charge_id, variation_option_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	return sqlx.GetContext(ctx, s.q, &item.ID, query,
		item.OrderID, item.ItemID, item.Quantity, item.DiscountID, item.TaxID,
		item.ServiceChargeID, item.VariationOptionID, item.Notes)
}

// UpdateOrderItem saves the mutable fields of an order line
func (s *Queries) UpdateOrderItem(ctx context.Context, item *models.OrderItem) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE order_items
		SET quantity = $1, discount_id = $2, tax_id = $3, service_charge_id = $4,
		    variation_option_id = $5, notes = $6
		WHERE id = $7`,
		item.Quantity, item.DiscountID, item.TaxID, item.ServiceChargeID,
		item.VariationOptionID, item.Notes, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update order item: %w", err)
	}
	return expectRow(res, "order item", item.ID)
}

// DeleteOrderItem removes an order line
func (s *Queries) DeleteOrderItem(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM order_items WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete order item: %w", err)
	}
	return expectRow(res, "order item", id)
}
