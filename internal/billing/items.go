package billing

import (
	"pos-service/internal/models"
)

// ValidateLine checks a line before it is added to or changed on an order.
// An item that defines variation options needs one of its own options picked.
func ValidateLine(op string, item *models.Item, quantity int, variationOptionID *int64) error {
	if item == nil {
		return NotFound(op, "item")
	}
	if quantity < 1 {
		return Validation(op, "quantity must be at least 1, got %d", quantity)
	}
	if len(item.VariationOptions) == 0 {
		return nil
	}
	if variationOptionID == nil {
		return Validation(op, "item %d requires a variation selection", item.ID)
	}
	for _, opt := range item.VariationOptions {
		if opt.ID == *variationOptionID {
			return nil
		}
	}
	return Validation(op, "variation option %d does not belong to item %d", *variationOptionID, item.ID)
}

// FindLine returns the order line with id, or nil.
func FindLine(order *models.Order, id int64) *models.OrderItem {
	for i := range order.Items {
		if order.Items[i].ID == id {
			return &order.Items[i]
		}
	}
	return nil
}

// RemoveLine drops the order line with id and reports whether it was present.
func RemoveLine(order *models.Order, id int64) bool {
	for i := range order.Items {
		if order.Items[i].ID == id {
			order.Items = append(order.Items[:i], order.Items[i+1:]...)
			return true
		}
	}
	return false
}
