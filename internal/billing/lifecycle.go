package billing

import (
	"time"

	"pos-service/internal/models"
)

// ItemsMutable reports whether lines may be added, changed or removed.
func ItemsMutable(status string) bool {
	return status == models.OrderStatusOpen || status == models.OrderStatusPending
}

// EnsureItemsMutable fails with ErrInvalidState unless the order is OPEN or PENDING.
func EnsureItemsMutable(op string, order *models.Order) error {
	if !ItemsMutable(order.Status) {
		return InvalidState(op, "order %d is %s, items cannot be modified", order.ID, order.Status)
	}
	return nil
}

// CloseIfSettled recomputes totals and moves an OPEN or PENDING order to
// CLOSED when nothing remains to be paid. REFUNDED is terminal and is never
// reopened into CLOSED. The returned bool reports a transition.
func CloseIfSettled(order *models.Order, now time.Time) (Totals, bool) {
	totals := ComputeTotals(order, now)
	if !totals.Settled() {
		return totals, false
	}
	if order.Status == models.OrderStatusClosed || order.Status == models.OrderStatusRefunded {
		return totals, false
	}
	order.Status = models.OrderStatusClosed
	order.UpdatedAt = now
	return totals, true
}

// MarkRefunded moves the order to REFUNDED from any state. The returned bool
// reports whether the status changed.
func MarkRefunded(order *models.Order, now time.Time) bool {
	if order.Status == models.OrderStatusRefunded {
		return false
	}
	order.Status = models.OrderStatusRefunded
	order.UpdatedAt = now
	return true
}
