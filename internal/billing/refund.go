package billing

import (
	"time"

	"pos-service/internal/models"

	"github.com/shopspring/decimal"
)

// RefundPatch lists the refund fields an update may change.
type RefundPatch struct {
	Amount       *decimal.Decimal
	Reason       *string
	RefundMethod *string
	Currency     *string
	Status       *string
	RefundedAt   *time.Time
}

func validRefundStatus(status string) bool {
	switch status {
	case models.RefundStatusPending, models.RefundStatusCompleted, models.RefundStatusFailed:
		return true
	}
	return false
}

// RefundedAmount sums the COMPLETED refunds, skipping the refund with id
// exclude (0 excludes nothing).
func RefundedAmount(refunds []models.Refund, exclude int64) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range refunds {
		if exclude != 0 && r.ID == exclude {
			continue
		}
		if r.Status == models.RefundStatusCompleted {
			sum = sum.Add(r.Amount)
		}
	}
	return sum
}

// MaxRefundable is what is still refundable for an order:
// max(0, completed payments − completed refunds).
func MaxRefundable(payments []models.Payment, refunds []models.Refund) decimal.Decimal {
	return maxRefundable(payments, refunds, 0)
}

func maxRefundable(payments []models.Payment, refunds []models.Refund, exclude int64) decimal.Decimal {
	return decimal.Max(decimal.Zero, AmountPaid(payments).Sub(RefundedAmount(refunds, exclude)))
}

func validateRefund(op string, r *models.Refund) error {
	if err := ValidateAmount(op, "refund amount", r.Amount); err != nil {
		return err
	}
	if !validRefundStatus(r.Status) {
		return Validation(op, "unknown refund status %q", r.Status)
	}
	return nil
}

// AcceptRefund checks a new refund against the order's refundable cap and
// stamps it. A COMPLETED refund moves the order to REFUNDED whatever its
// current status. The returned bool reports that status change.
func AcceptRefund(order *models.Order, prior []models.Refund, refund *models.Refund, now time.Time) (bool, error) {
	const op = "billing.AcceptRefund"

	if order == nil {
		return false, NotFound(op, "order %d", refund.OrderID)
	}
	if refund.Status == "" {
		refund.Status = models.RefundStatusPending
	}
	if err := validateRefund(op, refund); err != nil {
		return false, err
	}

	limit := MaxRefundable(order.Payments, prior)
	if refund.Amount.GreaterThan(limit) {
		return false, Validation(op, "refund amount %s exceeds refundable amount %s", refund.Amount, limit)
	}

	refund.OrderID = order.ID
	refund.RefundedAt = now

	if refund.Status == models.RefundStatusCompleted {
		return MarkRefunded(order, now), nil
	}
	return false, nil
}

// ApplyRefundPatch updates refund in place. A changed amount, or a refund
// turning COMPLETED, must fit the cap computed without this refund. When the
// resulting status is COMPLETED the order moves to REFUNDED. Nothing is
// changed when an error is returned.
func ApplyRefundPatch(order *models.Order, refunds []models.Refund, refund *models.Refund, patch RefundPatch, now time.Time) (bool, error) {
	const op = "billing.ApplyRefundPatch"

	next := *refund
	if patch.Amount != nil {
		next.Amount = *patch.Amount
	}
	if patch.Reason != nil {
		next.Reason = *patch.Reason
	}
	if patch.RefundMethod != nil {
		next.RefundMethod = *patch.RefundMethod
	}
	if patch.Currency != nil {
		next.Currency = *patch.Currency
	}
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if patch.RefundedAt != nil {
		next.RefundedAt = *patch.RefundedAt
	}
	if err := validateRefund(op, &next); err != nil {
		return false, err
	}

	amountChanged := patch.Amount != nil && !patch.Amount.Equal(refund.Amount)
	completing := next.Status == models.RefundStatusCompleted && refund.Status != models.RefundStatusCompleted
	if amountChanged || completing {
		limit := maxRefundable(order.Payments, refunds, refund.ID)
		if next.Amount.GreaterThan(limit) {
			return false, Validation(op, "refund amount %s exceeds refundable amount %s", next.Amount, limit)
		}
	}

	*refund = next
	if refund.Status == models.RefundStatusCompleted {
		return MarkRefunded(order, now), nil
	}
	return false, nil
}
