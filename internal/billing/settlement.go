package billing

import (
	"time"

	"pos-service/internal/models"

	"github.com/shopspring/decimal"
)

// PaymentPatch lists the payment fields an update may change. Nil fields are
// left untouched.
type PaymentPatch struct {
	Amount   *decimal.Decimal
	PaidAt   *time.Time
	Method   *string
	Provider *string
	Currency *string
	Status   *string
}

func validPaymentStatus(status string) bool {
	switch status {
	case models.PaymentStatusPending,
		models.PaymentStatusCompleted,
		models.PaymentStatusFailed,
		models.PaymentStatusRefunded:
		return true
	}
	return false
}

func validatePayment(op string, p *models.Payment) error {
	if err := ValidateAmount(op, "payment amount", p.Amount); err != nil {
		return err
	}
	if !validPaymentStatus(p.Status) {
		return Validation(op, "unknown payment status %q", p.Status)
	}
	return nil
}

// RedeemGiftCard debits amount from the card. The card must be VALID, not past
// its expiry at now, and hold at least amount; a balance of exactly zero
// afterwards marks it REDEEMED. The card is left untouched on error. The
// returned bool reports REDEEMED.
func RedeemGiftCard(op string, card *models.GiftCard, amount decimal.Decimal, now time.Time) (bool, error) {
	if card.Status != models.GiftCardStatusValid {
		return false, InvalidState(op, "gift card %d is %s", card.ID, card.Status)
	}
	if card.ExpiresAt != nil && !now.Before(*card.ExpiresAt) {
		return false, InvalidState(op, "gift card %d expired at %s", card.ID, card.ExpiresAt.Format(time.RFC3339))
	}
	if card.CurrentBalance.LessThan(amount) {
		return false, InsufficientFunds(op, "gift card %d balance %s is below %s",
			card.ID, card.CurrentBalance, amount)
	}

	card.CurrentBalance = card.CurrentBalance.Sub(amount)
	if card.CurrentBalance.IsZero() {
		card.Status = models.GiftCardStatusRedeemed
		return true, nil
	}
	return false, nil
}

// SettleNewPayment prepares a payment for creation against order. An empty
// status defaults to PENDING. card must be the resolved gift card when
// payment.GiftCardID is set; it is debited only when the payment is created
// COMPLETED.
func SettleNewPayment(order *models.Order, payment *models.Payment, card *models.GiftCard, now time.Time) (redeemed bool, err error) {
	const op = "billing.SettleNewPayment"

	if order == nil {
		return false, NotFound(op, "order %d", payment.OrderID)
	}
	if payment.GiftCardID != nil && card == nil {
		return false, NotFound(op, "gift card %d", *payment.GiftCardID)
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	if err := validatePayment(op, payment); err != nil {
		return false, err
	}

	payment.OrderID = order.ID
	if payment.Status == models.PaymentStatusCompleted && card != nil {
		return RedeemGiftCard(op, card, payment.Amount, now)
	}
	return false, nil
}

// ApplyPaymentPatch updates payment in place. completedNow is decided before
// the patch is applied: the payment was not COMPLETED and the patch sets it.
// On completion the attached card is debited with the patched amount. Nothing
// is changed when an error is returned.
func ApplyPaymentPatch(payment *models.Payment, patch PaymentPatch, card *models.GiftCard, now time.Time) (completedNow, redeemed bool, err error) {
	const op = "billing.ApplyPaymentPatch"

	completedNow = patch.Status != nil &&
		*patch.Status == models.PaymentStatusCompleted &&
		payment.Status != models.PaymentStatusCompleted

	next := *payment
	if patch.Amount != nil {
		next.Amount = *patch.Amount
	}
	if patch.PaidAt != nil {
		next.PaidAt = *patch.PaidAt
	}
	if patch.Method != nil {
		next.Method = *patch.Method
	}
	if patch.Provider != nil {
		next.Provider = *patch.Provider
	}
	if patch.Currency != nil {
		next.Currency = *patch.Currency
	}
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if err := validatePayment(op, &next); err != nil {
		return false, false, err
	}

	if completedNow && next.GiftCardID != nil {
		if card == nil {
			return false, false, NotFound(op, "gift card %d", *next.GiftCardID)
		}
		redeemed, err = RedeemGiftCard(op, card, next.Amount, now)
		if err != nil {
			return false, false, err
		}
	}

	*payment = next
	return completedNow, redeemed, nil
}

// ReplacePayment swaps the order's copy of a payment for p, appending it when
// the order does not hold it yet, so totals see the latest state.
func ReplacePayment(order *models.Order, p models.Payment) {
	for i := range order.Payments {
		if order.Payments[i].ID == p.ID {
			order.Payments[i] = p
			return
		}
	}
	order.Payments = append(order.Payments, p)
}
