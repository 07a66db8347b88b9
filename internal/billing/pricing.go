package billing

import (
	"time"

	"pos-service/internal/models"

	"github.com/shopspring/decimal"
)

// Totals is the computed money view of one order snapshot. None of these
// fields are stored; they are recomputed from the snapshot after every change.
type Totals struct {
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountTotal      decimal.Decimal `json:"discount_total"`
	TaxTotal           decimal.Decimal `json:"tax_total"`
	ServiceChargeTotal decimal.Decimal `json:"service_charge_total"`
	Total              decimal.Decimal `json:"total"`
	AmountPaid         decimal.Decimal `json:"amount_paid"`
	Remaining          decimal.Decimal `json:"remaining"`
	ChangeDue          decimal.Decimal `json:"change_due"`
}

// Settled reports whether nothing is left to pay.
func (t Totals) Settled() bool {
	return !t.Remaining.IsPositive()
}

// lineAmount is quantity × unit price for a line with a resolved item.
func lineAmount(line *models.OrderItem) decimal.Decimal {
	if line.Item == nil {
		return decimal.Zero
	}
	return line.Item.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
}

func lineType(line *models.OrderItem) string {
	if line.Item == nil {
		return ""
	}
	return line.Item.Type
}

// lineDiscount is the discount a line contributes to DiscountTotal.
func lineDiscount(line *models.OrderItem) decimal.Decimal {
	if !discountAppliesToItem(line.Discount, lineType(line)) {
		return decimal.Zero
	}
	return percentOf(line.Discount.Rate, lineAmount(line))
}

// lineBase is the amount tax and service charge are computed on. Only a
// PRODUCT discount on a PRODUCT line is subtracted here, so a SERVICE line
// discount lowers DiscountTotal but not the tax or charge base.
func lineBase(line *models.OrderItem) decimal.Decimal {
	amount := lineAmount(line)
	if discountReducesBase(line.Discount, lineType(line)) {
		amount = amount.Sub(percentOf(line.Discount.Rate, amount))
	}
	return amount
}

// ComputeTotals prices an order snapshot. It is pure: the only input beside
// the snapshot is now, used for tax effective windows.
func ComputeTotals(order *models.Order, now time.Time) Totals {
	var t Totals
	if order == nil {
		return t
	}

	itemDiscounts := decimal.Zero
	for i := range order.Items {
		line := &order.Items[i]
		t.Subtotal = t.Subtotal.Add(lineAmount(line))
		itemDiscounts = itemDiscounts.Add(lineDiscount(line))
	}

	orderDiscount := decimal.Zero
	if discountIsOrderLevel(order.Discount) {
		orderDiscount = percentOf(order.Discount.Rate, t.Subtotal)
	}
	t.DiscountTotal = itemDiscounts.Add(orderDiscount)

	for i := range order.Items {
		line := &order.Items[i]
		if !TaxApplicable(line.Tax, now) {
			continue
		}
		t.TaxTotal = t.TaxTotal.Add(percentOf(line.Tax.Rate, lineBase(line)))
	}

	for i := range order.Items {
		line := &order.Items[i]
		if line.ServiceCharge == nil {
			continue
		}
		t.ServiceChargeTotal = t.ServiceChargeTotal.Add(percentOf(line.ServiceCharge.Rate, lineBase(line)))
	}

	tip := decimal.Zero
	if order.Tip != nil {
		tip = *order.Tip
	}

	t.Total = t.Subtotal.
		Sub(t.DiscountTotal).
		Add(t.TaxTotal).
		Add(t.ServiceChargeTotal).
		Add(tip)
	t.Total = decimal.Max(decimal.Zero, t.Total)

	t.AmountPaid = AmountPaid(order.Payments)
	t.Remaining = decimal.Max(decimal.Zero, t.Total.Sub(t.AmountPaid))
	t.ChangeDue = decimal.Max(decimal.Zero, t.AmountPaid.Sub(t.Total))

	return t
}

// AmountPaid sums the COMPLETED payments.
func AmountPaid(payments []models.Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		if p.Status == models.PaymentStatusCompleted {
			sum = sum.Add(p.Amount)
		}
	}
	return sum
}
