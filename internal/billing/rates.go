package billing

import (
	"time"

	"pos-service/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// percentOf returns rate% of amount.
func percentOf(rate, amount decimal.Decimal) decimal.Decimal {
	return rate.Div(hundred).Mul(amount)
}

func discountActive(d *models.Discount) bool {
	return d != nil && d.Status == models.RateStatusActive
}

// discountAppliesToItem reports whether an item-level discount matches the
// item's type. ORDER-scoped discounts never apply to a line.
func discountAppliesToItem(d *models.Discount, itemType string) bool {
	if !discountActive(d) {
		return false
	}
	switch d.AppliesTo {
	case models.DiscountAppliesToProduct:
		return itemType == models.ItemTypeProduct
	case models.DiscountAppliesToService:
		return itemType == models.ItemTypeService
	default:
		return false
	}
}

// discountReducesBase is the narrower rule used before tax and service charge:
// only PRODUCT discounts on PRODUCT lines lower the base amount.
func discountReducesBase(d *models.Discount, itemType string) bool {
	return discountActive(d) &&
		d.AppliesTo == models.DiscountAppliesToProduct &&
		itemType == models.ItemTypeProduct
}

func discountIsOrderLevel(d *models.Discount) bool {
	return discountActive(d) && d.AppliesTo == models.DiscountAppliesToOrder
}

// TaxApplicable reports whether a tax is active and inside its effective
// window at now. A window that ends exactly at now still applies.
func TaxApplicable(t *models.Tax, now time.Time) bool {
	if t == nil || t.Status != models.RateStatusActive {
		return false
	}
	if t.EffectiveFrom.After(now) {
		return false
	}
	if t.EffectiveTo != nil && t.EffectiveTo.Before(now) {
		return false
	}
	return true
}
