package billing

import "github.com/shopspring/decimal"

// MoneyPlaces is the scale of every stored money column.
const MoneyPlaces = 2

// ValidateScale fails with ErrValidation when amount carries more than
// MoneyPlaces decimal places.
func ValidateScale(op, what string, amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(MoneyPlaces)) {
		return Validation(op, "%s %s has more than %d decimal places", what, amount, MoneyPlaces)
	}
	return nil
}

// ValidateAmount fails with ErrValidation unless amount is positive and fits
// the money scale.
func ValidateAmount(op, what string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return Validation(op, "%s must be greater than zero, got %s", what, amount)
	}
	return ValidateScale(op, what, amount)
}
