package domain

import "github.com/shopspring/decimal"

// MonetaryPlaces is the number of decimal places money is kept at.
const MonetaryPlaces = 2

// MaxTransferAmount is the largest amount a single transfer may move.
var MaxTransferAmount = decimal.RequireFromString("999999999999.99")

// Commission returns the fee for amount at rate, rounded half away from zero
// to two places, and the total the sender is charged.
func Commission(amount, rate decimal.Decimal) (fee, total decimal.Decimal) {
	fee = amount.Mul(rate).Round(MonetaryPlaces)
	return fee, amount.Add(fee)
}

// ValidAmount reports whether amount is positive, carries at most two decimal
// places and does not exceed MaxTransferAmount.
func ValidAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}
	if !amount.Equal(amount.Truncate(MonetaryPlaces)) {
		return false
	}
	return amount.LessThanOrEqual(MaxTransferAmount)
}
