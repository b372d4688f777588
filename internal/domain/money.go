package domain

import "github.com/shopspring/decimal"

// AmountOrZero returns the stored amount, or zero when the column was NULL
func AmountOrZero(amount *decimal.Decimal) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return *amount
}

// FormatAmount renders a monetary amount with two fractional digits
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
