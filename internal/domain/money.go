package domain

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Hundred is used for percentage conversions.
var Hundred = decimal.NewFromInt(100)

// FormatAmount renders amount in the currency's display format, e.g.
// "100,500.00 MAD". Unknown currencies fall back to the plain decimal
// followed by the code.
func FormatAmount(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), currency).Display()
}

// Percent returns part / whole * 100, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(Hundred)
}

// RoundMoney rounds to two decimal places for presentation. Stored values
// keep full precision.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
