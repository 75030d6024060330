// Package money holds the minor-unit conversion helpers used at provider
// boundaries. Amounts travel through the system as decimals in major units;
// provider wire formats want integer cents (or the currency's equivalent).
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// exponents maps ISO 4217 currency codes to their minor-unit exponent.
// Currencies not listed default to 2.
var exponents = map[string]int32{
	"USD": 2,
	"CAD": 2,
	"MXN": 2,
	"NGN": 2,
	"USDC": 6,
}

// Exponent returns the minor-unit exponent for a currency code.
func Exponent(currency string) int32 {
	if exp, ok := exponents[strings.ToUpper(currency)]; ok {
		return exp
	}
	return 2
}

// ToMinorUnits converts a major-unit decimal amount into integer minor units.
// Fails if the amount has more precision than the currency supports, so a
// sub-cent amount can never be silently truncated on the wire.
func ToMinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	exp := Exponent(currency)
	scaled := amount.Shift(exp)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more precision than %s allows", amount, strings.ToUpper(currency))
	}
	return scaled.IntPart(), nil
}

// FromMinorUnits converts integer minor units back into a major-unit decimal.
func FromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-Exponent(currency))
}
