package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	cents, err := ToMinorUnits(decimal.RequireFromString("100.00"), "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), cents)

	cents, err = ToMinorUnits(decimal.RequireFromString("0.01"), "usd")
	require.NoError(t, err)
	assert.Equal(t, int64(1), cents)
}

func TestToMinorUnits_RejectsSubCent(t *testing.T) {
	_, err := ToMinorUnits(decimal.RequireFromString("1.001"), "USD")
	assert.Error(t, err)
}

func TestFromMinorUnits_RoundTrip(t *testing.T) {
	amount := decimal.RequireFromString("25000.01")
	cents, err := ToMinorUnits(amount, "MXN")
	require.NoError(t, err)
	assert.True(t, amount.Equal(FromMinorUnits(cents, "MXN")))
}

func TestExponent_Defaults(t *testing.T) {
	assert.Equal(t, int32(2), Exponent("GBP"))
	assert.Equal(t, int32(6), Exponent("USDC"))
}
