package rails

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUSBankAccount(t *testing.T) {
	t.Run("valid ABA checksum accepted", func(t *testing.T) {
		acct, err := NewUSBankAccount("021000021", "123456789", "Ada Lovelace")
		require.NoError(t, err)
		assert.Equal(t, "US", acct.CountryCode())
		assert.Equal(t, "Ada Lovelace", acct.Holder())
	})

	t.Run("checksum failure rejected", func(t *testing.T) {
		_, err := NewUSBankAccount("123456789", "123456789", "Ada Lovelace")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "checksum")
	})

	t.Run("non-numeric routing rejected", func(t *testing.T) {
		_, err := NewUSBankAccount("02100002a", "123456789", "Ada Lovelace")
		assert.Error(t, err)
	})

	t.Run("routing length enforced", func(t *testing.T) {
		_, err := NewUSBankAccount("0210000211", "123456789", "Ada Lovelace")
		assert.Error(t, err)
	})

	t.Run("holder name required", func(t *testing.T) {
		_, err := NewUSBankAccount("021000021", "123456789", "  ")
		assert.Error(t, err)
	})
}

func TestNewInternationalBankAccount(t *testing.T) {
	t.Run("mexican CLABE must be 18 digits", func(t *testing.T) {
		_, err := NewInternationalBankAccount("MX", "032180000118359719", "", "Frida Kahlo")
		assert.NoError(t, err)

		_, err = NewInternationalBankAccount("MX", "03218000011835971", "", "Frida Kahlo")
		assert.Error(t, err, "17 digits must fail")

		_, err = NewInternationalBankAccount("MX", "0321800001183597199", "", "Frida Kahlo")
		assert.Error(t, err, "19 digits must fail")
	})

	t.Run("nigerian NUBAN must be 10 digits", func(t *testing.T) {
		_, err := NewInternationalBankAccount("ng", "0123456789", "", "Chinua Achebe")
		assert.NoError(t, err)

		_, err = NewInternationalBankAccount("NG", "012345678", "", "Chinua Achebe")
		assert.Error(t, err)
	})

	t.Run("canadian account needs routing", func(t *testing.T) {
		_, err := NewInternationalBankAccount("CA", "1234567", "000312345", "Margaret Atwood")
		assert.NoError(t, err)

		_, err = NewInternationalBankAccount("CA", "1234567", "12345", "Margaret Atwood")
		assert.Error(t, err)
	})

	t.Run("country code normalized onto the variant", func(t *testing.T) {
		acct, err := NewInternationalBankAccount(" mx ", "032180000118359719", "", "Frida Kahlo")
		require.NoError(t, err)
		assert.Equal(t, "MX", acct.CountryCode())
	})

	t.Run("unsupported country rejected", func(t *testing.T) {
		_, err := NewInternationalBankAccount("FR", "123456789", "", "Victor Hugo")
		assert.ErrorIs(t, err, ErrUnsupportedCountry)
	})
}
