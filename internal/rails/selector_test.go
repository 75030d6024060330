package rails

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	name      string
	countries []string
}

func (a *stubAdapter) Name() string        { return a.name }
func (a *stubAdapter) Countries() []string { return a.countries }
func (a *stubAdapter) Pull(context.Context, PullRequest) (*TransactionResult, error) {
	return nil, nil
}
func (a *stubAdapter) Push(context.Context, PushRequest) (*TransactionResult, error) {
	return nil, nil
}
func (a *stubAdapter) TransactionStatus(context.Context, string) (Status, error) {
	return StatusPending, nil
}

func newTestSelector(t *testing.T) *Selector {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubAdapter{name: "domestic", countries: []string{"US"}}))
	require.NoError(t, reg.Register(&stubAdapter{name: "international", countries: []string{"CA", "MX", "NG"}}))
	return NewSelector(reg, SelectorConfig{})
}

func TestSelector_AdapterFor(t *testing.T) {
	s := newTestSelector(t)

	t.Run("country mapping is total for the supported set", func(t *testing.T) {
		for country, want := range map[string]string{
			"US": "domestic",
			"CA": "international",
			"MX": "international",
			"NG": "international",
		} {
			a, err := s.AdapterFor(country)
			require.NoError(t, err)
			assert.Equal(t, want, a.Name())
		}
	})

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		a, err := s.AdapterFor("us")
		require.NoError(t, err)
		assert.Equal(t, "domestic", a.Name())
	})

	t.Run("unsupported country never defaults", func(t *testing.T) {
		_, err := s.AdapterFor("BR")
		assert.ErrorIs(t, err, ErrUnsupportedCountry)
	})
}

func TestSelector_ChooseRail_SmartThresholds(t *testing.T) {
	s := newTestSelector(t)

	cases := []struct {
		amount string
		want   Rail
	}{
		{"100.00", RailRTP},
		{"100.01", RailACH},
		{"25000.00", RailACH},
		{"25000.01", RailWire},
	}
	for _, tc := range cases {
		got := s.ChooseRail(decimal.RequireFromString(tc.amount), RailFedNow, true)
		assert.Equal(t, tc.want, got, "amount %s", tc.amount)
	}
}

func TestSelector_ChooseRail_PreferenceWithoutSmartRails(t *testing.T) {
	s := newTestSelector(t)

	got := s.ChooseRail(decimal.RequireFromString("50000"), RailFedNow, false)
	assert.Equal(t, RailFedNow, got)

	got = s.ChooseRail(decimal.RequireFromString("50000"), "", false)
	assert.Equal(t, RailRTP, got, "defaults to head of fallback order")
}

func TestFallbackChain(t *testing.T) {
	t.Run("preferred rail moves to front", func(t *testing.T) {
		chain := FallbackChain(DefaultFallbackOrder, RailWire)
		assert.Equal(t, []Rail{RailWire, RailRTP, RailACH, RailFedNow}, chain)
	})

	t.Run("empty preference keeps configured order", func(t *testing.T) {
		chain := FallbackChain(DefaultFallbackOrder, "")
		assert.Equal(t, DefaultFallbackOrder, chain)
	})

	t.Run("preferred already at front is not duplicated", func(t *testing.T) {
		chain := FallbackChain(DefaultFallbackOrder, RailRTP)
		assert.Equal(t, DefaultFallbackOrder, chain)
	})
}

func TestSelector_AccountFor(t *testing.T) {
	s := newTestSelector(t)

	t.Run("us details build a us account", func(t *testing.T) {
		acct, err := s.AccountFor("US", AccountDetails{
			RoutingNumber: "021000021",
			AccountNumber: "123456789",
			HolderName:    "Ada Lovelace",
		})
		require.NoError(t, err)
		_, ok := acct.(USBankAccount)
		assert.True(t, ok)
	})

	t.Run("mx details build an international account", func(t *testing.T) {
		acct, err := s.AccountFor("mx", AccountDetails{
			AccountNumber: "032180000118359719",
			HolderName:    "Frida Kahlo",
		})
		require.NoError(t, err)
		assert.Equal(t, "MX", acct.CountryCode())
	})

	t.Run("validation failures propagate", func(t *testing.T) {
		_, err := s.AccountFor("US", AccountDetails{
			RoutingNumber: "123456789",
			AccountNumber: "123456789",
			HolderName:    "Ada Lovelace",
		})
		assert.Error(t, err)
	})
}

func TestRegistry_Register_RejectsDuplicateCountry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubAdapter{name: "a", countries: []string{"US"}}))
	err := reg.Register(&stubAdapter{name: "b", countries: []string{"us"}})
	assert.Error(t, err)
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, StatusCompleted, NormalizeStatus("Complete"))
	assert.Equal(t, StatusCompleted, NormalizeStatus("success"))
	assert.Equal(t, StatusPending, NormalizeStatus("processing"))
	assert.Equal(t, StatusPending, NormalizeStatus("pending"))
	assert.Equal(t, StatusFailed, NormalizeStatus("denied"))
	assert.Equal(t, StatusFailed, NormalizeStatus(""))
}

func TestRailErrorRetryability(t *testing.T) {
	t.Run("transient categories are retryable", func(t *testing.T) {
		for _, cat := range []ErrorCategory{ErrorTimeout, ErrorRateLimited, ErrorProviderOutage} {
			err := NewRailError(cat, "test", OpPush, "boom", nil)
			assert.True(t, IsRetryable(err), string(cat))
		}
	})

	t.Run("client rejection is fatal", func(t *testing.T) {
		err := NewRailError(ErrorProviderRejected, "test", OpPull, "bad request", nil)
		assert.False(t, IsRetryable(err))
	})

	t.Run("internal 5xx is retryable only on mint", func(t *testing.T) {
		assert.True(t, IsRetryable(NewRailError(ErrorInternal, "test", OpMint, "boom", nil)))
		assert.False(t, IsRetryable(NewRailError(ErrorInternal, "test", OpPush, "boom", nil)))
		assert.False(t, IsRetryable(NewRailError(ErrorInternal, "test", OpPull, "boom", nil)))
	})

	t.Run("plain errors are not retryable", func(t *testing.T) {
		assert.False(t, IsRetryable(assert.AnError))
	})
}
