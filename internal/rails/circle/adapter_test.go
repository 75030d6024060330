package circle

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossrail/internal/rails"
	"crossrail/internal/rails/retry"
)

type fakeAPI struct {
	mints       []Mint
	redemptions []Redemption

	mintResults []func() (*Conversion, error)
	redeemErr   error
	statuses    map[string]string
}

func (f *fakeAPI) CreateMint(_ context.Context, m Mint) (*Conversion, error) {
	f.mints = append(f.mints, m)
	if len(f.mintResults) > 0 {
		fn := f.mintResults[0]
		f.mintResults = f.mintResults[1:]
		return fn()
	}
	return &Conversion{ID: "mint_1", Status: "complete"}, nil
}

func (f *fakeAPI) CreateRedemption(_ context.Context, r Redemption) (*Conversion, error) {
	f.redemptions = append(f.redemptions, r)
	if f.redeemErr != nil {
		return nil, f.redeemErr
	}
	return &Conversion{ID: "redemption_1", Status: "complete"}, nil
}

func (f *fakeAPI) GetConversion(_ context.Context, id string) (*Conversion, error) {
	if status, ok := f.statuses[id]; ok {
		return &Conversion{ID: id, Status: status}, nil
	}
	return nil, rails.ClassifyHTTPStatus(providerName, rails.OpStatus, 404, "not found")
}

func newTestAdapter(t *testing.T, api *fakeAPI) *Adapter {
	t.Helper()
	a, err := New(api, WithRetryPolicy(retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}))
	require.NoError(t, err)
	return a
}

func TestMint_NormalizesProviderVocabulary(t *testing.T) {
	api := &fakeAPI{}
	a := newTestAdapter(t, api)

	result, err := a.Mint(context.Background(), rails.MintRequest{
		Amount:         decimal.RequireFromString("100.00"),
		Currency:       "USD",
		Chain:          "ETH",
		IdempotencyKey: "key-mint",
	})
	require.NoError(t, err)
	assert.Equal(t, rails.StatusCompleted, result.Status, `provider "complete" becomes "completed"`)
	assert.Equal(t, "ETH", result.Chain)

	require.Len(t, api.mints, 1)
	assert.Equal(t, "100.00", api.mints[0].Amount)
	assert.Equal(t, "key-mint", api.mints[0].IdempotencyKey)
}

func TestMint_ServerErrorRetriesUnderSameKey(t *testing.T) {
	internal := func() (*Conversion, error) {
		return nil, rails.ClassifyHTTPStatus(providerName, rails.OpMint, 500, "internal")
	}
	api := &fakeAPI{
		mintResults: []func() (*Conversion, error){
			internal,
			internal,
			func() (*Conversion, error) { return &Conversion{ID: "mint_1", Status: "complete"}, nil },
		},
	}
	a := newTestAdapter(t, api)

	result, err := a.Mint(context.Background(), rails.MintRequest{
		Amount:         decimal.RequireFromString("50"),
		Currency:       "USD",
		Chain:          "ETH",
		IdempotencyKey: "key-mint",
	})
	require.NoError(t, err)
	assert.Equal(t, rails.StatusCompleted, result.Status)

	require.Len(t, api.mints, 3, "5xx on mint is retried")
	for _, m := range api.mints {
		assert.Equal(t, "key-mint", m.IdempotencyKey, "retries reuse the mint key")
	}
}

func TestMint_RejectsNonPositiveAmount(t *testing.T) {
	api := &fakeAPI{}
	a := newTestAdapter(t, api)

	_, err := a.Mint(context.Background(), rails.MintRequest{
		Amount:   decimal.Zero,
		Currency: "USD",
		Chain:    "ETH",
	})
	require.Error(t, err)
	assert.Empty(t, api.mints)
}

func TestRedeem_RequiresDestination(t *testing.T) {
	api := &fakeAPI{}
	a := newTestAdapter(t, api)

	_, err := a.Redeem(context.Background(), rails.RedeemRequest{
		Amount:   decimal.RequireFromString("100"),
		Currency: "CAD",
	})
	require.Error(t, err)
	assert.Empty(t, api.redemptions)
}

func TestRedeem_RateLimitRetriesThenExhausts(t *testing.T) {
	api := &fakeAPI{
		redeemErr: rails.ClassifyHTTPStatus(providerName, rails.OpRedeem, 429, "slow down"),
	}
	a := newTestAdapter(t, api)

	_, err := a.Redeem(context.Background(), rails.RedeemRequest{
		Amount:               decimal.RequireFromString("100"),
		Currency:             "CAD",
		DestinationAccountID: "acct_ca",
		IdempotencyKey:       "key-redeem",
	})
	require.Error(t, err)
	assert.True(t, retry.IsExhausted(err))
	assert.Len(t, api.redemptions, 3)
}

func TestTransactionStatus(t *testing.T) {
	api := &fakeAPI{statuses: map[string]string{"mint_1": "pending"}}
	a := newTestAdapter(t, api)

	status, err := a.TransactionStatus(context.Background(), "mint_1")
	require.NoError(t, err)
	assert.Equal(t, rails.StatusPending, status)

	status, err = a.TransactionStatus(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, rails.StatusPending, status, "not-yet-visible conversion is pending")
}
