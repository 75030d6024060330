// Package circle adapts the Circle mint/redemption API onto the bridge
// contract. Minting converts fiat-equivalent value into the stablecoin
// bridge asset; redeeming converts it back to fiat at a destination-side
// custodial account.
package circle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"crossrail/internal/rails"
	"crossrail/internal/rails/retry"
)

const providerName = "circle"

// API is the slice of Circle this adapter consumes.
type API interface {
	CreateMint(ctx context.Context, mint Mint) (*Conversion, error)
	CreateRedemption(ctx context.Context, redemption Redemption) (*Conversion, error)
	GetConversion(ctx context.Context, id string) (*Conversion, error)
}

// Mint converts fiat into the bridge asset on a chain. Amounts stay decimal
// strings on Circle's wire, so no minor-unit conversion happens here.
type Mint struct {
	Amount         string
	Currency       string
	Chain          string
	IdempotencyKey string
}

// Redemption converts bridge-asset value back to fiat.
type Redemption struct {
	Amount               string
	Currency             string
	DestinationAccountID string
	IdempotencyKey       string
}

// Conversion is Circle's acknowledgement of a mint or redemption.
type Conversion struct {
	ID     string
	Status string // provider-native: "complete", "pending", "failed", ...
}

// Adapter implements rails.BridgeAdapter.
type Adapter struct {
	api    API
	policy retry.Policy
	logger *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

func WithRetryPolicy(p retry.Policy) Option {
	return func(a *Adapter) { a.policy = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// New builds the stablecoin bridge adapter.
func New(api API, opts ...Option) (*Adapter, error) {
	if api == nil {
		return nil, fmt.Errorf("circle api is required")
	}
	a := &Adapter{api: api, policy: retry.DefaultPolicy(), logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Adapter) Name() string { return providerName }

// Mint converts fiat value to the bridge asset. 5xx responses here stay
// retryable under the same idempotency key; Circle dedupes the mint.
func (a *Adapter) Mint(ctx context.Context, req rails.MintRequest) (*rails.BridgeResult, error) {
	if !req.Amount.IsPositive() {
		return nil, rails.NewRailError(rails.ErrorProviderRejected, providerName, rails.OpMint,
			fmt.Sprintf("mint amount must be positive, got %s", req.Amount), nil)
	}

	var conv *Conversion
	err := a.policy.Do(ctx, func(ctx context.Context) error {
		var apiErr error
		conv, apiErr = a.api.CreateMint(ctx, Mint{
			Amount:         req.Amount.StringFixed(2),
			Currency:       req.Currency,
			Chain:          req.Chain,
			IdempotencyKey: req.IdempotencyKey,
		})
		return apiErr
	})
	rails.ObserveCall(providerName, rails.OpMint, err)
	if err != nil {
		return nil, err
	}
	return a.toResult(conv, req.Amount, req.Currency, req.Chain), nil
}

// Redeem converts bridge-asset value back to fiat at the destination
// custodial account.
func (a *Adapter) Redeem(ctx context.Context, req rails.RedeemRequest) (*rails.BridgeResult, error) {
	if req.DestinationAccountID == "" {
		return nil, rails.NewRailError(rails.ErrorProviderRejected, providerName, rails.OpRedeem,
			"destination account id is required", nil)
	}

	var conv *Conversion
	err := a.policy.Do(ctx, func(ctx context.Context) error {
		var apiErr error
		conv, apiErr = a.api.CreateRedemption(ctx, Redemption{
			Amount:               req.Amount.StringFixed(2),
			Currency:             req.Currency,
			DestinationAccountID: req.DestinationAccountID,
			IdempotencyKey:       req.IdempotencyKey,
		})
		return apiErr
	})
	rails.ObserveCall(providerName, rails.OpRedeem, err)
	if err != nil {
		return nil, err
	}
	return a.toResult(conv, req.Amount, req.Currency, ""), nil
}

// TransactionStatus polls a conversion; unknown conversions are pending.
func (a *Adapter) TransactionStatus(ctx context.Context, providerTxID string) (rails.Status, error) {
	var conv *Conversion
	err := a.policy.Do(ctx, func(ctx context.Context) error {
		var apiErr error
		conv, apiErr = a.api.GetConversion(ctx, providerTxID)
		return apiErr
	})
	if err != nil {
		if rails.Category(err) == rails.ErrorProviderRejected {
			return rails.StatusPending, nil
		}
		return "", err
	}
	return rails.NormalizeStatus(conv.Status), nil
}

func (a *Adapter) toResult(conv *Conversion, amount decimal.Decimal, currency, chain string) *rails.BridgeResult {
	return &rails.BridgeResult{
		ProviderTxID: conv.ID,
		Status:       rails.NormalizeStatus(conv.Status),
		Amount:       amount,
		Currency:     currency,
		Chain:        chain,
	}
}
