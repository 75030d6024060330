// Package moderntreasury adapts the Modern Treasury payment-order API onto
// the uniform rail contract. It is the domestic (US) adapter and the only
// one that carries a rail fallback chain on push.
package moderntreasury

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"crossrail/internal/rails"
	"crossrail/internal/rails/retry"
	"crossrail/pkg/money"
)

const providerName = "modern_treasury"

// API is the narrow slice of Modern Treasury this adapter consumes. The real
// HTTP client implements it; unit tests script it.
type API interface {
	CreatePaymentOrder(ctx context.Context, order PaymentOrder) (*PaymentOrderResult, error)
	GetPaymentOrder(ctx context.Context, id string) (*PaymentOrderResult, error)
}

// PaymentOrder is the provider-facing order shape. Amounts are integer
// cents; conversion from decimals happens before this struct exists.
type PaymentOrder struct {
	Direction      string // "debit" or "credit"
	Rail           rails.Rail
	AmountCents    int64
	Currency       string
	RoutingNumber  string
	AccountNumber  string
	HolderName     string
	IdempotencyKey string
}

// PaymentOrderResult is the provider's acknowledgement.
type PaymentOrderResult struct {
	ID        string
	Status    string // provider-native vocabulary
	SettledAt *time.Time
}

// Adapter implements rails.Adapter for US accounts.
type Adapter struct {
	api      API
	policy   retry.Policy
	fallback []rails.Rail
	logger   *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(a *Adapter) { a.policy = p }
}

// WithFallbackOrder overrides the default push fallback ordering.
func WithFallbackOrder(order []rails.Rail) Option {
	return func(a *Adapter) { a.fallback = order }
}

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// New builds the US rail adapter.
func New(api API, opts ...Option) (*Adapter, error) {
	if api == nil {
		return nil, fmt.Errorf("modern treasury api is required")
	}
	a := &Adapter{
		api:      api,
		policy:   retry.DefaultPolicy(),
		fallback: rails.DefaultFallbackOrder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Adapter) Name() string        { return providerName }
func (a *Adapter) Countries() []string { return []string{"US"} }

// Pull debits a US account over ACH.
func (a *Adapter) Pull(ctx context.Context, req rails.PullRequest) (*rails.TransactionResult, error) {
	acct, err := a.usAccount(req.Account, req.Currency, rails.OpPull)
	if err != nil {
		return nil, err
	}
	cents, err := money.ToMinorUnits(req.Amount, req.Currency)
	if err != nil {
		return nil, rails.NewRailError(rails.ErrorInvalidAccount, providerName, rails.OpPull, err.Error(), err)
	}

	order := PaymentOrder{
		Direction:      "debit",
		Rail:           rails.RailACH,
		AmountCents:    cents,
		Currency:       req.Currency,
		RoutingNumber:  acct.RoutingNumber,
		AccountNumber:  acct.AccountNumber,
		HolderName:     acct.HolderName,
		IdempotencyKey: req.IdempotencyKey,
	}

	result, err := a.submit(ctx, rails.OpPull, order)
	rails.ObserveCall(providerName, rails.OpPull, err)
	if err != nil {
		return nil, err
	}
	return a.toTransactionResult(result, rails.RailACH, req.Amount, req.Currency), nil
}

// Push credits a US account, walking the rail fallback chain. A rail attempt
// that exhausts its retries or reports the rail unavailable advances the
// chain; any other failure is the provider's verdict and surfaces as-is.
func (a *Adapter) Push(ctx context.Context, req rails.PushRequest) (*rails.TransactionResult, error) {
	acct, err := a.usAccount(req.Account, req.Currency, rails.OpPush)
	if err != nil {
		return nil, err
	}
	cents, err := money.ToMinorUnits(req.Amount, req.Currency)
	if err != nil {
		return nil, rails.NewRailError(rails.ErrorInvalidAccount, providerName, rails.OpPush, err.Error(), err)
	}

	chain := rails.FallbackChain(a.fallback, req.PreferredRail)
	var lastErr error
	for i, rail := range chain {
		if i > 0 {
			rails.FallbackAdvances.Inc()
			a.logger.Warn("advancing push fallback chain",
				"provider", providerName,
				"failed_rail", chain[i-1],
				"next_rail", rail,
				"reason", lastErr,
			)
		}

		key := req.IdempotencyKey
		if req.KeyForRail != nil {
			key = req.KeyForRail(rail)
		}
		order := PaymentOrder{
			Direction:      "credit",
			Rail:           rail,
			AmountCents:    cents,
			Currency:       req.Currency,
			RoutingNumber:  acct.RoutingNumber,
			AccountNumber:  acct.AccountNumber,
			HolderName:     acct.HolderName,
			IdempotencyKey: key,
		}

		result, err := a.submit(ctx, rails.OpPush, order)
		if err == nil {
			rails.ObserveCall(providerName, rails.OpPush, nil)
			return a.toTransactionResult(result, rail, req.Amount, req.Currency), nil
		}
		lastErr = err
		if !advancesChain(err) {
			rails.ObserveCall(providerName, rails.OpPush, err)
			return nil, err
		}
		if ctx.Err() != nil {
			break
		}
	}

	rails.ObserveCall(providerName, rails.OpPush, lastErr)
	return nil, fmt.Errorf("all rails in fallback chain failed: %w", lastErr)
}

// TransactionStatus polls a payment order. An order the provider does not
// know yet is pending, not an error.
func (a *Adapter) TransactionStatus(ctx context.Context, providerTxID string) (rails.Status, error) {
	var result *PaymentOrderResult
	err := a.policy.Do(ctx, func(ctx context.Context) error {
		var apiErr error
		result, apiErr = a.api.GetPaymentOrder(ctx, providerTxID)
		return apiErr
	})
	if err != nil {
		if rails.Category(err) == rails.ErrorProviderRejected {
			return rails.StatusPending, nil
		}
		return "", err
	}
	return rails.NormalizeStatus(result.Status), nil
}

// submit runs one payment order through the retry policy.
func (a *Adapter) submit(ctx context.Context, op rails.Operation, order PaymentOrder) (*PaymentOrderResult, error) {
	var result *PaymentOrderResult
	err := a.policy.Do(ctx, func(ctx context.Context) error {
		var apiErr error
		result, apiErr = a.api.CreatePaymentOrder(ctx, order)
		return apiErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// advancesChain reports whether a push failure should try the next rail:
// the attempt never got a definitive answer, or the provider said this rail
// cannot serve the transfer.
func advancesChain(err error) bool {
	return retry.IsExhausted(err) || rails.Category(err) == rails.ErrorRailUnavailable
}

func (a *Adapter) usAccount(account rails.Account, currency string, op rails.Operation) (rails.USBankAccount, error) {
	acct, ok := account.(rails.USBankAccount)
	if !ok {
		return rails.USBankAccount{}, rails.NewRailError(rails.ErrorInvalidAccount, providerName, op,
			fmt.Sprintf("account country %s is not served by the US adapter", account.CountryCode()), nil)
	}
	if !strings.EqualFold(currency, "USD") {
		return rails.USBankAccount{}, rails.NewRailError(rails.ErrorInvalidAccount, providerName, op,
			fmt.Sprintf("currency %s is not supported on US rails", currency), nil)
	}
	return acct, nil
}

func (a *Adapter) toTransactionResult(r *PaymentOrderResult, rail rails.Rail, amount decimal.Decimal, currency string) *rails.TransactionResult {
	return &rails.TransactionResult{
		ProviderTxID: r.ID,
		Provider:     providerName,
		Rail:         rail,
		Status:       rails.NormalizeStatus(r.Status),
		Amount:       amount,
		Currency:     currency,
	}
}
