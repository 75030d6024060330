// Package rapyd adapts the Rapyd collect/payout API onto the uniform rail
// contract for the non-US corridors (CA, MX, NG).
package rapyd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"crossrail/internal/rails"
	"crossrail/internal/rails/retry"
	"crossrail/pkg/money"
)

const providerName = "rapyd"

// API is the slice of Rapyd this adapter consumes.
type API interface {
	// CreatePayment collects funds from a local bank account (a pull).
	CreatePayment(ctx context.Context, payment Payment) (*TransactionEnvelope, error)

	// CreatePayout disburses funds to a local bank account (a push).
	CreatePayout(ctx context.Context, payout Payout) (*TransactionEnvelope, error)

	// GetTransaction fetches a prior payment or payout.
	GetTransaction(ctx context.Context, id string) (*TransactionEnvelope, error)
}

// Payment is a local bank collection request. Amounts are integer minor
// units.
type Payment struct {
	AmountMinor    int64
	Currency       string
	Country        string
	AccountNumber  string
	BankCode       string
	HolderName     string
	IdempotencyKey string
}

// Payout is a local bank disbursement request.
type Payout struct {
	AmountMinor    int64
	Currency       string
	Country        string
	AccountNumber  string
	BankCode       string
	HolderName     string
	IdempotencyKey string
}

// TransactionEnvelope is Rapyd's acknowledgement, status in its native
// vocabulary.
type TransactionEnvelope struct {
	ID     string
	Status string
}

// Adapter implements rails.Adapter for the international corridors.
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

// New builds the international rail adapter.
func New(api API, opts ...Option) (*Adapter, error) {
	if api == nil {
		return nil, fmt.Errorf("rapyd api is required")
	}
	a := &Adapter{api: api, policy: retry.DefaultPolicy(), logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Adapter) Name() string        { return providerName }
func (a *Adapter) Countries() []string { return []string{"CA", "MX", "NG"} }

// Pull collects funds from a local account.
func (a *Adapter) Pull(ctx context.Context, req rails.PullRequest) (*rails.TransactionResult, error) {
	acct, minor, err := a.prepare(req.Account, req.Amount, req.Currency, rails.OpPull)
	if err != nil {
		return nil, err
	}

	var envelope *TransactionEnvelope
	err = a.policy.Do(ctx, func(ctx context.Context) error {
		var apiErr error
		envelope, apiErr = a.api.CreatePayment(ctx, Payment{
			AmountMinor:    minor,
			Currency:       strings.ToUpper(req.Currency),
			Country:        acct.Country,
			AccountNumber:  acct.AccountNumber,
			BankCode:       acct.BankCode,
			HolderName:     acct.HolderName,
			IdempotencyKey: req.IdempotencyKey,
		})
		return apiErr
	})
	rails.ObserveCall(providerName, rails.OpPull, err)
	if err != nil {
		return nil, err
	}
	return a.toResult(envelope, req.Amount, req.Currency), nil
}

// Push disburses funds to a local account. There is one local rail per
// corridor, so the preferred rail and fallback chain do not apply here.
func (a *Adapter) Push(ctx context.Context, req rails.PushRequest) (*rails.TransactionResult, error) {
	acct, minor, err := a.prepare(req.Account, req.Amount, req.Currency, rails.OpPush)
	if err != nil {
		return nil, err
	}

	var envelope *TransactionEnvelope
	err = a.policy.Do(ctx, func(ctx context.Context) error {
		var apiErr error
		envelope, apiErr = a.api.CreatePayout(ctx, Payout{
			AmountMinor:    minor,
			Currency:       strings.ToUpper(req.Currency),
			Country:        acct.Country,
			AccountNumber:  acct.AccountNumber,
			BankCode:       acct.BankCode,
			HolderName:     acct.HolderName,
			IdempotencyKey: req.IdempotencyKey,
		})
		return apiErr
	})
	rails.ObserveCall(providerName, rails.OpPush, err)
	if err != nil {
		return nil, err
	}
	return a.toResult(envelope, req.Amount, req.Currency), nil
}

// TransactionStatus polls a payment or payout; an unknown transaction is
// pending because Rapyd acknowledges asynchronously.
func (a *Adapter) TransactionStatus(ctx context.Context, providerTxID string) (rails.Status, error) {
	var envelope *TransactionEnvelope
	err := a.policy.Do(ctx, func(ctx context.Context) error {
		var apiErr error
		envelope, apiErr = a.api.GetTransaction(ctx, providerTxID)
		return apiErr
	})
	if err != nil {
		if rails.Category(err) == rails.ErrorProviderRejected {
			return rails.StatusPending, nil
		}
		return "", err
	}
	return rails.NormalizeStatus(envelope.Status), nil
}

func (a *Adapter) prepare(account rails.Account, amount decimal.Decimal, currency string, op rails.Operation) (rails.InternationalBankAccount, int64, error) {
	acct, ok := account.(rails.InternationalBankAccount)
	if !ok {
		return rails.InternationalBankAccount{}, 0, rails.NewRailError(rails.ErrorInvalidAccount, providerName, op,
			fmt.Sprintf("account country %s is not served by the international adapter", account.CountryCode()), nil)
	}
	want, err := rails.CurrencyFor(acct.Country)
	if err != nil {
		return rails.InternationalBankAccount{}, 0, rails.NewRailError(rails.ErrorInvalidAccount, providerName, op, err.Error(), err)
	}
	if !strings.EqualFold(currency, want) {
		return rails.InternationalBankAccount{}, 0, rails.NewRailError(rails.ErrorInvalidAccount, providerName, op,
			fmt.Sprintf("currency %s does not settle in %s (wants %s)", currency, acct.Country, want), nil)
	}
	minor, err := money.ToMinorUnits(amount, currency)
	if err != nil {
		return rails.InternationalBankAccount{}, 0, rails.NewRailError(rails.ErrorInvalidAccount, providerName, op, err.Error(), err)
	}
	return acct, minor, nil
}

func (a *Adapter) toResult(e *TransactionEnvelope, amount decimal.Decimal, currency string) *rails.TransactionResult {
	return &rails.TransactionResult{
		ProviderTxID: e.ID,
		Provider:     providerName,
		Rail:         rails.RailLocal,
		Status:       rails.NormalizeStatus(e.Status),
		Amount:       amount,
		Currency:     currency,
	}
}
