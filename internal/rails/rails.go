// Package rails defines the uniform contract between the transfer
// orchestrator and the external payment providers. Each provider adapter
// translates this contract into its own wire format, authentication scheme
// and status vocabulary; nothing above this package ever sees a provider's
// native shapes.
package rails

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Operation names a single money-movement call against a provider.
type Operation string

const (
	OpPull   Operation = "pull"
	OpPush   Operation = "push"
	OpMint   Operation = "mint"
	OpRedeem Operation = "redeem"
	OpStatus Operation = "status"
)

// Rail is a specific payment network within a provider.
type Rail string

const (
	RailRTP    Rail = "rtp"
	RailACH    Rail = "ach"
	RailWire   Rail = "wire"
	RailFedNow Rail = "fednow"

	// RailLocal is the international adapter's single local bank-transfer
	// method; it has no fallback chain.
	RailLocal Rail = "local"
)

// ParseRail converts a caller-supplied rail name into a Rail. Matching is
// case-insensitive; unknown names return ErrUnknownRail.
func ParseRail(s string) (Rail, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rtp":
		return RailRTP, nil
	case "ach":
		return RailACH, nil
	case "wire":
		return RailWire, nil
	case "fednow":
		return RailFedNow, nil
	case "local":
		return RailLocal, nil
	default:
		return "", ErrUnknownRail
	}
}

// Status is the normalized transaction status vocabulary. Provider-native
// statuses are collapsed into exactly these three values at the adapter
// boundary.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// NormalizeStatus maps a provider's native status string onto the fixed
// vocabulary. Anything unrecognized is treated as failed rather than pending
// so an unknown provider state can never leave a saga step looking healthy.
func NormalizeStatus(native string) Status {
	switch strings.ToLower(strings.TrimSpace(native)) {
	case "completed", "complete", "success", "succeeded", "settled", "paid":
		return StatusCompleted
	case "pending", "processing", "created", "queued", "approved", "in_progress":
		return StatusPending
	default:
		return StatusFailed
	}
}

// CurrencyFor returns the settlement currency for a supported country.
func CurrencyFor(countryCode string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(countryCode)) {
	case "US":
		return "USD", nil
	case "CA":
		return "CAD", nil
	case "MX":
		return "MXN", nil
	case "NG":
		return "NGN", nil
	default:
		return "", ErrUnsupportedCountry
	}
}

// TransactionResult is the outcome of a pull or push against a fiat rail.
type TransactionResult struct {
	ProviderTxID string
	Provider     string
	Rail         Rail
	Status       Status
	Amount       decimal.Decimal
	Currency     string
	Metadata     map[string]string
}

// BridgeResult is the outcome of a mint or redeem against the stablecoin
// bridge.
type BridgeResult struct {
	ProviderTxID string
	Status       Status
	Amount       decimal.Decimal
	Currency     string
	Chain        string
	Metadata     map[string]string
}

// PullRequest debits the given account.
type PullRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Account        Account
	IdempotencyKey string
}

// PushRequest credits the given account. PreferredRail is honored by the
// domestic adapter, which also owns the fallback ordering; KeyForRail hands
// out a distinct idempotency key per rail attempt so two providers' rails are
// never conflated under one key.
type PushRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Account        Account
	IdempotencyKey string
	PreferredRail  Rail
	KeyForRail     func(rail Rail) string
}

// MintRequest converts fiat-equivalent value into the bridge asset.
type MintRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Chain          string
	IdempotencyKey string
}

// RedeemRequest converts bridge-asset value back into fiat at the
// destination-side custodial account.
type RedeemRequest struct {
	Amount               decimal.Decimal
	Currency             string
	DestinationAccountID string
	IdempotencyKey       string
}

// Adapter is the uniform interface over one fiat payment provider. All calls
// apply the retry policy internally and attach the supplied idempotency key,
// so a caller-visible error is always either fatal or retries-exhausted.
type Adapter interface {
	// Name returns a unique identifier for this adapter instance.
	Name() string

	// Countries returns the uppercased ISO country codes this adapter serves.
	Countries() []string

	// Pull debits the account.
	Pull(ctx context.Context, req PullRequest) (*TransactionResult, error)

	// Push credits the account.
	Push(ctx context.Context, req PushRequest) (*TransactionResult, error)

	// TransactionStatus polls the current status of a prior transaction.
	// A transaction the provider does not know yet reports pending, not an
	// error, because providers acknowledge asynchronously.
	TransactionStatus(ctx context.Context, providerTxID string) (Status, error)
}

// BridgeAdapter is the stablecoin bridge between two fiat rails.
type BridgeAdapter interface {
	Name() string
	Mint(ctx context.Context, req MintRequest) (*BridgeResult, error)
	Redeem(ctx context.Context, req RedeemRequest) (*BridgeResult, error)
	TransactionStatus(ctx context.Context, providerTxID string) (Status, error)
}
