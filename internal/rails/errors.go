package rails

import (
	"errors"
	"fmt"
)

// ErrorCategory defines the normalized failure taxonomy shared by every rail
// adapter. Provider-specific HTTP codes and status vocabularies are translated
// into one of these at the adapter boundary.
type ErrorCategory string

const (
	// ErrorInvalidAccount indicates the account is incompatible with the rail
	// (wrong country, wrong currency, malformed identifiers).
	ErrorInvalidAccount ErrorCategory = "invalid_account"

	// ErrorInsufficientFunds indicates the provider reported NSF on a debit.
	ErrorInsufficientFunds ErrorCategory = "insufficient_funds"

	// ErrorTimeout indicates the provider took too long to respond.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorRateLimited indicates the provider throttled the request.
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorProviderOutage indicates the provider is unavailable (503/504,
	// connection reset).
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorProviderRejected indicates the provider rejected the request
	// outright (4xx other than 429). Never retried.
	ErrorProviderRejected ErrorCategory = "provider_rejected"

	// ErrorRailUnavailable indicates the selected rail cannot serve this
	// transfer; the adapter may advance its fallback chain.
	ErrorRailUnavailable ErrorCategory = "rail_unavailable"

	// ErrorInternal indicates an unexpected provider-side failure (5xx).
	ErrorInternal ErrorCategory = "internal"
)

// RailError wraps provider failures with normalized categorization so the
// retry machinery and the orchestrator never inspect provider wire errors.
type RailError struct {
	Category   ErrorCategory
	Provider   string
	Operation  Operation
	Message    string
	Underlying error
	Retryable  bool
}

func (e *RailError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("rail %s %s [%s]: %s: %v", e.Provider, e.Operation, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("rail %s %s [%s]: %s", e.Provider, e.Operation, e.Category, e.Message)
}

func (e *RailError) Unwrap() error {
	return e.Underlying
}

// NewRailError creates a normalized rail error. Retryability follows the
// category except for one deliberate divergence: internal (5xx) failures on
// mint stay retryable because the bridge provider dedupes on the idempotency
// key, while 5xx on any other operation is fatal after the first attempt.
func NewRailError(category ErrorCategory, provider string, op Operation, message string, underlying error) *RailError {
	retryable := category == ErrorTimeout ||
		category == ErrorRateLimited ||
		category == ErrorProviderOutage ||
		(category == ErrorInternal && op == OpMint)

	return &RailError{
		Category:   category,
		Provider:   provider,
		Operation:  op,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable reports whether an error is worth retrying with the same
// idempotency key.
func IsRetryable(err error) bool {
	var re *RailError
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// Category extracts the normalized category from an error.
func Category(err error) ErrorCategory {
	var re *RailError
	if errors.As(err, &re) {
		return re.Category
	}
	return ErrorInternal
}

// Sentinel errors for selection and saga-level states.
var (
	ErrUnsupportedCountry = errors.New("unsupported country")
	ErrUnknownRail        = errors.New("unknown rail")
	ErrIndeterminateState = errors.New("funds in indeterminate state, manual review required")
)
