package rails

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Smart-rail amount thresholds in major units. At or below the RTP ceiling
// the transfer goes instant; at or below the ACH ceiling it goes batch; above
// that it wires.
var (
	smartRTPCeiling = decimal.NewFromInt(100)
	smartACHCeiling = decimal.NewFromInt(25000)
)

// DefaultFallbackOrder is the fixed US push fallback ordering. This is a
// policy choice, not bank-rail truth; deployments can override it via
// SelectorConfig.
var DefaultFallbackOrder = []Rail{RailRTP, RailACH, RailWire, RailFedNow}

// SelectorConfig tunes rail selection without touching the selection logic.
type SelectorConfig struct {
	// FallbackOrder overrides DefaultFallbackOrder when non-empty.
	FallbackOrder []Rail
}

// Selector resolves which adapter, account representation and rail serve a
// given transfer leg. It carries no per-request state.
type Selector struct {
	registry *Registry
	fallback []Rail
}

// NewSelector builds a selector over the process-wide adapter registry.
func NewSelector(registry *Registry, cfg SelectorConfig) *Selector {
	fallback := cfg.FallbackOrder
	if len(fallback) == 0 {
		fallback = DefaultFallbackOrder
	}
	return &Selector{registry: registry, fallback: fallback}
}

// AdapterFor resolves the rail adapter for a country code.
func (s *Selector) AdapterFor(countryCode string) (Adapter, error) {
	return s.registry.AdapterFor(countryCode)
}

// AdapterNamed resolves an adapter by provider name.
func (s *Selector) AdapterNamed(name string) (Adapter, error) {
	return s.registry.AdapterNamed(name)
}

// Bridge returns the stablecoin bridge adapter.
func (s *Selector) Bridge() (BridgeAdapter, error) {
	return s.registry.Bridge()
}

// AccountDetails is the raw bank detail bundle supplied by the account
// resolution collaborator. Format validation happens in AccountFor, not in
// the collaborator.
type AccountDetails struct {
	RoutingNumber string
	AccountNumber string
	BankCode      string
	HolderName    string
}

// AccountFor constructs the country-appropriate Account variant from raw
// details, enforcing the country's identifier formats.
func (s *Selector) AccountFor(countryCode string, details AccountDetails) (Account, error) {
	cc := strings.ToUpper(strings.TrimSpace(countryCode))
	switch cc {
	case "US":
		acct, err := NewUSBankAccount(details.RoutingNumber, details.AccountNumber, details.HolderName)
		if err != nil {
			return nil, err
		}
		return acct, nil
	case "CA", "MX", "NG":
		acct, err := NewInternationalBankAccount(cc, details.AccountNumber, details.BankCode, details.HolderName)
		if err != nil {
			return nil, err
		}
		return acct, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCountry, countryCode)
	}
}

// ChooseRail picks the US rail for a push. With smart rails enabled the
// amount decides and any caller preference is overridden; otherwise the
// preference wins, defaulting to the head of the fallback order.
func (s *Selector) ChooseRail(amount decimal.Decimal, preferred Rail, smartRails bool) Rail {
	if smartRails {
		switch {
		case amount.LessThanOrEqual(smartRTPCeiling):
			return RailRTP
		case amount.LessThanOrEqual(smartACHCeiling):
			return RailACH
		default:
			return RailWire
		}
	}
	if preferred != "" {
		return preferred
	}
	return s.fallback[0]
}

// FallbackOrder returns the configured push fallback chain with the
// preferred rail moved to the front.
func (s *Selector) FallbackOrder(preferred Rail) []Rail {
	return FallbackChain(s.fallback, preferred)
}

// FallbackChain reorders a fallback chain so the preferred rail is attempted
// first. The remaining rails keep their relative order; an empty preference
// leaves the chain untouched.
func FallbackChain(order []Rail, preferred Rail) []Rail {
	if preferred == "" {
		return append([]Rail(nil), order...)
	}
	out := make([]Rail, 0, len(order)+1)
	out = append(out, preferred)
	for _, r := range order {
		if r != preferred {
			out = append(out, r)
		}
	}
	return out
}
