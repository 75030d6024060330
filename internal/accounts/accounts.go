// Package accounts resolves a user's bank details per country. Format
// validation of the resolved details is owned by the rails account
// constructors, not by this package; resolvers hand back raw details as the
// profile system stores them.
package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"crossrail/internal/rails"
	"crossrail/pkg/platform/sentinel"
)

// Resolver supplies the bank details for a user in a given country.
type Resolver interface {
	Resolve(ctx context.Context, userID, countryCode string) (rails.AccountDetails, error)
}

// Static is an in-memory resolver seeded at construction. It backs tests and
// single-tenant deployments where the account book is part of configuration.
type Static struct {
	mu      sync.RWMutex
	entries map[string]rails.AccountDetails
}

func NewStatic() *Static {
	return &Static{entries: make(map[string]rails.AccountDetails)}
}

// Add registers details for a user+country pair, replacing any prior entry.
func (s *Static) Add(userID, countryCode string, details rails.AccountDetails) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entryKey(userID, countryCode)] = details
}

func (s *Static) Resolve(_ context.Context, userID, countryCode string) (rails.AccountDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	details, ok := s.entries[entryKey(userID, countryCode)]
	if !ok {
		return rails.AccountDetails{}, fmt.Errorf("%w: no account on file for user %s in %s",
			sentinel.ErrNotFound, userID, strings.ToUpper(countryCode))
	}
	return details, nil
}

func entryKey(userID, countryCode string) string {
	return userID + "/" + strings.ToUpper(strings.TrimSpace(countryCode))
}

// fileDetails is the on-disk shape of one account entry.
type fileDetails struct {
	RoutingNumber string `json:"routing_number,omitempty"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code,omitempty"`
	HolderName    string `json:"holder_name"`
}

// LoadFile seeds a Static resolver from a JSON account book keyed by user
// ID, then country code.
func LoadFile(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read account book: %w", err)
	}

	var book map[string]map[string]fileDetails
	if err := json.Unmarshal(raw, &book); err != nil {
		return nil, fmt.Errorf("parse account book %s: %w", path, err)
	}

	resolver := NewStatic()
	for userID, countries := range book {
		for cc, details := range countries {
			resolver.Add(userID, cc, rails.AccountDetails{
				RoutingNumber: details.RoutingNumber,
				AccountNumber: details.AccountNumber,
				BankCode:      details.BankCode,
				HolderName:    details.HolderName,
			})
		}
	}
	return resolver, nil
}
