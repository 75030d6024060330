package rails

import (
	"fmt"
	"strings"
)

// Account is the closed set of bank account representations a rail adapter
// can move money to or from. The concrete variant enforces its country's
// identifier formats at construction, so an Account value in hand is always
// structurally valid for its country.
type Account interface {
	// CountryCode returns the uppercased ISO 3166-1 alpha-2 country code.
	CountryCode() string

	// Holder returns the account holder's name.
	Holder() string
}

// USBankAccount is a domestic US account addressed by ABA routing number and
// account number.
type USBankAccount struct {
	RoutingNumber string
	AccountNumber string
	HolderName    string
}

// NewUSBankAccount validates the routing number against the ABA checksum and
// the account number for basic shape.
func NewUSBankAccount(routingNumber, accountNumber, holderName string) (USBankAccount, error) {
	if !isDigits(routingNumber) || len(routingNumber) != 9 {
		return USBankAccount{}, fmt.Errorf("us routing number must be 9 digits, got %q", routingNumber)
	}
	if !validABAChecksum(routingNumber) {
		return USBankAccount{}, fmt.Errorf("us routing number %q fails ABA checksum", routingNumber)
	}
	if !isDigits(accountNumber) || len(accountNumber) < 4 || len(accountNumber) > 17 {
		return USBankAccount{}, fmt.Errorf("us account number must be 4-17 digits")
	}
	if strings.TrimSpace(holderName) == "" {
		return USBankAccount{}, fmt.Errorf("holder name is required")
	}
	return USBankAccount{RoutingNumber: routingNumber, AccountNumber: accountNumber, HolderName: holderName}, nil
}

func (a USBankAccount) CountryCode() string { return "US" }
func (a USBankAccount) Holder() string      { return a.HolderName }

// validABAChecksum applies the 3-7-1 weighting over the nine digits.
func validABAChecksum(routing string) bool {
	weights := [9]int{3, 7, 1, 3, 7, 1, 3, 7, 1}
	sum := 0
	for i, r := range routing {
		sum += int(r-'0') * weights[i]
	}
	return sum%10 == 0
}

// InternationalBankAccount covers the non-US corridors. AccountNumber holds
// the country's national account identifier (CLABE for MX, NUBAN for NG,
// transit+account for CA); BankCode carries the institution identifier where
// the corridor needs one.
type InternationalBankAccount struct {
	Country       string
	AccountNumber string
	BankCode      string
	HolderName    string
}

// NewInternationalBankAccount validates the account number per country:
// a Mexican CLABE is exactly 18 digits, a Nigerian NUBAN exactly 10, and a
// Canadian account is 7-12 digits with a 9-digit routing (0 + institution +
// transit) in BankCode.
func NewInternationalBankAccount(country, accountNumber, bankCode, holderName string) (InternationalBankAccount, error) {
	cc := strings.ToUpper(strings.TrimSpace(country))
	if strings.TrimSpace(holderName) == "" {
		return InternationalBankAccount{}, fmt.Errorf("holder name is required")
	}

	switch cc {
	case "MX":
		if !isDigits(accountNumber) || len(accountNumber) != 18 {
			return InternationalBankAccount{}, fmt.Errorf("mexican CLABE must be exactly 18 digits, got %d", len(accountNumber))
		}
	case "NG":
		if !isDigits(accountNumber) || len(accountNumber) != 10 {
			return InternationalBankAccount{}, fmt.Errorf("nigerian NUBAN must be exactly 10 digits, got %d", len(accountNumber))
		}
	case "CA":
		if !isDigits(accountNumber) || len(accountNumber) < 7 || len(accountNumber) > 12 {
			return InternationalBankAccount{}, fmt.Errorf("canadian account number must be 7-12 digits")
		}
		if !isDigits(bankCode) || len(bankCode) != 9 {
			return InternationalBankAccount{}, fmt.Errorf("canadian routing must be 9 digits (0 + institution + transit)")
		}
	default:
		return InternationalBankAccount{}, fmt.Errorf("%w: %s", ErrUnsupportedCountry, cc)
	}

	return InternationalBankAccount{
		Country:       cc,
		AccountNumber: accountNumber,
		BankCode:      bankCode,
		HolderName:    holderName,
	}, nil
}

func (a InternationalBankAccount) CountryCode() string { return a.Country }
func (a InternationalBankAccount) Holder() string      { return a.HolderName }

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
