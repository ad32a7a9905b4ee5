// Package domain defines the core business entities, state machines, and
// invariants for the sportsbook platform: money and ledger primitives,
// wallets, odds, event-sourced bets, and sport events/markets.
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a non-negative decimal amount tagged with a 3-letter currency
// code. All arithmetic is currency-checked: Add/Subtract/Compare fail with
// ErrCurrencyMismatch across differing currencies.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// NewMoney constructs a Money, failing with ErrNegativeAmount if amount < 0.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// Zero returns a zero-value Money in the given currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// Add returns m + other. Fails with ErrCurrencyMismatch if currencies differ.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Subtract returns m - other. Fails with ErrCurrencyMismatch across
// currencies, or ErrInsufficientAmount if other > m.
func (m Money) Subtract(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	if other.Amount.GreaterThan(m.Amount) {
		return Money{}, ErrInsufficientAmount
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// Compare returns -1, 0, or 1 as m is less than, equal to, or greater than
// other. Fails with ErrCurrencyMismatch across currencies.
func (m Money) Compare(other Money) (int, error) {
	if m.Currency != other.Currency {
		return 0, ErrCurrencyMismatch
	}
	return m.Amount.Cmp(other.Amount), nil
}

// GreaterThan reports whether m > other, returning false on a currency
// mismatch rather than erroring — callers that need the error form should use Compare.
func (m Money) GreaterThan(other Money) bool {
	if m.Currency != other.Currency {
		return false
	}
	return m.Amount.GreaterThan(other.Amount)
}

// LessThan reports whether m < other.
func (m Money) LessThan(other Money) bool {
	if m.Currency != other.Currency {
		return false
	}
	return m.Amount.LessThan(other.Amount)
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}
