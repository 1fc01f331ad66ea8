package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a currency-tagged decimal amount. Arithmetic between mismatched
// currencies fails rather than silently mixing units. The zero value is an
// untagged zero and may be added to any currency.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney creates a Money value with a normalized (upper-case) currency tag.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return Money{}, Invalid("money.new", "currency is required")
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// MustMoney is a test/fixture helper that panics on invalid input.
func MustMoney(amount string, currency string) Money {
	m, err := NewMoney(decimal.RequireFromString(amount), currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: strings.ToUpper(currency)}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// sameCurrency verifies two operands can be combined. Untagged zero values
// adopt the other operand's currency.
func (m Money) sameCurrency(other Money) (string, error) {
	switch {
	case m.Currency == other.Currency:
		return m.Currency, nil
	case m.Currency == "" && m.Amount.IsZero():
		return other.Currency, nil
	case other.Currency == "" && other.Amount.IsZero():
		return m.Currency, nil
	default:
		return "", Errorf(EINVALID, "money.arith", "currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
}

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	cur, err := m.sameCurrency(other)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: cur}, nil
}

// Sub returns m - other.
func (m Money) Sub(other Money) (Money, error) {
	cur, err := m.sameCurrency(other)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: cur}, nil
}

// MulQuantity returns the line total for qty units at price m.
func (m Money) MulQuantity(qty Quantity) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(int64(qty))), Currency: m.Currency}
}

// Cmp compares amounts: -1 if m < other, 0 if equal, +1 if m > other.
// Callers must ensure matching currencies first.
func (m Money) Cmp(other Money) int {
	return m.Amount.Cmp(other.Amount)
}

// Equal reports whether both amount and currency match.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// String renders "123.45 USD" for logs and error messages.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.String(), m.Currency)
}

// Quantity is a unit count. Construction rejects non-positive values;
// arithmetic on movements uses signed deltas derived from the movement type
// instead of negative quantities.
type Quantity int32

// NewQuantity validates that n is a positive unit count.
func NewQuantity(n int32) (Quantity, error) {
	if n <= 0 {
		return 0, Invalid("quantity.new", "quantity must be greater than zero")
	}
	return Quantity(n), nil
}

// Int32 returns the raw count for persistence.
func (q Quantity) Int32() int32 { return int32(q) }
