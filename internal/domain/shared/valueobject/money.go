package valueobject

import (
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	EUR Currency = "EUR" // Euro (default)
	USD Currency = "USD" // US Dollar
	GBP Currency = "GBP" // British Pound
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = EUR

// Money is a value object for monetary amounts held in integer minor units
// (cents). It is immutable - all operations return new Money instances.
type Money struct {
	minorUnits int64
	currency   Currency
}

// NewMoney creates a new Money from integer minor units
func NewMoney(minorUnits int64, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{minorUnits: minorUnits, currency: currency}, nil
}

// NewMoneyEUR creates Money in EUR from integer minor units
func NewMoneyEUR(minorUnits int64) Money {
	return Money{minorUnits: minorUnits, currency: EUR}
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{currency: currency}
}

// MinorUnits returns the raw amount in minor units
func (m Money) MinorUnits() int64 {
	return m.minorUnits
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// Decimal returns the amount in major units as a decimal (e.g. 15000 -> 150.00)
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.minorUnits).Shift(-2)
}

// IsZero reports whether the amount is zero
func (m Money) IsZero() bool {
	return m.minorUnits == 0
}

// IsNegative reports whether the amount is negative
func (m Money) IsNegative() bool {
	return m.minorUnits < 0
}

// IsPositive reports whether the amount is strictly positive
func (m Money) IsPositive() bool {
	return m.minorUnits > 0
}

// Add returns the sum of two Money values of the same currency
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, errors.New("cannot add amounts of different currencies")
	}
	return Money{minorUnits: m.minorUnits + other.minorUnits, currency: m.currency}, nil
}

// Equals reports whether two Money values are identical
func (m Money) Equals(other Money) bool {
	return m.minorUnits == other.minorUnits && m.currency == other.currency
}

// String formats the amount with two decimal places and the currency code,
// e.g. "150.00 EUR"
func (m Money) String() string {
	return m.Decimal().StringFixed(2) + " " + string(m.currency)
}

// Format returns the amount with two decimal places without the currency,
// the form used on rendered documents
func (m Money) Format() string {
	return m.Decimal().StringFixed(2)
}

// moneyJSON is the serialized form of Money
type moneyJSON struct {
	MinorUnits int64    `json:"minor_units"`
	Currency   Currency `json:"currency"`
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{MinorUnits: m.minorUnits, Currency: m.currency})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	m.minorUnits = v.MinorUnits
	m.currency = v.Currency
	return nil
}
