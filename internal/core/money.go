// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Conversions to and from decimal values go
// through shopspring/decimal so no float arithmetic touches stored amounts.
package core

import (
	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

var (
	hundred = decimal.NewFromInt(100)

	// MinAmount is the smallest accepted expense amount.
	MinAmount = decimal.New(1, -2)
	maxCents  = decimal.NewFromInt(1 << 62)
)

// MoneyFromDecimal converts a decimal amount to cents with half-up rounding
// on the third decimal place. Amounts below 0.01 are rejected before rounding.
//
// Examples:
//
//	MoneyFromDecimal(12.34)  -> 1234
//	MoneyFromDecimal(12.345) -> 1235
//	MoneyFromDecimal(0.005)  -> ErrInvalidAmount
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.LessThan(MinAmount) {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if cents.GreaterThan(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// Amount is an unbounded currency value for aggregates, which can exceed
// the int64 range of Money.
type Amount struct {
	d decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{d: d}
}

func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

func (a Amount) String() string {
	return a.d.StringFixed(2)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}
