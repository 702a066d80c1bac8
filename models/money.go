package models

import (
	"github.com/shopspring/decimal"
)

// Money is a decimal amount persisted as decimal(10,2) and rendered in JSON
// as a string with exactly two decimal places ("12.50").
type Money struct {
	decimal.Decimal
}

// NewMoney parses a decimal string. Invalid input yields zero.
func NewMoney(value string) Money {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}
	}
	return Money{d}
}

// MoneyFromDecimal wraps a decimal value
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{d}
}

// Add returns m + other
func (m Money) Add(other Money) Money {
	return Money{m.Decimal.Add(other.Decimal)}
}

// Sub returns m - other
func (m Money) Sub(other Money) Money {
	return Money{m.Decimal.Sub(other.Decimal)}
}

// Times returns m * quantity
func (m Money) Times(quantity int) Money {
	return Money{m.Decimal.Mul(decimal.NewFromInt(int64(quantity)))}
}

// Round2 rounds half away from zero to two decimal places
func (m Money) Round2() Money {
	return Money{m.Decimal.Round(2)}
}

// String formats the amount with two decimal places
func (m Money) String() string {
	return m.Decimal.StringFixed(2)
}

// MarshalJSON renders the amount as a fixed two-decimal string
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.Decimal.StringFixed(2) + `"`), nil
}
