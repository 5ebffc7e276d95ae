// Package money holds the fixed-point amount type used for balances,
// fares and refunds. Values never pass through float64.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the minor-unit precision of every stored amount.
const Places = 2

// Max is the largest value a NUMERIC(14,2) column holds.
var Max = MustParse("999999999999.99")

var (
	ErrTooManyDecimals = errors.New("amount has more than 2 decimal places")
	ErrNotPositive     = errors.New("amount must be positive")
	ErrTooLarge        = errors.New("amount exceeds 999999999999.99")
)

// Amount wraps decimal.Decimal so it scans from NUMERIC columns and
// serialises as a two-digit decimal string.
type Amount struct {
	decimal.Decimal
}

var Zero = Amount{decimal.Zero}

func New(d decimal.Decimal) Amount {
	return Amount{d}
}

func FromInt(v int64) Amount {
	return Amount{decimal.NewFromInt(v)}
}

// Parse reads an exact decimal string such as "150.50".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount{d}, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Round rounds to minor units, half away from zero. For the non-negative
// amounts this package deals with that is round-half-up.
func Round(d decimal.Decimal) Amount {
	return Amount{d.Round(Places)}
}

func (a Amount) Add(b Amount) Amount { return Amount{a.Decimal.Add(b.Decimal)} }
func (a Amount) Sub(b Amount) Amount { return Amount{a.Decimal.Sub(b.Decimal)} }
func (a Amount) Neg() Amount         { return Amount{a.Decimal.Neg()} }

func (a Amount) Equal(b Amount) bool { return a.Decimal.Equal(b.Decimal) }

// ValidatePositive checks an operator- or client-supplied amount.
func (a Amount) ValidatePositive() error {
	if !a.IsPositive() {
		return ErrNotPositive
	}
	if !a.Decimal.Equal(a.Decimal.Round(Places)) {
		return ErrTooManyDecimals
	}
	if a.GreaterThan(Max.Decimal) {
		return ErrTooLarge
	}
	return nil
}

func (a Amount) String() string {
	return a.StringFixed(Places)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.StringFixed(Places) + `"`), nil
}

// Sum adds amounts in order.
func Sum(amounts ...Amount) Amount {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
