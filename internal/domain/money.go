package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits kept for money (NUMERIC(12,2)).
const AmountScale = 2

// DefaultCurrency applies when a deal is created without one.
const DefaultCurrency = "USD"

// amountIntDigits is the number of integer digits NUMERIC(12,2) holds.
const amountIntDigits = 12 - AmountScale

// minAmountExponent bounds how many fractional digits an input may carry
// before rounding. Larger magnitudes would make rescaling unbounded work.
const minAmountExponent = -32

var maxAmount = decimal.New(1, amountIntDigits)

// Amount is an exact decimal money value. It is encoded as a JSON string with
// two fractional digits and accepts both JSON numbers and strings.
type Amount struct {
	decimal.Decimal
}

// NewAmount parses s into an Amount.
func NewAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Decimal: d}, nil
}

// MustAmount is NewAmount for literals.
func MustAmount(s string) Amount {
	a, err := NewAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ZeroAmount returns 0.00.
func ZeroAmount() Amount {
	return Amount{Decimal: decimal.Zero}
}

// Plus returns a + b.
func (a Amount) Plus(b Amount) Amount {
	return Amount{Decimal: a.Decimal.Add(b.Decimal)}
}

// Normalize rounds to AmountScale and enforces the NUMERIC(12,2) range.
// Inputs whose exponent or digit count cannot fit are rejected before any
// arithmetic touches them.
func (a Amount) Normalize() (Amount, error) {
	if err := checkMagnitude(a.Decimal); err != nil {
		return Amount{}, err
	}
	r := a.Decimal.Round(AmountScale)
	if r.Abs().GreaterThanOrEqual(maxAmount) {
		return Amount{}, fmt.Errorf("amount out of range: %s", a.Decimal.String())
	}
	return Amount{Decimal: r}, nil
}

func checkMagnitude(d decimal.Decimal) error {
	exp := d.Exponent()
	if exp < minAmountExponent || exp > amountIntDigits {
		return fmt.Errorf("amount out of range: exponent %d", exp)
	}
	if d.Sign() != 0 && d.NumDigits()+int(exp) > amountIntDigits {
		return fmt.Errorf("amount out of range: %d integer digits", d.NumDigits()+int(exp))
	}
	return nil
}

// String renders the amount with two fractional digits.
func (a Amount) String() string {
	return a.Decimal.StringFixed(AmountScale)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	a.Decimal = d
	return nil
}
