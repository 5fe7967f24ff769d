package entities

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places every amount is kept at.
const MoneyScale = 2

// Money is a fixed-point amount with two decimal places.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{d: decimal.Zero}

// NewMoney rounds d half-away-from-zero to two decimals.
func NewMoney(d decimal.Decimal) Money {
	return Money{d: d.Round(MoneyScale)}
}

// MoneyFromMinor builds an amount from minor units (tyiyn, cents).
func MoneyFromMinor(minor int64) Money {
	return Money{d: decimal.New(minor, -MoneyScale)}
}

// ParseMoney accepts "1500", "1500.5", "1 500,00" and similar human formats.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "'", "").Replace(s)
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, err
	}
	return NewMoney(d), nil
}

// MustMoney is ParseMoney for literals; it panics on malformed input.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Decimal() decimal.Decimal { return m.d }

// Minor returns the amount in minor units.
func (m Money) Minor() int64 { return m.d.Shift(MoneyScale).Round(0).IntPart() }

func (m Money) IsPositive() bool { return m.d.IsPositive() }

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

// Within reports whether |m - o| <= tolerance.
func (m Money) Within(o, tolerance Money) bool {
	return m.d.Sub(o.d).Abs().LessThanOrEqual(tolerance.d)
}

func (m Money) String() string { return m.d.StringFixed(MoneyScale) }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
