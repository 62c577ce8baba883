package pit38

import (
	"encoding/json"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	default:
		panic("unsupported type")
	}
}

// Money represents a monetary value. All arithmetic is exact; values are
// only rounded at the statutory boundaries (see RoundWhole).
type Money struct {
	value decimal.Decimal // as major unit value
	cur   string
}

func M[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T, currency string) Money {
	return Money{value: newDecimal(value), cur: currency}
}

// PLN is a shorthand for amounts in the local fiat currency.
func PLN[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) Money {
	return M(value, LocalCurrency)
}

// currency returns the money's currency
func (m Money) currency() money.Currency {
	// to get a never nil currency I need to call the Money constructor
	return *money.New(0, m.cur).Currency()
}

// String returns the string representation of the money value.
func (m Money) String() string {
	cur := m.currency()
	dec := m.value.Shift(int32(cur.Fraction))
	return cur.Formatter().Format(dec.IntPart())
}

func (m Money) Currency() string            { return m.cur }
func (m Money) Decimal() decimal.Decimal    { return m.value }
func (m Money) Equal(n Money) bool          { return m.value.Equal(n.value) && m.cur == n.cur }
func (m Money) IsZero() bool                { return m.value.IsZero() }
func (m Money) IsPositive() bool            { return m.value.IsPositive() }
func (m Money) IsNegative() bool            { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool       { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool    { return m.value.GreaterThan(n.value) }
func (m Money) Neg() Money                  { return Money{value: m.value.Neg(), cur: m.cur} }
func (m Money) Mul(n decimal.Decimal) Money { return Money{value: m.value.Mul(n), cur: m.cur} }

// binary operators.
func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value), cur: cur(m, n)} }
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value), cur: cur(m, n)} }

// makes the "" currency totally weak.
func cur(a, b Money) string {
	if a.cur == "" {
		return b.cur
	}
	if b.cur == "" {
		return a.cur
	}
	if a.cur != b.cur {
		panic("currency mismatch " + a.cur + "!=" + b.cur)
	}
	return a.cur
}

// RoundWhole rounds to whole currency units half-up, the rounding the
// tax ordinance mandates for the taxable base and the tax due. The
// receiver is never negative at those call sites, so decimal's
// half-away-from-zero rounding is half-up here.
func (m Money) RoundWhole() int64 {
	return m.value.Round(0).IntPart()
}

// StringFixed returns the plain decimal representation with the given
// number of fractional digits, without currency symbol or grouping.
func (m Money) StringFixed(places int32) string {
	return m.value.StringFixed(places)
}

func (m Money) MarshalJSON() ([]byte, error) {
	type jm struct {
		Value    decimal.Decimal `json:"value"`
		Currency string          `json:"currency"`
	}
	return json.Marshal(jm{m.value, m.cur})
}
