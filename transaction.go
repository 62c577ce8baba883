package pit38

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one normalized row of an exchange export. It is
// immutable once parsed; classification produces a separate Record.
type Transaction struct {
	Time      time.Time       // UTC
	Operation string          // exchange operation label, trimmed
	Asset     string          // upper-cased symbol
	Change    decimal.Decimal // signed quantity delta, never zero
	Account   string          // exchange account label (Spot, Funding, ...)
	Remark    string
}

// Inflow reports whether the transaction adds to the account.
func (t Transaction) Inflow() bool { return t.Change.IsPositive() }

// Outflow reports whether the transaction takes from the account.
func (t Transaction) Outflow() bool { return t.Change.IsNegative() }

// Quantity returns the absolute quantity moved.
func (t Transaction) Quantity() decimal.Decimal { return t.Change.Abs() }

func (t Transaction) String() string {
	return fmt.Sprintf("%s %s %s %s", t.Time.Format("2006-01-02 15:04:05"), t.Operation, t.Change, t.Asset)
}

// ParseChange parses a signed quantity delta. Exports localized for
// Poland use a comma decimal separator.
func ParseChange(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty quantity")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	if d.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("zero quantity")
	}
	return d, nil
}
