package pit38

import "fmt"

// Category is the tax category a classified transaction falls into.
// Every transaction maps to exactly one Category; Warning is the
// explicit catch-all so no exchange-side label can fail silently.
type Category int

const (
	// Revenue is disposal proceeds: crypto exchanged for fiat (art. 17 ust. 1f updof).
	Revenue Category = iota
	// Cost is acquisition cost or transaction fees (art. 22 ust. 14 updof).
	Cost
	// Income is market-value income from a non-disposal receipt, e.g. staking or airdrop.
	Income
	// Ignored is tax-neutral, e.g. crypto-to-crypto exchange or own-funds movement.
	Ignored
	// Warning is ambiguous or unpriceable and needs manual review.
	Warning
)

func (c Category) String() string {
	switch c {
	case Revenue:
		return "revenue"
	case Cost:
		return "cost"
	case Income:
		return "income"
	case Ignored:
		return "ignored"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// ParseCategory parses a string into a Category.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "revenue":
		return Revenue, nil
	case "cost":
		return Cost, nil
	case "income":
		return Income, nil
	case "ignored":
		return Ignored, nil
	case "warning":
		return Warning, nil
	default:
		return 0, fmt.Errorf("unknown category: %q", s)
	}
}

// Categories lists all categories in report order.
var Categories = []Category{Revenue, Cost, Income, Warning, Ignored}
