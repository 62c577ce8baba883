package pit38

import (
	"fmt"
	"time"

	"github.com/kmazur/pit38/date"
	"github.com/shopspring/decimal"
)

// RateSource resolves the official daily rate of a fiat currency to PLN
// as of a transaction date. Implementations apply the day-preceding rule
// of art. 22 ust. 1 updof internally.
type RateSource interface {
	Rate(currency string, asOf date.Date) (decimal.Decimal, error)
}

// PriceSource resolves the hourly close price of a crypto asset in the
// pivot currency. ok=false means the asset cannot be priced
// automatically; it is a legitimate terminal state, not a failure.
type PriceSource interface {
	Price(symbol string, at time.Time) (price decimal.Decimal, ok bool)
}

// Record is one classified, valued transaction. It is a pure projection
// of a Transaction: created once, never mutated.
type Record struct {
	Tx       Transaction
	Category Category
	Value    Money           // value in PLN, zero for ignored/warning rows
	Rate     decimal.Decimal // NBP rate applied, zero if none
	Price    decimal.Decimal // pivot price applied, zero if none
	Basis    string          // legal basis tag
	Note     string          // rationale or manual-review reason
}

// Classifier maps normalized transactions to Records. It owns no mutable
// state; it is a pure function of (row, resolver capability).
type Classifier struct {
	rules  *Rules
	rates  RateSource
	prices PriceSource
}

func NewClassifier(rules *Rules, rates RateSource, prices PriceSource) *Classifier {
	return &Classifier{rules: rules, rates: rates, prices: prices}
}

// Fiat deposit/withdraw labels handled by the own-funds branch. Some of
// them also appear in the trade set; the trade branch wins because it
// runs first, and that ordering is part of the classification contract.
var (
	depositOps  = map[string]bool{"Deposit": true, "Fiat Deposit": true}
	withdrawOps = map[string]bool{"Withdraw": true, "Fiat Withdraw": true}
)

// Classify returns exactly one Record for any transaction; the final
// branch is a catch-all, so no exchange-side label is ever unhandled.
// Branch order is first-match-wins and must not be reordered.
func (c *Classifier) Classify(tx Transaction) Record {
	isFiat := c.rules.IsFiat(tx.Asset)
	isStable := c.rules.IsStablecoin(tx.Asset)

	switch {
	// 1. Trade operations (buy/sell/convert).
	case c.rules.IsTrade(tx.Operation):
		switch {
		case isFiat && tx.Outflow():
			// Fiat out, crypto in: acquisition cost.
			return c.valueFiat(tx, Cost,
				fmt.Sprintf("acquisition cost — %s", tx.Operation),
				"art. 22 ust. 14 updof")
		case isFiat && tx.Inflow():
			// Fiat in for crypto: disposal proceeds.
			return c.valueFiat(tx, Revenue,
				fmt.Sprintf("disposal proceeds — %s", tx.Operation),
				"art. 17 ust. 1f updof")
		default:
			reason := "crypto-to-crypto exchange, tax-neutral (art. 17 ust. 1f updof)"
			if isStable {
				reason = "crypto-to-stablecoin exchange, tax-neutral (KIS position 2024/2025)"
			}
			return ignored(tx, reason)
		}

	// 2. Transaction fees, deductible as cost (art. 22 ust. 14 updof).
	case c.rules.IsFee(tx.Operation):
		if isFiat {
			return c.valueFiat(tx, Cost,
				fmt.Sprintf("fee (%s)", tx.Asset), "art. 22 ust. 14 updof")
		}
		rec, ok := c.valueCrypto(tx, Cost,
			fmt.Sprintf("crypto fee (%s→%s→%s)", tx.Asset, PivotCurrency, LocalCurrency),
			"art. 22 ust. 14 updof")
		if !ok {
			return warning(tx, fmt.Sprintf(
				"fee in %s could not be auto-priced (no tradable pair); value it manually and add to costs", tx.Asset))
		}
		return rec

	// 3. Earn income (staking, savings, launchpool, airdrops): market
	// value on the day of receipt is taxable income and becomes the
	// acquisition cost on a later disposal.
	case c.rules.IsIncome(tx.Operation) && tx.Inflow():
		rec, ok := c.valueCrypto(tx, Income,
			fmt.Sprintf("earn/staking income — %s", tx.Operation),
			"art. 17 ust. 1f updof — market value on receipt")
		if !ok {
			return warning(tx, fmt.Sprintf(
				"income from %s in %s could not be auto-priced; value it manually (price of %s on %s) and add to revenues",
				tx.Operation, tx.Asset, tx.Asset, tx.Time.Format(date.DateFormat)))
		}
		if rec.Category == Income {
			rec.Note += "; this PLN value is your acquisition cost when this crypto is later sold"
		}
		return rec

	// 4. Dust conversion (Small Assets Exchange → BNB): crypto-to-crypto,
	// neutral, but flagged because a dust sweep ending in fiat needs a
	// manual correction.
	case c.rules.IsDustConversion(tx.Operation):
		return ignored(tx, "dust conversion to BNB (crypto-to-crypto, neutral); if dust was exchanged for fiat this needs manual correction")

	// 5. Internal transfers and technical operations.
	case c.rules.IsTechnical(tx.Operation):
		return ignored(tx, fmt.Sprintf("technical operation (%s), no tax effect", tx.Operation))

	// 6. Fiat deposits and withdrawals: movement of own funds.
	case isFiat && depositOps[tx.Operation]:
		return ignored(tx, "deposit of own fiat funds")
	case isFiat && withdrawOps[tx.Operation]:
		return ignored(tx, "withdrawal of funds to a bank account")

	// 7. Everything else requires manual review.
	default:
		return warning(tx, fmt.Sprintf(
			"unknown operation %q for %s; requires manual tax classification", tx.Operation, tx.Asset))
	}
}

// valueFiat values the transaction quantity through the official daily
// rate. A rate miss inside the fallback window demotes the row to a
// Warning; it never aborts the run.
func (c *Classifier) valueFiat(tx Transaction, cat Category, typ, basis string) Record {
	rate, err := c.rates.Rate(tx.Asset, date.Of(tx.Time))
	if err != nil {
		return warning(tx, fmt.Sprintf("rate unavailable: %v", err))
	}
	return Record{
		Tx:       tx,
		Category: cat,
		Value:    PLN(tx.Quantity().Mul(rate)),
		Rate:     rate,
		Basis:    basis,
		Note:     typ,
	}
}

// valueCrypto values the transaction through the pivot chain:
// quantity × hourly pivot price × pivot-to-PLN rate.
func (c *Classifier) valueCrypto(tx Transaction, cat Category, typ, basis string) (Record, bool) {
	price, ok := c.prices.Price(tx.Asset, tx.Time)
	if !ok {
		return Record{}, false
	}
	rate, err := c.rates.Rate(PivotCurrency, date.Of(tx.Time))
	if err != nil {
		return warning(tx, fmt.Sprintf("%s rate unavailable: %v", PivotCurrency, err)), true
	}
	return Record{
		Tx:       tx,
		Category: cat,
		Value:    PLN(tx.Quantity().Mul(price).Mul(rate)),
		Rate:     rate,
		Price:    price,
		Basis:    basis,
		Note:     typ,
	}, true
}

func ignored(tx Transaction, reason string) Record {
	return Record{Tx: tx, Category: Ignored, Value: PLN(0), Note: reason}
}

func warning(tx Transaction, reason string) Record {
	return Record{Tx: tx, Category: Warning, Value: PLN(0), Note: reason}
}
