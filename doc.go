// Package pit38 turns a Binance transaction export into the figures a
// Polish taxpayer declares on form PIT-38 for virtual currencies.
//
// Every ledger row is classified into exactly one tax category
// (revenue, cost, income, ignored, warning), valued in PLN using the
// official NBP daily rate for fiat legs and the Binance hourly close
// (through USD) for crypto legs, and folded into the field 34/35
// totals: taxable base, 19% tax due, and the cost excess carried
// forward to the next year (art. 17 ust. 1f, art. 22 ust. 14-16 and
// art. 30b updof).
//
// The package owns the classification and aggregation engine. Remote
// rate and price lookups live in the nbp and binance subpackages,
// report rendering in renderer, and the CLI in cmd.
package pit38
