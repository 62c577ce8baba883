package cmd

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"
	"github.com/kmazur/pit38/binance"
	"github.com/kmazur/pit38/date"
)

// priceCmd holds the flags for the 'price' subcommand.
type priceCmd struct {
	symbol string
	at     string
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "look up one crypto hourly close price in USD" }
func (*priceCmd) Usage() string {
	return `p38 price -s <symbol> [-t <timestamp>]

  Prints the USD valuation the report would apply to the asset at the
  given instant: the hourly close at or before it, triangulated through
  BTC, ETH or BNB when no direct USDT pair exists.
`
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "Asset symbol, e.g. BTC")
	f.StringVar(&c.at, "t", time.Now().UTC().Format("2006-01-02 15:04:05"), "Valuation instant (UTC)")
}

func (c *priceCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.symbol == "" {
		return fail("Missing -s symbol")
	}
	at, err := date.ParseTimestamp(c.at)
	if err != nil {
		return fail("Error parsing timestamp: %v", err)
	}
	rules, err := loadRules(0, 0)
	if err != nil {
		return fail("Error loading rules: %v", err)
	}
	price, ok := binance.New(rules).Price(c.symbol, at)
	if !ok {
		return fail("Cannot price %s automatically: no tradable pair (fiat symbols are valued through NBP rates instead)", c.symbol)
	}
	fmt.Printf("1 %s = %s USD (hourly close at %s)\n", c.symbol, price, date.HourOf(at))
	return subcommands.ExitSuccess
}
