package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/kmazur/pit38/date"
	"github.com/kmazur/pit38/nbp"
)

// rateCmd holds the flags for the 'rate' subcommand.
type rateCmd struct {
	currency string
	day      string
}

func (*rateCmd) Name() string     { return "rate" }
func (*rateCmd) Synopsis() string { return "look up one NBP daily rate as used for valuation" }
func (*rateCmd) Usage() string {
	return `p38 rate -c <currency> [-d <date>]

  Prints the PLN rate the report would apply to a transaction on the
  given date: the last rate published strictly before it, walking back
  over weekends and holidays.
`
}

func (c *rateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "c", "USD", "Fiat currency code (NBP table A)")
	f.StringVar(&c.day, "d", date.Today().String(), "Transaction date")
}

func (c *rateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	asOf, err := date.Parse(c.day)
	if err != nil {
		return fail("Error parsing date: %v", err)
	}
	rate, err := nbp.New().Rate(c.currency, asOf)
	if err != nil {
		return fail("Error: %v", err)
	}
	fmt.Printf("1 %s = %s PLN (as of %s)\n", c.currency, rate, asOf)
	return subcommands.ExitSuccess
}
