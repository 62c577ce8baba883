// Package cmd implements the CLI application to settle PIT-38 for
// virtual currencies from an exchange export.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/kmazur/pit38"
	"github.com/shopspring/decimal"
)

// Commands lists the subcommands to register, in help order.
var Commands = []subcommands.Command{
	&reportCmd{},
	&rateCmd{},
	&priceCmd{},
	&rulesCmd{},
	&assistCmd{},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var rulesFile = flag.String("rules", "", "Path to a JSON rules overlay merged over the built-in Binance rule tables")

// loadRules returns the effective rules: built-in defaults, optionally
// overlaid from -rules, with year and carried costs overridden by the
// given values when set.
func loadRules(year int, carried float64) (*pit38.Rules, error) {
	rules := pit38.DefaultRules()
	if *rulesFile != "" {
		var err error
		rules, err = pit38.LoadRules(*rulesFile)
		if err != nil {
			return nil, err
		}
	}
	if year != 0 {
		rules.Year = year
	}
	if carried != 0 {
		rules.CarriedCosts = decimal.NewFromFloat(carried)
	}
	return rules, nil
}

// printMarkdown renders markdown for the terminal. On any rendering
// problem the raw markdown is still usable output.
func printMarkdown(markdown string) {
	out, err := glamour.Render(markdown, "auto")
	if err != nil {
		fmt.Print(markdown)
		return
	}
	fmt.Print(out)
}

func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitFailure
}
