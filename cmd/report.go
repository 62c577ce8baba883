package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/google/subcommands"
	"github.com/kmazur/pit38"
	"github.com/kmazur/pit38/binance"
	"github.com/kmazur/pit38/nbp"
	"github.com/kmazur/pit38/renderer"
)

// reportCmd holds the flags for the 'report' subcommand.
type reportCmd struct {
	csvFile string
	outFile string
	year    int
	carried float64
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "compute PIT-38 figures from an exchange export" }
func (*reportCmd) Usage() string {
	return `p38 report -f <export.csv> [-o <report.md>] [-year <YYYY>] [-carried <PLN>]

  Reads a Binance "Generate All Statements" export, classifies every Spot
  transaction of the tax year, values it in PLN through NBP rates and
  Binance hourly closes, and writes the PIT-38 report. Always review the
  manual-review section with a tax advisor before filing.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.csvFile, "f", "Binance.csv", "Exchange export CSV file")
	f.StringVar(&c.outFile, "o", "", "Report output file (defaults to PIT38_<year>.md)")
	f.IntVar(&c.year, "year", 0, "Tax year to settle (defaults to the rules file or built-in year)")
	f.Float64Var(&c.carried, "carried", 0, "Cost excess not deducted in previous years, in PLN (art. 22 ust. 16 updof)")
}

func (c *reportCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rules, err := loadRules(c.year, c.carried)
	if err != nil {
		return fail("Error loading rules: %v", err)
	}
	out := c.outFile
	if out == "" {
		out = fmt.Sprintf("PIT38_%d.md", rules.Year)
	}

	txs, loadStats, err := pit38.LoadCSV(c.csvFile, rules)
	if err != nil {
		var missing *pit38.MissingColumnsError
		switch {
		case errors.As(err, &missing):
			return fail("Export %q is not usable: %v.\nMake sure you download \"Generate All Statements\" from the Binance Download Center.", c.csvFile, missing)
		case errors.Is(err, pit38.ErrNoRows):
			return fail("Nothing to settle: %v.", err)
		default:
			return fail("Error loading export: %v", err)
		}
	}
	log.Printf("loaded %d Spot transactions for %d (%d rows read)", len(txs), rules.Year, loadStats.Read)
	log.Printf("fetching NBP rates and crypto prices, this can take a while")

	rates := nbp.New()
	prices := binance.New(rules)
	classifier := pit38.NewClassifier(rules, rates, prices)

	report := pit38.BuildReport(txs, classifier, rules)
	report.Stats.Malformed = loadStats.Malformed
	report.Stats.RateLookups = rates.Requests()
	report.Stats.PriceLookups = prices.Requests()

	markdown := renderer.ReportMarkdown(report)
	// The file appears only after the whole fold completed; an
	// interrupted run leaves nothing behind.
	if err := pit38.WriteFileAtomic(out, []byte(markdown)); err != nil {
		return fail("Error writing report %q: %v", out, err)
	}

	printMarkdown(markdown)
	log.Printf("report written to %s", out)
	if n := len(report.Warnings); n > 0 {
		log.Printf("%d transactions require manual review; consult the report with a tax advisor", n)
	}
	return subcommands.ExitSuccess
}
