package cmd

import (
	"bytes"
	"context"
	"flag"

	"github.com/google/subcommands"
	md "github.com/nao1215/markdown"
)

// rulesCmd holds the flags for the 'rules' subcommand.
type rulesCmd struct{}

func (*rulesCmd) Name() string     { return "rules" }
func (*rulesCmd) Synopsis() string { return "show the effective classification rule tables" }
func (*rulesCmd) Usage() string {
	return `p38 rules [-rules <overlay.json>]

  Prints the operation vocabularies and symbol sets the classifier will
  apply, after merging any -rules overlay.
`
}

func (*rulesCmd) SetFlags(_ *flag.FlagSet) {}

func (c *rulesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rules, err := loadRules(0, 0)
	if err != nil {
		return fail("Error loading rules: %v", err)
	}

	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("Effective classification rules")
	doc.PlainTextf("Tax year: %d, tax rate: %s, carried costs: %s PLN",
		rules.Year, rules.TaxRate, rules.CarriedCosts)
	doc.H2("Trade operations")
	doc.BulletList(rules.TradeOps...)
	doc.H2("Fee operations")
	doc.BulletList(rules.FeeOps...)
	doc.H2("Taxable income operations")
	doc.BulletList(rules.IncomeOps...)
	doc.H2("Technical operations (tax-neutral)")
	doc.BulletList(rules.TechnicalOps...)
	doc.H2("Fiat currencies")
	doc.BulletList(rules.Fiat...)
	doc.H2("Stablecoins")
	doc.BulletList(rules.Stablecoins...)

	printMarkdown(doc.String())
	return subcommands.ExitSuccess
}
