package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"google.golang.org/genai"
)

// assistCmd holds the flags for the 'assist' subcommand.
type assistCmd struct {
	reportFile string
	model      string
}

func (*assistCmd) Name() string     { return "assist" }
func (*assistCmd) Synopsis() string { return "explain a generated report in plain language" }
func (*assistCmd) Usage() string {
	return `p38 assist -f <report.md>

  Sends a generated report to Gemini and prints a plain-language
  explanation of the figures and of what still needs manual review.
  Requires the GEMINI_API_KEY environment variable. The explanation is
  not tax advice.
`
}

func (c *assistCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.reportFile, "f", "", "Report file produced by 'p38 report'")
	f.StringVar(&c.model, "model", "gemini-2.5-flash", "Gemini model to use")
}

func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.reportFile == "" {
		return fail("Missing -f report file")
	}
	report, err := os.ReadFile(c.reportFile)
	if err != nil {
		return fail("Error reading report: %v", err)
	}

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return fail("Error initializing Gemini client: %v", err)
	}

	prompt := fmt.Sprintf(`The following is a Polish PIT-38 virtual-currency tax report
generated from an exchange export. Explain in plain language what the
taxpayer will declare (fields 34 and 35, taxable base, tax due, carried
cost excess), and summarize which rows need manual review and why.
Do not give tax advice beyond what the report contains.

%s`, report)

	resp, err := client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return fail("Gemini request failed: %v", err)
	}
	printMarkdown(resp.Text())
	return subcommands.ExitSuccess
}
