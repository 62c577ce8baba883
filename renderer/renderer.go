// Package renderer produces the markdown tax report. Layout is a
// rendering concern: the figures come ready-made from the pit38 package.
package renderer

import (
	"bytes"
	"fmt"

	"github.com/kmazur/pit38"
	md "github.com/nao1215/markdown"
	"github.com/shopspring/decimal"
)

// Section titles, one per category, in report order.
var sectionTitles = map[pit38.Category]string{
	pit38.Revenue: "Field 34 — Disposal proceeds (art. 17 ust. 1f updof)",
	pit38.Cost:    "Field 35 — Costs (art. 22 ust. 14-16 updof)",
	pit38.Income:  "Field 34 — Earn and staking income",
	pit38.Warning: "Manual review required",
	pit38.Ignored: "Ignored (tax-neutral)",
}

// ReportMarkdown renders the complete report: the summary with the
// PIT-38 figures and run statistics, then one section per non-empty
// category.
func ReportMarkdown(r *pit38.Report) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	s := r.Summary
	doc.H1(fmt.Sprintf("PIT-38 %d — virtual currencies", s.Year))

	doc.H2("Summary")
	doc.Table(md.TableSet{
		Header: []string{"Item", "PLN"},
		Rows: [][]string{
			{"Field 34 — disposal proceeds (crypto→fiat)", s.SaleRevenue.StringFixed(2)},
			{"Field 34 — earn/staking income", s.EarnRevenue.StringFixed(2)},
			{"**Field 34 total**", s.TotalRevenue.StringFixed(2)},
			{fmt.Sprintf("Field 35 — costs incurred in %d", s.Year), s.CurrentCosts.StringFixed(2)},
			{"Field 35 — cost excess carried from previous years", s.CarriedCosts.StringFixed(2)},
			{"**Field 35 total**", s.TotalCosts.StringFixed(2)},
			{"Profit (field 34 − field 35)", s.Profit.StringFixed(2)},
			{"**Taxable base (whole PLN)**", fmt.Sprint(s.TaxableBase)},
			{"**Tax due 19% (whole PLN)**", fmt.Sprint(s.TaxDue)},
			{"Cost excess carried to next year", s.CarryForward.StringFixed(2)},
		},
	})
	if s.CarryForward.IsPositive() {
		doc.PlainText(fmt.Sprintf(
			"Enter %s PLN as the carried cost excess in the %d settlement (art. 22 ust. 16 updof).",
			s.CarryForward.StringFixed(2), s.Year+1))
	}

	doc.H2("Statistics")
	doc.Table(md.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Transactions processed", fmt.Sprint(r.Stats.Processed)},
			{"Revenue records", fmt.Sprint(len(r.Revenues))},
			{"Cost records", fmt.Sprint(len(r.Costs))},
			{"Earn/staking records", fmt.Sprint(len(r.Incomes))},
			{"Manual-review records", fmt.Sprint(len(r.Warnings))},
			{"Ignored records", fmt.Sprint(len(r.Ignored))},
			{"Malformed rows dropped", fmt.Sprint(r.Stats.Malformed)},
			{"Processing errors", fmt.Sprint(r.Stats.Errors)},
			{"NBP API requests", fmt.Sprint(r.Stats.RateLookups)},
			{"Binance klines requests", fmt.Sprint(r.Stats.PriceLookups)},
		},
	})

	for _, cat := range pit38.Categories {
		records := r.Records(cat)
		if len(records) == 0 {
			continue
		}
		doc.H2(sectionTitles[cat])
		doc.Table(recordTable(cat, records))
	}

	return doc.String()
}

// recordTable lays out one category section. Valued categories show the
// rates used; ignored and warning rows show the rationale instead.
func recordTable(cat pit38.Category, records []pit38.Record) md.TableSet {
	valued := cat == pit38.Revenue || cat == pit38.Cost || cat == pit38.Income
	header := []string{"Date", "Operation", "Asset", "Quantity"}
	if valued {
		header = append(header, "Rate", "Price USD", "Value PLN", "Basis")
	}
	header = append(header, "Note")

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := []string{
			rec.Tx.Time.Format("2006-01-02 15:04:05"),
			rec.Tx.Operation,
			rec.Tx.Asset,
			rec.Tx.Change.String(),
		}
		if valued {
			row = append(row,
				dec(rec.Rate),
				dec(rec.Price),
				rec.Value.StringFixed(6),
				rec.Basis,
			)
		}
		row = append(row, rec.Note)
		rows = append(rows, row)
	}
	return md.TableSet{Header: header, Rows: rows}
}

func dec(d decimal.Decimal) string {
	if d.IsZero() {
		return "-"
	}
	return d.String()
}
