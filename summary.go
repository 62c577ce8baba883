package pit38

// Summary holds the aggregate PIT-38 figures for one tax year.
//
// Receipts and costs are kept exact; only the taxable base and the tax
// due are rounded, each independently half-up to whole złoty
// (art. 30b ust. 1a updof). Rounding the base first and the tax from the
// rounded base, rather than compounding, is required for the declared
// figures to match the tax office's arithmetic.
type Summary struct {
	Year int

	SaleRevenue  Money // crypto→fiat disposals (part of field 34)
	EarnRevenue  Money // staking/earn income (part of field 34)
	TotalRevenue Money // field 34
	CurrentCosts Money // costs incurred this year
	CarriedCosts Money // excess carried from previous years (art. 22 ust. 16 updof)
	TotalCosts   Money // field 35
	Profit       Money // max(0, revenue − costs), unrounded
	TaxableBase  int64 // whole złoty, half-up, never negative
	TaxDue       int64 // whole złoty, half-up, never negative
	CarryForward Money // max(0, costs − revenue), unrounded, next year's input
}

// Summarize folds classified records into the final tax figures. It is a
// pure function: same records and rules always produce the same summary.
func Summarize(records []Record, rules *Rules) *Summary {
	s := &Summary{
		Year:         rules.Year,
		SaleRevenue:  PLN(0),
		EarnRevenue:  PLN(0),
		CurrentCosts: PLN(0),
		CarriedCosts: PLN(rules.CarriedCosts),
	}

	for _, r := range records {
		switch r.Category {
		case Revenue:
			s.SaleRevenue = s.SaleRevenue.Add(r.Value)
		case Income:
			s.EarnRevenue = s.EarnRevenue.Add(r.Value)
		case Cost:
			s.CurrentCosts = s.CurrentCosts.Add(r.Value)
		}
	}

	s.TotalRevenue = s.SaleRevenue.Add(s.EarnRevenue)
	s.TotalCosts = s.CurrentCosts.Add(s.CarriedCosts)

	profit := s.TotalRevenue.Sub(s.TotalCosts)
	excess := s.TotalCosts.Sub(s.TotalRevenue)
	if profit.IsNegative() {
		profit = PLN(0)
	}
	if excess.IsNegative() {
		excess = PLN(0)
	}
	s.Profit = profit
	s.CarryForward = excess

	s.TaxableBase = profit.RoundWhole()
	s.TaxDue = PLN(s.TaxableBase).Mul(rules.TaxRate).RoundWhole()
	return s
}
