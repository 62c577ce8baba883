package pit38

import (
	"strings"
	"testing"
	"time"

	"github.com/kmazur/pit38/date"
	"github.com/shopspring/decimal"
)

// stubRates resolves from a fixed table; PLN is always 1 like the real client.
type stubRates struct {
	rates map[string]float64
	calls int
	fail  bool
}

func (s *stubRates) Rate(currency string, asOf date.Date) (decimal.Decimal, error) {
	s.calls++
	if currency == "PLN" {
		return decimal.NewFromInt(1), nil
	}
	if s.fail {
		return decimal.Decimal{}, &fakeRateError{currency}
	}
	if r, ok := s.rates[currency]; ok {
		return decimal.NewFromFloat(r), nil
	}
	return decimal.Decimal{}, &fakeRateError{currency}
}

type fakeRateError struct{ currency string }

func (e *fakeRateError) Error() string { return "no rate for " + e.currency }

// stubPrices resolves from a fixed table; absent symbols are unpriceable.
type stubPrices struct {
	prices map[string]float64
	calls  int
}

func (s *stubPrices) Price(symbol string, at time.Time) (decimal.Decimal, bool) {
	s.calls++
	if p, ok := s.prices[symbol]; ok {
		return decimal.NewFromFloat(p), true
	}
	return decimal.Decimal{}, false
}

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

func tx(op, asset string, change float64) Transaction {
	return Transaction{
		Time:      at("2025-03-10 14:30:00"),
		Operation: op,
		Asset:     asset,
		Change:    decimal.NewFromFloat(change),
		Account:   "Spot",
	}
}

func testClassifier(rates *stubRates, prices *stubPrices) *Classifier {
	if rates == nil {
		rates = &stubRates{rates: map[string]float64{"USD": 4, "EUR": 4.3}}
	}
	if prices == nil {
		prices = &stubPrices{prices: map[string]float64{"BTC": 50000, "BNB": 600}}
	}
	return NewClassifier(DefaultRules(), rates, prices)
}

func TestClassifyFiatOutflowIsCost(t *testing.T) {
	c := testClassifier(nil, nil)
	rec := c.Classify(tx("Transaction Spend", "PLN", -1000))
	if rec.Category != Cost {
		t.Fatalf("Category = %s, want cost", rec.Category)
	}
	if !rec.Value.Equal(PLN(1000)) {
		t.Errorf("Value = %s, want exactly 1000 PLN", rec.Value.Decimal())
	}
	if rec.Basis != "art. 22 ust. 14 updof" {
		t.Errorf("Basis = %q", rec.Basis)
	}
}

func TestClassifyFiatInflowIsRevenue(t *testing.T) {
	c := testClassifier(&stubRates{rates: map[string]float64{"EUR": 4.3}}, nil)
	rec := c.Classify(tx("Sell", "EUR", 100))
	if rec.Category != Revenue {
		t.Fatalf("Category = %s, want revenue", rec.Category)
	}
	if !rec.Value.Equal(PLN(430)) {
		t.Errorf("Value = %s, want 430", rec.Value.Decimal())
	}
	if rec.Basis != "art. 17 ust. 1f updof" {
		t.Errorf("Basis = %q", rec.Basis)
	}
}

func TestClassifyCryptoToStablecoinIsIgnored(t *testing.T) {
	c := testClassifier(nil, nil)

	// Stablecoin leg of a convert: never revenue or cost.
	rec := c.Classify(tx("Binance Convert", "USDT", 500))
	if rec.Category != Ignored {
		t.Fatalf("Category = %s, want ignored", rec.Category)
	}
	if !strings.Contains(rec.Note, "stablecoin") {
		t.Errorf("Note should mention stablecoin: %q", rec.Note)
	}

	// Pure crypto leg has a distinct rationale.
	rec = c.Classify(tx("Binance Convert", "BTC", -0.1))
	if rec.Category != Ignored {
		t.Fatalf("Category = %s, want ignored", rec.Category)
	}
	if strings.Contains(rec.Note, "stablecoin") || !strings.Contains(rec.Note, "crypto-to-crypto") {
		t.Errorf("crypto leg rationale wrong: %q", rec.Note)
	}
}

func TestClassifyCryptoFeeIsCostThroughPivot(t *testing.T) {
	rates := &stubRates{rates: map[string]float64{"USD": 4}}
	prices := &stubPrices{prices: map[string]float64{"BNB": 600}}
	c := testClassifier(rates, prices)

	rec := c.Classify(tx("Transaction Fee", "BNB", -0.01))
	if rec.Category != Cost {
		t.Fatalf("Category = %s, want cost", rec.Category)
	}
	// 0.01 × 600 USD × 4 PLN/USD = 24 PLN
	if !rec.Value.Equal(PLN(24)) {
		t.Errorf("Value = %s, want 24", rec.Value.Decimal())
	}
}

func TestClassifyUnpriceableFeeIsWarning(t *testing.T) {
	c := testClassifier(nil, &stubPrices{})
	rec := c.Classify(tx("Transaction Fee", "OBSCURE", -5))
	if rec.Category != Warning {
		t.Fatalf("Category = %s, want warning", rec.Category)
	}
	if !strings.Contains(rec.Note, "manually") {
		t.Errorf("Note should request manual valuation: %q", rec.Note)
	}
}

func TestClassifyIncomeValuedThroughPivot(t *testing.T) {
	rates := &stubRates{rates: map[string]float64{"USD": 4}}
	prices := &stubPrices{prices: map[string]float64{"DOT": 2.5}}
	c := testClassifier(rates, prices)

	rec := c.Classify(tx("Staking Rewards", "DOT", 10))
	if rec.Category != Income {
		t.Fatalf("Category = %s, want income", rec.Category)
	}
	// 10 × 2.5 USD × 4 PLN/USD = 100 PLN
	if !rec.Value.Equal(PLN(100)) {
		t.Errorf("Value = %s, want 100", rec.Value.Decimal())
	}
	// The note keeps the income rationale and the cost-basis caveat:
	// the value doubles as the future disposal cost basis.
	if !strings.Contains(rec.Note, "earn/staking income — Staking Rewards") {
		t.Errorf("Note lost the income rationale: %q", rec.Note)
	}
	if !strings.Contains(rec.Note, "acquisition cost") {
		t.Errorf("Note should carry the cost-basis annotation: %q", rec.Note)
	}
}

func TestClassifyUnpriceableIncomeIsWarning(t *testing.T) {
	c := testClassifier(nil, &stubPrices{})
	rec := c.Classify(tx("Distribution", "OBSCURE", 3))
	if rec.Category != Warning {
		t.Fatalf("Category = %s, want warning", rec.Category)
	}
}

func TestClassifyIncomeOutflowFallsThrough(t *testing.T) {
	// The income branch requires an inflow; an outflow under an income
	// label is ambiguous and must reach the catch-all.
	c := testClassifier(nil, nil)
	rec := c.Classify(tx("Staking Rewards", "DOT", -10))
	if rec.Category != Warning {
		t.Fatalf("Category = %s, want warning", rec.Category)
	}
}

func TestClassifyDustConversion(t *testing.T) {
	c := testClassifier(nil, nil)
	rec := c.Classify(tx("Small assets exchange BNB", "DUST", -0.001))
	if rec.Category != Ignored {
		t.Fatalf("Category = %s, want ignored", rec.Category)
	}
	if !strings.Contains(rec.Note, "manual correction") {
		t.Errorf("Note should carry the fiat-sweep caveat: %q", rec.Note)
	}
}

func TestClassifyTechnicalAndOwnFunds(t *testing.T) {
	c := testClassifier(nil, nil)

	if rec := c.Classify(tx("Freeze", "BTC", -1)); rec.Category != Ignored {
		t.Errorf("Freeze: Category = %s, want ignored", rec.Category)
	}
	// "Withdraw" is technical for crypto but the own-funds branch for fiat
	// never gets a chance: the technical set matches first. Preserved as-is.
	if rec := c.Classify(tx("Withdraw", "PLN", -100)); rec.Category != Ignored {
		t.Errorf("Withdraw: Category = %s, want ignored", rec.Category)
	}
}

func TestClassifyUnknownOperationIsWarning(t *testing.T) {
	c := testClassifier(nil, nil)
	rec := c.Classify(tx("Quantum Yield Boost", "XYZ", 1))
	if rec.Category != Warning {
		t.Fatalf("Category = %s, want warning", rec.Category)
	}
	if !strings.Contains(rec.Note, "unknown operation") {
		t.Errorf("Note = %q", rec.Note)
	}
}

// Labels present in more than one rule table must resolve to the same
// branch as the original rule order: the trade set always wins.
func TestClassifyOverlapWinners(t *testing.T) {
	c := testClassifier(nil, nil)
	r := DefaultRules()

	var overlapping []string
	for _, op := range r.TradeOps {
		if r.IsTechnical(op) {
			overlapping = append(overlapping, op)
		}
	}
	if len(overlapping) == 0 {
		t.Fatal("expected overlapping labels between trade and technical sets")
	}

	for _, op := range overlapping {
		// A fiat inflow under an overlapping label takes the trade branch
		// (Revenue), not the technical or own-funds branch.
		rec := c.Classify(tx(op, "PLN", 100))
		if rec.Category != Revenue {
			t.Errorf("%q fiat inflow: Category = %s, want revenue (trade branch wins)", op, rec.Category)
		}
		// A crypto leg under the same label is neutral via the trade branch.
		rec = c.Classify(tx(op, "BTC", -1))
		if rec.Category != Ignored {
			t.Errorf("%q crypto leg: Category = %s, want ignored", op, rec.Category)
		}
	}
}

// Every (label, asset kind, direction) combination yields exactly one
// category; no input reaches an unhandled case.
func TestClassifyTotality(t *testing.T) {
	r := DefaultRules()
	c := testClassifier(nil, nil)

	var ops []string
	ops = append(ops, r.TradeOps...)
	ops = append(ops, r.FeeOps...)
	ops = append(ops, r.IncomeOps...)
	ops = append(ops, r.TechnicalOps...)
	ops = append(ops, "Small assets exchange BNB", "Totally Unknown Op")

	assets := []string{"PLN", "EUR", "USDT", "BTC", "OBSCURE"}
	changes := []float64{1, -1}

	for _, op := range ops {
		for _, asset := range assets {
			for _, change := range changes {
				rec := c.Classify(tx(op, asset, change))
				switch rec.Category {
				case Revenue, Cost, Income, Ignored, Warning:
				default:
					t.Fatalf("classify(%q, %s, %v) = invalid category %d", op, asset, change, rec.Category)
				}
			}
		}
	}
}

func TestClassifyRateUnavailableIsWarning(t *testing.T) {
	c := testClassifier(&stubRates{fail: true}, nil)
	rec := c.Classify(tx("Buy", "EUR", -1000))
	if rec.Category != Warning {
		t.Fatalf("Category = %s, want warning", rec.Category)
	}
	if !strings.Contains(rec.Note, "rate unavailable") {
		t.Errorf("Note should carry the cause: %q", rec.Note)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	c := testClassifier(nil, nil)
	row := tx("Transaction Spend", "PLN", -123.456789)
	a := c.Classify(row)
	b := c.Classify(row)
	if !a.Value.Equal(b.Value) || a.Category != b.Category {
		t.Errorf("classification not idempotent: %v vs %v", a.Value.Decimal(), b.Value.Decimal())
	}
}
