package pit38

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// LocalCurrency is the fiat currency the tax is declared in.
const LocalCurrency = "PLN"

// PivotCurrency is the reference fiat unit crypto assets are priced in
// before conversion to the local currency.
const PivotCurrency = "USD"

// Rules holds the controlled vocabularies and statutory parameters the
// classifier and aggregator consume. The zero value is not usable; start
// from DefaultRules or LoadRules.
type Rules struct {
	// Year is the tax year to settle.
	Year int `json:"year"`
	// TaxRate is the statutory rate on the taxable base (art. 30b ust. 1a updof).
	TaxRate decimal.Decimal `json:"taxRate"`
	// CarriedCosts is the cost excess not deducted in previous years
	// (art. 22 ust. 16 updof). External scalar, reported by the user.
	CarriedCosts decimal.Decimal `json:"carriedCosts"`

	// TradeOps generate acquisition cost (fiat out) or disposal proceeds (fiat in).
	TradeOps []string `json:"tradeOps"`
	// FeeOps are transaction fees, deductible as costs.
	FeeOps []string `json:"feeOps"`
	// IncomeOps generate taxable income at market value on receipt
	// (staking, savings interest, airdrops; art. 17 ust. 1f updof).
	IncomeOps []string `json:"incomeOps"`
	// TechnicalOps are internal transfers and freezes with no tax effect.
	TechnicalOps []string `json:"technicalOps"`

	// Fiat are the fiat currency symbols; a crypto-to-fiat exchange is the taxable event.
	Fiat []string `json:"fiat"`
	// Stablecoins are treated as pegged 1:1 to the pivot unit and as
	// tax-neutral when exchanged with other crypto (KIS position 2024/2025).
	Stablecoins []string `json:"stablecoins"`

	trade     map[string]bool
	fee       map[string]bool
	income    map[string]bool
	technical map[string]bool
	fiat      map[string]bool
	stable    map[string]bool
}

// DefaultRules returns the rule tables for a Binance "Generate All
// Statements" export. The operation vocabularies track the labels
// Binance has used over the years; new labels fall through to the
// Warning catch-all rather than being misclassified.
func DefaultRules() *Rules {
	r := &Rules{
		Year:         2025,
		TaxRate:      decimal.NewFromFloat(0.19),
		CarriedCosts: decimal.Zero,
		TradeOps: []string{
			"Transaction Spend",
			"Transaction Revenue",
			"Transaction Related",
			"Binance Convert",
			"Buy",
			"Sell",
			"Large OTC trading",
			"P2P Trading",
			"Fiat Deposit",
			"Fiat Withdraw",
		},
		FeeOps: []string{
			"Transaction Fee",
			"Fee",
			"Trading Fee",
		},
		IncomeOps: []string{
			"ETH 2.0 Staking Rewards",
			"Staking Rewards",
			"DOT Staking Rewards",
			"SOL Staking Rewards",
			"ADA Staking Rewards",
			"Simple Earn Flexible Interest",
			"Simple Earn Locked Rewards",
			"Simple Earn Flexible Airdrop",
			"Savings Interest",
			"Savings Distribution",
			"Launchpool Earnings",
			"Launchpool Earnings Distribution",
			"Launchpool Interest",
			"Referral Kickback",
			"Commission History",
			"Commission Rebate",
			"Cash Voucher distribution",
			"Distribution",
			"Mission Reward Distribution",
			"Crypto Box",
			"Token Swap Restitution",
			"Alpha 2.0 Tokens Distribution",
			"Binance Convert Bonus",
			"Auto-Invest Transaction",
		},
		TechnicalOps: []string{
			"Freeze",
			"Unfreeze",
			"Savings purchase",
			"Savings Principal redemption",
			"POS savings purchase",
			"POS savings redemption",
			"Simple Earn Flexible Subscription",
			"Simple Earn Flexible Redemption",
			"Simple Earn Locked Subscription",
			"Simple Earn Locked Redemption",
			"Liquid Swap Add",
			"Liquid Swap Remove",
			"Liquid Swap Rewards",
			"transfer_in",
			"transfer_out",
			"Main and Funding Account Transfer",
			"Fiat Deposit",
			"Deposit",
			"Withdraw",
			"Card Cashback",
			"NFT Transaction",
			"NFT Gas Fee",
			"Super BNB Mining",
			"Pool Distribution",
			"Dual Investment Subscribe",
			"Dual Investment Settlement",
			"Dual Investment Auto Compound",
		},
		Fiat: []string{
			"PLN", "EUR", "USD", "GBP", "CHF", "BIDR", "BRL",
			"AUD", "TRY", "RUB", "UAH", "NGN", "ZAR",
		},
		Stablecoins: []string{
			"USDT", "USDC", "FDUSD", "BUSD", "DAI",
			"TUSD", "USDP", "GUSD", "PYUSD",
		},
	}
	r.compile()
	return r
}

// LoadRules reads a JSON overlay and merges it over DefaultRules.
// Fields present in the file replace the default wholesale.
func LoadRules(path string) (*Rules, error) {
	r := DefaultRules()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read rules file %q: %w", path, err)
	}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("cannot parse rules file %q: %w", path, err)
	}
	r.compile()
	return r, nil
}

func (r *Rules) compile() {
	r.trade = toSet(r.TradeOps)
	r.fee = toSet(r.FeeOps)
	r.income = toSet(r.IncomeOps)
	r.technical = toSet(r.TechnicalOps)
	r.fiat = toSet(r.Fiat)
	r.stable = toSet(r.Stablecoins)
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, i := range items {
		s[i] = true
	}
	return s
}

func (r *Rules) IsTrade(op string) bool     { return r.trade[op] }
func (r *Rules) IsFee(op string) bool       { return r.fee[op] }
func (r *Rules) IsIncome(op string) bool    { return r.income[op] }
func (r *Rules) IsTechnical(op string) bool { return r.technical[op] }
func (r *Rules) IsFiat(symbol string) bool  { return r.fiat[strings.ToUpper(symbol)] }
func (r *Rules) IsStablecoin(symbol string) bool {
	return r.stable[strings.ToUpper(symbol)]
}

// IsDustConversion matches Binance dust sweeps ("Small Assets Exchange
// BNB" and label variants).
func (r *Rules) IsDustConversion(op string) bool {
	return strings.Contains(strings.ToLower(op), "small assets exchange")
}
