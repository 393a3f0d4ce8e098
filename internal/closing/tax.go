package closing

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bokslut/internal/ledger"
	"github.com/odyssey-erp/bokslut/internal/shared"
)

// DefaultTaxRate is the Swedish corporate income tax rate.
var DefaultTaxRate = decimal.RequireFromString("0.206")

// TaxCalculation is the corporate tax estimate of a period.
type TaxCalculation struct {
	Revenue         decimal.Decimal `json:"revenue"`
	Expenses        decimal.Decimal `json:"expenses"`
	ProfitBeforeTax decimal.Decimal `json:"profit_before_tax"`
	TaxableProfit   decimal.Decimal `json:"taxable_profit"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	CalculatedTax   decimal.Decimal `json:"calculated_tax"`
	ProfitAfterTax  decimal.Decimal `json:"profit_after_tax"`
}

// EstimateTax derives profit and tax from revenue and expense accounts.
// A loss yields zero tax.
func EstimateTax(totals []ledger.AccountTotals, table ledger.RangeTable, rate decimal.Decimal) TaxCalculation {
	var revenue, expenses decimal.Decimal
	for _, t := range totals {
		switch table.Classify(t.AccountNumber) {
		case ledger.ClassRevenue:
			revenue = revenue.Add(t.Credit.Sub(t.Debit))
		case ledger.ClassExpense:
			expenses = expenses.Add(t.Debit.Sub(t.Credit))
		}
	}
	profit := revenue.Sub(expenses)
	taxable := decimal.Max(decimal.Zero, profit)
	tax := shared.Round2(taxable.Mul(rate))
	return TaxCalculation{
		Revenue:         revenue,
		Expenses:        expenses,
		ProfitBeforeTax: profit,
		TaxableProfit:   taxable,
		TaxRate:         rate,
		CalculatedTax:   tax,
		ProfitAfterTax:  profit.Sub(tax),
	}
}
