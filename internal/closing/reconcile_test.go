package closing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bokslut/internal/ledger"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestReconcileBalanced(t *testing.T) {
	totals := []ledger.AccountTotals{
		{AccountNumber: 2440, AccountName: "Leverantörsskulder", Credit: d("400")},
		{AccountNumber: 1930, AccountName: "Företagskonto", Debit: d("1500"), Credit: d("200")},
		{AccountNumber: 1510, AccountName: "Kundfordringar", Debit: d("100")},
		{AccountNumber: 2081, AccountName: "Aktiekapital", Credit: d("1000")},
		{AccountNumber: 3041, Credit: d("900")},
		{AccountNumber: 5010, Debit: d("900")},
	}
	rec := Reconcile(totals, ledger.DefaultRangeTable())

	require.True(t, rec.TotalAssets.Equal(d("1400")))
	require.True(t, rec.TotalEquityLiabilities.Equal(d("1400")))
	require.True(t, rec.Difference.IsZero())
	require.True(t, rec.IsBalanced)
	require.Len(t, rec.AccountSummary, 6)
	require.Equal(t, 1510, rec.AccountSummary[0].AccountNumber)
	require.Equal(t, ledger.ClassLiability, rec.AccountSummary[3].Class)
}

func TestReconcileSplitsEquityAndLiabilitiesAt2100(t *testing.T) {
	table := ledger.DefaultRangeTable()
	rec := Reconcile([]ledger.AccountTotals{
		{AccountNumber: 2099, Credit: d("10")},
		{AccountNumber: 2100, Credit: d("20")},
	}, table)
	require.Equal(t, ledger.ClassEquity, rec.AccountSummary[0].Class)
	require.Equal(t, ledger.ClassLiability, rec.AccountSummary[1].Class)
	require.True(t, rec.TotalEquityLiabilities.Equal(d("30")))
}

func TestReconcileReportsImbalanceAsData(t *testing.T) {
	rec := Reconcile([]ledger.AccountTotals{
		{AccountNumber: 1930, Debit: d("100.00")},
		{AccountNumber: 2440, Credit: d("99.99")},
	}, ledger.DefaultRangeTable())
	require.False(t, rec.IsBalanced)
	require.True(t, rec.Difference.Equal(d("0.01")))

	within := Reconcile([]ledger.AccountTotals{
		{AccountNumber: 1930, Debit: d("100.000")},
		{AccountNumber: 2440, Credit: d("99.995")},
	}, ledger.DefaultRangeTable())
	require.True(t, within.IsBalanced)
}

func TestReconcileEmptyPeriod(t *testing.T) {
	rec := Reconcile(nil, ledger.DefaultRangeTable())
	require.True(t, rec.IsBalanced)
	require.NotNil(t, rec.AccountSummary)
}

func TestEstimateTaxProfit(t *testing.T) {
	calc := EstimateTax([]ledger.AccountTotals{
		{AccountNumber: 3041, Credit: d("150000"), Debit: d("5000")},
		{AccountNumber: 3001, Credit: d("20000")},
		{AccountNumber: 5010, Debit: d("40000")},
		{AccountNumber: 7010, Debit: d("25000"), Credit: d("1000")},
		{AccountNumber: 1930, Debit: d("999999")},
	}, ledger.DefaultRangeTable(), DefaultTaxRate)

	require.True(t, calc.Revenue.Equal(d("165000")))
	require.True(t, calc.Expenses.Equal(d("64000")))
	require.True(t, calc.ProfitBeforeTax.Equal(d("101000")))
	require.True(t, calc.TaxableProfit.Equal(d("101000")))
	require.True(t, calc.CalculatedTax.Equal(d("20806")))
	require.True(t, calc.ProfitAfterTax.Equal(d("80194")))
	require.True(t, calc.TaxRate.Equal(d("0.206")))
}

func TestEstimateTaxLossHasNoTax(t *testing.T) {
	calc := EstimateTax([]ledger.AccountTotals{
		{AccountNumber: 3041, Credit: d("1000")},
		{AccountNumber: 6110, Debit: d("2500")},
	}, ledger.DefaultRangeTable(), DefaultTaxRate)
	require.True(t, calc.ProfitBeforeTax.Equal(d("-1500")))
	require.True(t, calc.TaxableProfit.IsZero())
	require.True(t, calc.CalculatedTax.IsZero())
	require.True(t, calc.ProfitAfterTax.Equal(d("-1500")))
}

func TestEstimateTaxRoundsToOre(t *testing.T) {
	calc := EstimateTax([]ledger.AccountTotals{{AccountNumber: 3041, Credit: d("100.03")}}, ledger.DefaultRangeTable(), DefaultTaxRate)
	// 100.03 * 0.206 = 20.60618
	require.True(t, calc.CalculatedTax.Equal(d("20.61")))
}

func TestStatusPredecessor(t *testing.T) {
	from, ok := StatusFinalized.Predecessor()
	require.True(t, ok)
	require.Equal(t, StatusTaxCalculated, from)
	_, ok = StatusNotStarted.Predecessor()
	require.False(t, ok)
	require.False(t, Status("archived").Valid())
}
