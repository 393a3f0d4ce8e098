package closing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bokslut/internal/ledger"
	"github.com/odyssey-erp/bokslut/internal/shared"
)

// AccountSummary is one classified account of the reconciliation.
type AccountSummary struct {
	AccountNumber int                 `json:"account_number"`
	AccountName   string              `json:"account_name"`
	Class         ledger.AccountClass `json:"class"`
	Debit         decimal.Decimal     `json:"debit"`
	Credit        decimal.Decimal     `json:"credit"`
	Balance       decimal.Decimal     `json:"balance"`
}

// ReconciliationStatus compares assets against equity and liabilities.
type ReconciliationStatus struct {
	AccountSummary         []AccountSummary `json:"account_summary"`
	TotalAssets            decimal.Decimal  `json:"total_assets"`
	TotalEquityLiabilities decimal.Decimal  `json:"total_equity_liabilities"`
	IsBalanced             bool             `json:"is_balanced"`
	Difference             decimal.Decimal  `json:"difference"`
}

// Reconcile classifies account totals and checks the balance sheet identity.
// An imbalance is reported in the result, not as an error.
func Reconcile(totals []ledger.AccountTotals, table ledger.RangeTable) ReconciliationStatus {
	out := ReconciliationStatus{AccountSummary: make([]AccountSummary, 0, len(totals))}
	for _, t := range totals {
		class := table.Classify(t.AccountNumber)
		row := AccountSummary{
			AccountNumber: t.AccountNumber,
			AccountName:   t.AccountName,
			Class:         class,
			Debit:         t.Debit,
			Credit:        t.Credit,
			Balance:       t.Debit.Sub(t.Credit),
		}
		switch class {
		case ledger.ClassAsset:
			out.TotalAssets = out.TotalAssets.Add(t.Debit.Sub(t.Credit))
		case ledger.ClassEquity, ledger.ClassLiability:
			out.TotalEquityLiabilities = out.TotalEquityLiabilities.Add(t.Credit.Sub(t.Debit))
		}
		out.AccountSummary = append(out.AccountSummary, row)
	}
	sort.Slice(out.AccountSummary, func(i, j int) bool {
		return out.AccountSummary[i].AccountNumber < out.AccountSummary[j].AccountNumber
	})
	out.Difference = out.TotalAssets.Sub(out.TotalEquityLiabilities)
	out.IsBalanced = shared.WithinTolerance(out.TotalAssets, out.TotalEquityLiabilities)
	return out
}
