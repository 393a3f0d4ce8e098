package ledger

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bokslut/internal/shared"
)

// TrialBalanceAccount represents a row inside a trial balance group.
type TrialBalanceAccount struct {
	AccountNumber int             `json:"account_number"`
	AccountName   string          `json:"account_name"`
	Class         AccountClass    `json:"class"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Balance       decimal.Decimal `json:"balance"`
}

// TrialBalanceGroup aggregates accounts of one BAS account class (first digit).
type TrialBalanceGroup struct {
	Key      string                `json:"key"`
	Accounts []TrialBalanceAccount `json:"accounts"`
	Debit    decimal.Decimal       `json:"debit"`
	Credit   decimal.Decimal       `json:"credit"`
	Balance  decimal.Decimal       `json:"balance"`
}

// TrialBalance is the per-period trial balance.
type TrialBalance struct {
	Groups      []TrialBalanceGroup `json:"groups"`
	TotalDebit  decimal.Decimal     `json:"total_debit"`
	TotalCredit decimal.Decimal     `json:"total_credit"`
	Balanced    bool                `json:"balanced"`
}

// BuildTrialBalance converts account totals into grouped trial balance data.
// Balances are debit minus credit.
func BuildTrialBalance(totals []AccountTotals, table RangeTable) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, acc := range totals {
		key := groupKey(acc.AccountNumber)
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key}
			groups[key] = grp
			keys = append(keys, key)
		}
		row := TrialBalanceAccount{
			AccountNumber: acc.AccountNumber,
			AccountName:   acc.AccountName,
			Class:         table.Classify(acc.AccountNumber),
			Debit:         acc.Debit,
			Credit:        acc.Credit,
			Balance:       acc.Debit.Sub(acc.Credit),
		}
		grp.Accounts = append(grp.Accounts, row)
		grp.Debit = grp.Debit.Add(row.Debit)
		grp.Credit = grp.Credit.Add(row.Credit)
		grp.Balance = grp.Balance.Add(row.Balance)
	}

	sort.Strings(keys)
	result := TrialBalance{}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Accounts, func(i, j int) bool {
			return grp.Accounts[i].AccountNumber < grp.Accounts[j].AccountNumber
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalDebit = result.TotalDebit.Add(grp.Debit)
		result.TotalCredit = result.TotalCredit.Add(grp.Credit)
	}
	result.Balanced = shared.WithinTolerance(result.TotalDebit, result.TotalCredit)
	return result
}

func groupKey(account int) string {
	s := strconv.Itoa(account)
	if len(s) == 0 {
		return "0"
	}
	return s[:1]
}
