package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// AccountClass is the balance-sheet or income-statement category of an account.
type AccountClass string

const (
	ClassAsset        AccountClass = "asset"
	ClassEquity       AccountClass = "equity"
	ClassLiability    AccountClass = "liability"
	ClassRevenue      AccountClass = "revenue"
	ClassExpense      AccountClass = "expense"
	ClassUnclassified AccountClass = "unclassified"
)

func (c AccountClass) valid() bool {
	switch c {
	case ClassAsset, ClassEquity, ClassLiability, ClassRevenue, ClassExpense:
		return true
	}
	return false
}

// AccountRange is an inclusive account-number interval.
type AccountRange struct {
	Min   int          `json:"min"`
	Max   int          `json:"max"`
	Class AccountClass `json:"class,omitempty"`
}

// Contains reports whether account lies inside the range.
func (r AccountRange) Contains(account int) bool {
	return account >= r.Min && account <= r.Max
}

// RangeTable classifies account numbers. It implements envconfig.Decoder so a
// chart-of-accounts variation can be configured as
// "1000-1999:asset,2000-2099:equity,...".
type RangeTable []AccountRange

// DefaultRangeTable follows the BAS chart of accounts.
func DefaultRangeTable() RangeTable {
	return RangeTable{
		{Min: 1000, Max: 1999, Class: ClassAsset},
		{Min: 2000, Max: 2099, Class: ClassEquity},
		{Min: 2100, Max: 2999, Class: ClassLiability},
		{Min: 3000, Max: 3999, Class: ClassRevenue},
		{Min: 4000, Max: 8999, Class: ClassExpense},
	}
}

// Decode parses the textual configuration form.
func (t *RangeTable) Decode(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		*t = DefaultRangeTable()
		return nil
	}
	var table RangeTable
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		bounds, class, ok := strings.Cut(part, ":")
		if !ok {
			return fmt.Errorf("ledger: range %q lacks a class", part)
		}
		lo, hi, ok := strings.Cut(bounds, "-")
		if !ok {
			return fmt.Errorf("ledger: range %q lacks bounds", part)
		}
		min, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return fmt.Errorf("ledger: range %q: %w", part, err)
		}
		max, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return fmt.Errorf("ledger: range %q: %w", part, err)
		}
		table = append(table, AccountRange{Min: min, Max: max, Class: AccountClass(strings.ToLower(strings.TrimSpace(class)))})
	}
	if err := table.Validate(); err != nil {
		return err
	}
	*t = table
	return nil
}

// String renders the table in the form Decode accepts.
func (t RangeTable) String() string {
	parts := make([]string, 0, len(t))
	for _, r := range t {
		parts = append(parts, fmt.Sprintf("%d-%d:%s", r.Min, r.Max, r.Class))
	}
	return strings.Join(parts, ",")
}

// Validate rejects empty tables, unknown classes, inverted and overlapping ranges.
func (t RangeTable) Validate() error {
	if len(t) == 0 {
		return errors.New("ledger: account range table is empty")
	}
	sorted := append(RangeTable(nil), t...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })
	for i, r := range sorted {
		if !r.Class.valid() {
			return fmt.Errorf("ledger: unknown account class %q", r.Class)
		}
		if r.Min > r.Max {
			return fmt.Errorf("ledger: range %d-%d is inverted", r.Min, r.Max)
		}
		if i > 0 && r.Min <= sorted[i-1].Max {
			return fmt.Errorf("ledger: range %d-%d overlaps %d-%d", r.Min, r.Max, sorted[i-1].Min, sorted[i-1].Max)
		}
	}
	return nil
}

// Classify returns the class of account, or ClassUnclassified.
func (t RangeTable) Classify(account int) AccountClass {
	for _, r := range t {
		if r.Contains(account) {
			return r.Class
		}
	}
	return ClassUnclassified
}

// Bounds returns the smallest range covering every entry of the table.
func (t RangeTable) Bounds() AccountRange {
	if len(t) == 0 {
		return AccountRange{}
	}
	out := AccountRange{Min: t[0].Min, Max: t[0].Max}
	for _, r := range t[1:] {
		if r.Min < out.Min {
			out.Min = r.Min
		}
		if r.Max > out.Max {
			out.Max = r.Max
		}
	}
	return out
}
