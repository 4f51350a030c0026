package core

import "github.com/shopspring/decimal"

// KindTotals is the income/expense split for one owner.
type KindTotals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// MonthNet is the net balance (income minus expense) of one calendar
// month, keyed by its YYYY-MM string.
type MonthNet struct {
	Month string
	Net   decimal.Decimal
}

// BudgetRow is one line of the budget status report. Spent aggregates
// expenses across every owner sharing the category label: budget limits
// are household-wide, not per user. Remainder is Limit minus Spent; a
// negative remainder marks the category as over its limit.
type BudgetRow struct {
	Category  string
	Limit     decimal.Decimal
	Spent     decimal.Decimal
	Remainder decimal.Decimal
}

// Over reports whether the category has spent past its limit.
func (r BudgetRow) Over() bool {
	return r.Remainder.IsNegative()
}
