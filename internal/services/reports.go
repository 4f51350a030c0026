package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kenay85/budget/internal/cache"
	"github.com/kenay85/budget/internal/core"
	"github.com/kenay85/budget/internal/log"
	"github.com/kenay85/budget/internal/storage"
)

const (
	reportCacheSize = 64
	reportCacheTTL  = time.Minute
)

// Reports answers the aggregation queries the presentation layer renders:
// income/expense totals, per-category expense sums, monthly net balances
// and budget status. Queries are pure functions over a ledger snapshot;
// results are cached until the next mutation invalidates them.
type Reports struct {
	ledger  storage.LedgerStore
	budgets storage.BudgetStore
	logger  *log.Logger

	totals   *cache.LRU[core.KindTotals]
	byCat    *cache.LRU[map[string]decimal.Decimal]
	monthly  *cache.LRU[[]core.MonthNet]
	statuses *cache.LRU[[]core.BudgetRow]
}

// NewReports creates the evaluator over the given stores.
func NewReports(ledger storage.LedgerStore, budgets storage.BudgetStore, logger *log.Logger) *Reports {
	return &Reports{
		ledger:   ledger,
		budgets:  budgets,
		logger:   logger.WithComponent(log.ComponentReports),
		totals:   cache.New[core.KindTotals](reportCacheSize, reportCacheTTL),
		byCat:    cache.New[map[string]decimal.Decimal](reportCacheSize, reportCacheTTL),
		monthly:  cache.New[[]core.MonthNet](reportCacheSize, reportCacheTTL),
		statuses: cache.New[[]core.BudgetRow](reportCacheSize, reportCacheTTL),
	}
}

// Invalidate drops all cached results. Call after any ledger or budget
// mutation.
func (r *Reports) Invalidate() {
	r.totals.Purge()
	r.byCat.Purge()
	r.monthly.Purge()
	r.statuses.Purge()
}

// TotalsByKind sums income and expense amounts for one owner.
func (r *Reports) TotalsByKind(ctx context.Context, owner string) (core.KindTotals, error) {
	if cached, ok := r.totals.Get(owner); ok {
		return cached, nil
	}
	entries, err := r.ledger.All(ctx)
	if err != nil {
		return core.KindTotals{}, fmt.Errorf("load ledger: %w", err)
	}
	var t core.KindTotals
	for _, tx := range entries {
		if tx.Owner != owner {
			continue
		}
		switch tx.Kind {
		case core.Income:
			t.Income = t.Income.Add(tx.Amount)
		case core.Expense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	r.totals.Set(owner, t)
	return t, nil
}

// ExpenseByCategory sums one owner's expenses per category. Income
// entries do not appear.
func (r *Reports) ExpenseByCategory(ctx context.Context, owner string) (map[string]decimal.Decimal, error) {
	if cached, ok := r.byCat.Get(owner); ok {
		return copyAmounts(cached), nil
	}
	sums, err := r.expensesByCategory(ctx, &owner)
	if err != nil {
		return nil, err
	}
	r.byCat.Set(owner, sums)
	return copyAmounts(sums), nil
}

// copyAmounts keeps the cached map out of callers' hands.
func copyAmounts(src map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// expensesByCategory aggregates expense amounts per category, for a
// single owner or, when owner is nil, across all owners.
func (r *Reports) expensesByCategory(ctx context.Context, owner *string) (map[string]decimal.Decimal, error) {
	entries, err := r.ledger.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	sums := make(map[string]decimal.Decimal)
	for _, tx := range entries {
		if tx.Kind != core.Expense {
			continue
		}
		if owner != nil && tx.Owner != *owner {
			continue
		}
		sums[tx.Category] = sums[tx.Category].Add(tx.Amount)
	}
	return sums, nil
}

// MonthlyNetBalance returns one owner's net balance (income minus
// expense) per calendar month, ascending by YYYY-MM.
func (r *Reports) MonthlyNetBalance(ctx context.Context, owner string) ([]core.MonthNet, error) {
	if cached, ok := r.monthly.Get(owner); ok {
		return append([]core.MonthNet(nil), cached...), nil
	}
	entries, err := r.ledger.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	byMonth := make(map[string]decimal.Decimal)
	for _, tx := range entries {
		if tx.Owner != owner {
			continue
		}
		key := tx.Date.YearMonth()
		if tx.Kind == core.Income {
			byMonth[key] = byMonth[key].Add(tx.Amount)
		} else {
			byMonth[key] = byMonth[key].Sub(tx.Amount)
		}
	}
	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	out := make([]core.MonthNet, 0, len(months))
	for _, m := range months {
		out = append(out, core.MonthNet{Month: m, Net: byMonth[m]})
	}
	r.monthly.Set(owner, out)
	return append([]core.MonthNet(nil), out...), nil
}

// BudgetStatus reports limit, spent and remainder for the union of
// configured and observed expense categories, sorted by category. Spent
// covers expenses from every owner: limits are household-wide.
func (r *Reports) BudgetStatus(ctx context.Context) ([]core.BudgetRow, error) {
	const key = "all"
	if cached, ok := r.statuses.Get(key); ok {
		return append([]core.BudgetRow(nil), cached...), nil
	}
	limits, err := r.budgets.Limits(ctx)
	if err != nil {
		return nil, fmt.Errorf("load budget limits: %w", err)
	}
	spent, err := r.expensesByCategory(ctx, nil)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(limits)+len(spent))
	var categories []string
	for cat := range limits {
		seen[cat] = struct{}{}
		categories = append(categories, cat)
	}
	for cat := range spent {
		if _, ok := seen[cat]; !ok {
			categories = append(categories, cat)
		}
	}
	sort.Strings(categories)

	rows := make([]core.BudgetRow, 0, len(categories))
	for _, cat := range categories {
		row := core.BudgetRow{
			Category: cat,
			Limit:    limits[cat],
			Spent:    spent[cat],
		}
		row.Remainder = row.Limit.Sub(row.Spent)
		rows = append(rows, row)
	}
	r.statuses.Set(key, rows)
	return append([]core.BudgetRow(nil), rows...), nil
}

// CheckBreach reports whether the owner's cumulative expense in the
// category strictly exceeds its configured limit. Categories without a
// limit never breach. Called right after appending an expense to decide
// whether to surface a warning.
func (r *Reports) CheckBreach(ctx context.Context, owner, category string) (bool, error) {
	limits, err := r.budgets.Limits(ctx)
	if err != nil {
		return false, fmt.Errorf("load budget limits: %w", err)
	}
	limit, ok := limits[category]
	if !ok {
		return false, nil
	}
	sums, err := r.ExpenseByCategory(ctx, owner)
	if err != nil {
		return false, err
	}
	breached := sums[category].GreaterThan(limit)
	if breached {
		r.logger.Warn("budget limit breached",
			log.FieldOwner, owner,
			log.FieldCategory, category,
			"limit", limit.String(),
			"spent", sums[category].String())
	}
	return breached, nil
}
