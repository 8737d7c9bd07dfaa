// Package spending turns raw expenses and budgets into per-category figures.
// Every function here is pure.
package spending

import (
	"sort"

	"github.com/shopspring/decimal"

	"budgetwatch/internal/core"
)

// Aggregate joins the month's expenses against the month's budgets.
//
// Expenses are kept when their date falls within month (both ends inclusive);
// budgets when their MonthYear equals month. Categories match exactly.
// When several budgets share a category only the first one counts, so callers
// should pass budgets in store order. Categories without a budget produce no
// summary. The output follows budget order.
func Aggregate(expenses []core.Expense, budgets []core.Budget, month core.MonthYear) []core.CategorySpendingSummary {
	spent := totals(expenses, month)

	seen := make(map[core.Category]struct{}, len(budgets))
	summaries := make([]core.CategorySpendingSummary, 0, len(budgets))
	for _, b := range budgets {
		if b.MonthYear != month {
			continue
		}
		if _, dup := seen[b.Category]; dup {
			continue
		}
		seen[b.Category] = struct{}{}
		summaries = append(summaries, Summarize(b.Category, spent[b.Category], b.Amount))
	}
	return summaries
}

// Summarize computes the derived figures for one category.
func Summarize(category core.Category, spent, budget decimal.Decimal) core.CategorySpendingSummary {
	remaining := budget.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return core.CategorySpendingSummary{
		Category:     category,
		Spent:        spent,
		BudgetAmount: budget,
		Percentage:   core.Percentage(spent, budget),
		Remaining:    remaining,
		Exceeded:     spent.GreaterThan(budget),
	}
}

// ByCategory totals the month's expenses per category, largest first.
// Ties are broken by category name.
func ByCategory(expenses []core.Expense, month core.MonthYear) []core.CategoryAmount {
	spent := totals(expenses, month)
	out := make([]core.CategoryAmount, 0, len(spent))
	for cat, amount := range spent {
		out = append(out, core.CategoryAmount{Category: cat, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// MonthTotal sums every expense that falls in month.
func MonthTotal(expenses []core.Expense, month core.MonthYear) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		if month.Contains(e.OccurredOn) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// Overview assembles totals, the category breakdown and budget progress for month.
func Overview(expenses []core.Expense, budgets []core.Budget, month core.MonthYear) core.MonthOverview {
	return core.MonthOverview{
		MonthYear:  month.String(),
		Total:      MonthTotal(expenses, month),
		ByCategory: ByCategory(expenses, month),
		Budgets:    Aggregate(expenses, budgets, month),
	}
}

func totals(expenses []core.Expense, month core.MonthYear) map[core.Category]decimal.Decimal {
	spent := make(map[core.Category]decimal.Decimal)
	for _, e := range expenses {
		if !month.Contains(e.OccurredOn) {
			continue
		}
		spent[e.Category] = spent[e.Category].Add(e.Amount)
	}
	return spent
}
