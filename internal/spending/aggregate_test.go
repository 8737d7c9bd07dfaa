package spending

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwatch/internal/core"
)

var july = core.NewMonthYear(2024, time.July)

func exp(cat core.Category, amount string, y, m, d int) core.Expense {
	return core.Expense{
		OwnerID:    "u1",
		Category:   cat,
		Amount:     decimal.RequireFromString(amount),
		OccurredOn: core.NewDate(y, m, d),
	}
}

func budget(cat core.Category, amount string, month core.MonthYear) core.Budget {
	return core.Budget{OwnerID: "u1", Category: cat, Amount: decimal.RequireFromString(amount), MonthYear: month}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAggregateWarningScenario(t *testing.T) {
	expenses := []core.Expense{
		exp(core.Groceries, "5000", 2024, 7, 3),
		exp(core.Groceries, "3000", 2024, 7, 15),
	}
	budgets := []core.Budget{budget(core.Groceries, "10000", july)}

	got := Aggregate(expenses, budgets, july)
	require.Len(t, got, 1)
	s := got[0]
	assert.Equal(t, core.Groceries, s.Category)
	assert.True(t, s.Spent.Equal(dec("8000")))
	assert.True(t, s.Percentage.Equal(dec("80")))
	assert.True(t, s.Remaining.Equal(dec("2000")))
	assert.False(t, s.Exceeded)
}

func TestAggregateExceededScenario(t *testing.T) {
	expenses := []core.Expense{exp(core.Groceries, "12000", 2024, 7, 10)}
	got := Aggregate(expenses, []core.Budget{budget(core.Groceries, "10000", july)}, july)
	require.Len(t, got, 1)
	assert.True(t, got[0].Percentage.Equal(dec("120")))
	assert.True(t, got[0].Remaining.IsZero())
	assert.True(t, got[0].Exceeded)
}

func TestAggregateMonthBoundsAreInclusive(t *testing.T) {
	expenses := []core.Expense{
		exp(core.Transport, "1", 2024, 6, 30),
		exp(core.Transport, "10", 2024, 7, 1),
		exp(core.Transport, "100", 2024, 7, 31),
		exp(core.Transport, "1000", 2024, 8, 1),
		exp(core.Transport, "10000", 2023, 7, 15),
	}
	got := Aggregate(expenses, []core.Budget{budget(core.Transport, "1000", july)}, july)
	require.Len(t, got, 1)
	assert.True(t, got[0].Spent.Equal(dec("110")), "spent=%s", got[0].Spent)
}

func TestAggregateIgnoresOtherMonthsBudgets(t *testing.T) {
	budgets := []core.Budget{
		budget(core.Groceries, "100", core.NewMonthYear(2024, time.June)),
		budget(core.Transport, "100", july),
	}
	got := Aggregate(nil, budgets, july)
	require.Len(t, got, 1)
	assert.Equal(t, core.Transport, got[0].Category)
	assert.True(t, got[0].Spent.IsZero())
	assert.True(t, got[0].Percentage.IsZero())
}

func TestAggregateNoBudgetNoSummary(t *testing.T) {
	expenses := []core.Expense{exp(core.Shopping, "999999", 2024, 7, 4)}
	got := Aggregate(expenses, []core.Budget{budget(core.Groceries, "100", july)}, july)
	require.Len(t, got, 1)
	assert.Equal(t, core.Groceries, got[0].Category)
}

func TestAggregateExactCategoryMatch(t *testing.T) {
	expenses := []core.Expense{
		exp("groceries", "50", 2024, 7, 4),
		exp(core.Groceries, "10", 2024, 7, 4),
	}
	got := Aggregate(expenses, []core.Budget{budget(core.Groceries, "100", july)}, july)
	require.Len(t, got, 1)
	assert.True(t, got[0].Spent.Equal(dec("10")))
}

func TestAggregateNonPositiveBudget(t *testing.T) {
	expenses := []core.Expense{exp(core.Gifts, "50", 2024, 7, 4)}
	for _, amount := range []string{"0", "-10"} {
		got := Aggregate(expenses, []core.Budget{budget(core.Gifts, amount, july)}, july)
		require.Len(t, got, 1)
		assert.True(t, got[0].Percentage.IsZero(), "budget %s", amount)
		assert.True(t, got[0].Exceeded, "50 spent is over a %s budget", amount)
		assert.True(t, got[0].Remaining.IsZero())
	}
}

func TestAggregateDuplicateBudgetsFirstWins(t *testing.T) {
	expenses := []core.Expense{exp(core.Groceries, "90", 2024, 7, 4)}
	budgets := []core.Budget{
		budget(core.Groceries, "100", july),
		budget(core.Groceries, "1000", july),
	}
	got := Aggregate(expenses, budgets, july)
	require.Len(t, got, 1)
	assert.True(t, got[0].BudgetAmount.Equal(dec("100")))
	assert.True(t, got[0].Percentage.Equal(dec("90")))
}

func TestAggregateIsDeterministic(t *testing.T) {
	var expenses []core.Expense
	for i := 1; i <= 28; i++ {
		expenses = append(expenses, exp(core.Categories[i%len(core.Categories)], "12.34", 2024, 7, i))
	}
	budgets := []core.Budget{
		budget(core.Groceries, "50", july),
		budget(core.Transport, "20", july),
		budget(core.Housing, "5", july),
	}
	want := Aggregate(expenses, budgets, july)

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 5; i++ {
		shuffled := append([]core.Expense(nil), expenses...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Aggregate(shuffled, budgets, july)
		require.Len(t, got, len(want))
		for j := range want {
			assert.Equal(t, want[j].Category, got[j].Category)
			assert.True(t, want[j].Spent.Equal(got[j].Spent))
		}
	}
}

func TestSummarizeProperties(t *testing.T) {
	cases := []struct{ spent, budget string }{
		{"0", "100"}, {"79.99", "100"}, {"80", "100"}, {"100", "100"},
		{"100.01", "100"}, {"1", "3"}, {"123456.78", "1000"},
	}
	for _, tc := range cases {
		s := Summarize(core.Others, dec(tc.spent), dec(tc.budget))
		S, A := dec(tc.spent), dec(tc.budget)
		want := S.Mul(decimal.NewFromInt(100)).Div(A)
		assert.True(t, s.Percentage.Equal(want), "%s/%s", tc.spent, tc.budget)
		assert.Equal(t, S.GreaterThan(A), s.Exceeded)
		assert.True(t, s.Remaining.Equal(decimal.Max(A.Sub(S), decimal.Zero)))
	}
}

func TestByCategoryAndOverview(t *testing.T) {
	expenses := []core.Expense{
		exp(core.Groceries, "30", 2024, 7, 1),
		exp(core.Transport, "50", 2024, 7, 2),
		exp(core.Groceries, "30", 2024, 7, 3),
		exp(core.Housing, "60", 2024, 7, 3),
		exp(core.Housing, "999", 2024, 8, 3),
	}
	got := ByCategory(expenses, july)
	require.Len(t, got, 3)
	// Groceries and Housing tie at 60; names break the tie.
	assert.Equal(t, core.Groceries, got[0].Category)
	assert.Equal(t, core.Housing, got[1].Category)
	assert.Equal(t, core.Transport, got[2].Category)

	ov := Overview(expenses, []core.Budget{budget(core.Transport, "40", july)}, july)
	assert.Equal(t, "2024-07", ov.MonthYear)
	assert.True(t, ov.Total.Equal(dec("170")))
	require.Len(t, ov.Budgets, 1)
	assert.True(t, ov.Budgets[0].Exceeded)
}
