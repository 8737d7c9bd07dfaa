package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwatch/internal/cache"
	"budgetwatch/internal/core"
	"budgetwatch/internal/history"
	"budgetwatch/internal/store"
	"budgetwatch/internal/store/memory"
)

func newExpenseService(f *fixture) *ExpenseService {
	return NewExpenseService(f.mem, f.budgets, f.alerts, nil)
}

func TestCreateExpenseTriggersAlerts(t *testing.T) {
	f := newFixture(t)
	f.budget(t, core.Groceries, 10000)
	svc := newExpenseService(f)

	res, err := svc.CreateExpense(context.Background(), core.Expense{
		OwnerID:     "u1",
		Description: "  weekly shop ",
		Amount:      decimal.NewFromInt(8000),
		Category:    "supermarket food",
		OccurredOn:  core.NewDate(2024, 7, 15),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Expense.ID)
	assert.Equal(t, core.Groceries, res.Expense.Category, "free text is normalized before saving")
	assert.Equal(t, "weekly shop", res.Expense.Description)
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, core.ThresholdWarning, res.Alerts[0].Alert.Kind)

	// Raising the amount on update crosses the exceeded threshold.
	e := res.Expense
	e.Amount = decimal.NewFromInt(12000)
	res, err = svc.UpdateExpense(context.Background(), e)
	require.NoError(t, err)
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, core.ThresholdExceeded, res.Alerts[0].Alert.Kind)
}

func TestCreateExpenseValidation(t *testing.T) {
	svc := newExpenseService(newFixture(t))
	base := core.Expense{OwnerID: "u1", Description: "x", Amount: decimal.NewFromInt(1), OccurredOn: core.NewDate(2024, 7, 1)}

	tests := []struct {
		name   string
		mutate func(*core.Expense)
		want   error
	}{
		{"missing owner", func(e *core.Expense) { e.OwnerID = " " }, core.ErrEmptyOwner},
		{"zero amount", func(e *core.Expense) { e.Amount = decimal.Zero }, core.ErrInvalidAmount},
		{"empty description", func(e *core.Expense) { e.Description = "" }, core.ErrEmptyDescription},
		{"missing date", func(e *core.Expense) { e.OccurredOn = core.Date{} }, core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base
			tt.mutate(&e)
			_, err := svc.CreateExpense(context.Background(), e)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

type brokenBudgets struct{}

func (brokenBudgets) ListBudgets(context.Context, string, core.MonthYear) ([]core.Budget, error) {
	return nil, errors.New("budget API down")
}

func TestCreateExpenseSucceedsWhenAlertsFail(t *testing.T) {
	mem := memory.New()
	alerts := NewAlertService(mem, brokenBudgets{}, history.NewStore(mem, nil), &recordingDispatcher{}, AlertOptions{}, nil)
	svc := NewExpenseService(mem, brokenBudgets{}, alerts, nil)

	res, err := svc.CreateExpense(context.Background(), core.Expense{
		OwnerID: "u1", Description: "taxi", Amount: decimal.NewFromInt(5), Category: core.Transport, OccurredOn: core.NewDate(2024, 7, 1),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Alerts)

	list, _ := mem.ListExpenses(context.Background(), "u1")
	assert.Len(t, list, 1)
}

func TestDeleteExpenseDoesNotAlert(t *testing.T) {
	f := newFixture(t)
	f.budget(t, core.Groceries, 100)
	svc := newExpenseService(f)
	e, err := f.mem.CreateExpense(context.Background(), core.Expense{
		OwnerID: "u1", Description: "x", Category: core.Groceries, Amount: decimal.NewFromInt(500), OccurredOn: core.NewDate(2024, 7, 1),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteExpense(context.Background(), "u1", e.ID))
	assert.Empty(t, f.dispatcher.kinds())
	assert.ErrorIs(t, svc.DeleteExpense(context.Background(), "u1", e.ID), core.ErrNotFound)
}

func TestListExpensesAndOverview(t *testing.T) {
	f := newFixture(t)
	f.budget(t, core.Groceries, 100)
	f.expense(t, core.Groceries, 60, 1)
	f.expense(t, core.Transport, 10, 31)
	_, err := f.mem.CreateExpense(context.Background(), core.Expense{
		OwnerID: "u1", Description: "x", Category: core.Groceries, Amount: decimal.NewFromInt(1), OccurredOn: core.NewDate(2024, 6, 30),
	})
	require.NoError(t, err)
	svc := newExpenseService(f)
	july := core.NewMonthYear(2024, time.July)

	all, err := svc.ListExpenses(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	inJuly, err := svc.ListExpenses(context.Background(), "u1", &july)
	require.NoError(t, err)
	assert.Len(t, inJuly, 2)

	ov, err := svc.Overview(context.Background(), "u1", july)
	require.NoError(t, err)
	assert.True(t, ov.Total.Equal(decimal.NewFromInt(70)))
	require.Len(t, ov.Budgets, 1)
	assert.True(t, ov.Budgets[0].Percentage.Equal(decimal.NewFromInt(60)))
}

type countingBudgets struct {
	store.BudgetStore
	lists int
}

func (c *countingBudgets) ListBudgets(ctx context.Context, ownerID string, month core.MonthYear) ([]core.Budget, error) {
	c.lists++
	return c.BudgetStore.ListBudgets(ctx, ownerID, month)
}

func TestBudgetServiceCachesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	counting := &countingBudgets{BudgetStore: memory.New()}
	svc := NewBudgetService(counting, cache.NewLRUCache[[]core.Budget](16, time.Minute), nil)
	july := core.NewMonthYear(2024, time.July)

	b, err := svc.CreateBudget(ctx, core.Budget{OwnerID: "u1", Category: "rent", Amount: decimal.NewFromInt(300), MonthYear: july})
	require.NoError(t, err)
	assert.Equal(t, core.Housing, b.Category)

	for i := 0; i < 3; i++ {
		list, err := svc.ListBudgets(ctx, "u1", july)
		require.NoError(t, err)
		require.Len(t, list, 1)
	}
	assert.Equal(t, 1, counting.lists)

	b.Amount = decimal.NewFromInt(400)
	_, err = svc.UpdateBudget(ctx, b)
	require.NoError(t, err)
	list, err := svc.ListBudgets(ctx, "u1", july)
	require.NoError(t, err)
	assert.True(t, list[0].Amount.Equal(decimal.NewFromInt(400)), "update invalidates the cached list")
	assert.Equal(t, 2, counting.lists)

	// Moving the budget to August invalidates both months.
	b.MonthYear = core.NewMonthYear(2024, time.August)
	_, err = svc.UpdateBudget(ctx, b)
	require.NoError(t, err)
	list, _ = svc.ListBudgets(ctx, "u1", july)
	assert.Empty(t, list)

	_, err = svc.CreateBudget(ctx, core.Budget{OwnerID: "u1", Category: core.Housing, Amount: decimal.NewFromInt(1), MonthYear: b.MonthYear})
	assert.ErrorIs(t, err, core.ErrDuplicateBudget)

	require.NoError(t, svc.DeleteBudget(ctx, "u1", b.ID))
	list, _ = svc.ListBudgets(ctx, "u1", b.MonthYear)
	assert.Empty(t, list)
}

func TestBudgetServiceValidation(t *testing.T) {
	svc := NewBudgetService(memory.New(), nil, nil)
	_, err := svc.CreateBudget(context.Background(), core.Budget{
		OwnerID: "u1", Category: core.Groceries, Amount: decimal.NewFromInt(-5), MonthYear: core.NewMonthYear(2024, time.July),
	})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = svc.CreateBudget(context.Background(), core.Budget{
		OwnerID: "u1", Category: core.Groceries, Amount: decimal.NewFromInt(5),
	})
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}
