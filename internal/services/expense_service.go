package services

import (
	"context"
	"fmt"
	"strings"

	"budgetwatch/internal/core"
	"budgetwatch/internal/log"
	"budgetwatch/internal/spending"
	"budgetwatch/internal/store"
)

// ExpenseService saves expenses and runs the budget alert pipeline after
// every create and update.
type ExpenseService struct {
	store   store.ExpenseStore
	budgets BudgetLister
	alerts  *AlertService
	logger  *log.Logger
}

// SaveResult is a stored expense plus the alerts its save triggered.
type SaveResult struct {
	Expense core.Expense     `json:"expense"`
	Alerts  []DeliveredAlert `json:"alerts"`
}

// NewExpenseService wires the service. alerts may be nil to disable the pipeline.
func NewExpenseService(s store.ExpenseStore, budgets BudgetLister, alerts *AlertService, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExpenseService{
		store:   s,
		budgets: budgets,
		alerts:  alerts,
		logger:  logger.WithComponent(log.ComponentExpense),
	}
}

// CreateExpense normalizes and validates e, stores it and then evaluates
// the owner's budgets. A failing evaluation never fails the save.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (SaveResult, error) {
	e = normalizeExpense(e)
	if err := e.Validate(); err != nil {
		return SaveResult{}, err
	}

	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense created",
		log.FieldExpenseID, created.ID,
		log.FieldOwner, created.OwnerID,
		log.FieldCategory, string(created.Category),
		log.FieldAmount, created.Amount.String())

	return SaveResult{Expense: created, Alerts: s.checkAlerts(ctx, created.OwnerID)}, nil
}

// UpdateExpense replaces every mutable field of an existing expense, then
// evaluates budgets like CreateExpense.
func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.Expense) (SaveResult, error) {
	e = normalizeExpense(e)
	if err := e.Validate(); err != nil {
		return SaveResult{}, err
	}

	updated, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return SaveResult{}, fmt.Errorf("update expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense updated",
		log.FieldExpenseID, updated.ID,
		log.FieldOwner, updated.OwnerID)

	return SaveResult{Expense: updated, Alerts: s.checkAlerts(ctx, updated.OwnerID)}, nil
}

// DeleteExpense removes an expense. Deleting never raises alerts.
func (s *ExpenseService) DeleteExpense(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteExpense(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.logger.InfoContext(ctx, "Expense deleted", log.FieldExpenseID, id, log.FieldOwner, ownerID)
	return nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, ownerID, id string) (core.Expense, error) {
	return s.store.GetExpense(ctx, ownerID, id)
}

// ListExpenses returns the owner's expenses, restricted to month when given.
func (s *ExpenseService) ListExpenses(ctx context.Context, ownerID string, month *core.MonthYear) ([]core.Expense, error) {
	all, err := s.store.ListExpenses(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if month == nil {
		return all, nil
	}
	out := make([]core.Expense, 0, len(all))
	for _, e := range all {
		if month.Contains(e.OccurredOn) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Overview returns totals, the category breakdown and budget progress for month.
func (s *ExpenseService) Overview(ctx context.Context, ownerID string, month core.MonthYear) (core.MonthOverview, error) {
	expenses, err := s.store.ListExpenses(ctx, ownerID)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("list expenses: %w", err)
	}
	budgets, err := s.budgets.ListBudgets(ctx, ownerID, month)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("list budgets: %w", err)
	}
	return spending.Overview(expenses, budgets, month), nil
}

func (s *ExpenseService) checkAlerts(ctx context.Context, ownerID string) []DeliveredAlert {
	if s.alerts == nil {
		return nil
	}
	report, err := s.alerts.Check(ctx, ownerID)
	if err != nil {
		// Don't fail the request - the expense is saved
		s.logger.WarnContext(ctx, "Budget alert check failed", log.FieldOwner, ownerID, log.FieldError, err)
		return nil
	}
	return report.Alerts
}

func normalizeExpense(e core.Expense) core.Expense {
	e.OwnerID = strings.TrimSpace(e.OwnerID)
	e.Description = strings.TrimSpace(e.Description)
	e.Category = core.NormalizeCategory(string(e.Category))
	return e
}
