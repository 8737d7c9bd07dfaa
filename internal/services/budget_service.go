package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"budgetwatch/internal/cache"
	"budgetwatch/internal/core"
	"budgetwatch/internal/log"
	"budgetwatch/internal/store"
)

// BudgetService manages budgets and caches per owner-month budget lists.
type BudgetService struct {
	store  store.BudgetStore
	cache  cache.Cache[[]core.Budget]
	logger *log.Logger
}

var _ BudgetLister = (*BudgetService)(nil)

// NewBudgetService wires the store with a list cache. c may be nil to disable caching.
func NewBudgetService(s store.BudgetStore, c cache.Cache[[]core.Budget], logger *log.Logger) *BudgetService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &BudgetService{store: s, cache: c, logger: logger.WithComponent(log.ComponentBudget)}
}

func budgetCacheKey(ownerID string, month core.MonthYear) string {
	return ownerID + "|" + month.String()
}

// CreateBudget normalizes the category, validates and stores b. A second
// budget for the same owner, category and month is rejected with
// core.ErrDuplicateBudget.
func (s *BudgetService) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b = normalizeBudget(b)
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	created, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	s.invalidate(created.OwnerID, created.MonthYear)

	s.logger.InfoContext(ctx, "Budget created",
		log.NewFields().WithOperation(log.OpCreate).WithOwner(created.OwnerID, created.MonthYear.String()).ToSlice()...)
	return created, nil
}

// UpdateBudget replaces an existing budget. Moving it onto a category and
// month that already has a budget fails with core.ErrDuplicateBudget.
func (s *BudgetService) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b = normalizeBudget(b)
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	existing, err := s.store.GetBudget(ctx, b.OwnerID, b.ID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	updated, err := s.store.UpdateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	s.invalidate(existing.OwnerID, existing.MonthYear)
	s.invalidate(updated.OwnerID, updated.MonthYear)
	return updated, nil
}

func (s *BudgetService) DeleteBudget(ctx context.Context, ownerID, id string) error {
	existing, err := s.store.GetBudget(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if err := s.store.DeleteBudget(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	s.invalidate(ownerID, existing.MonthYear)
	return nil
}

func (s *BudgetService) GetBudget(ctx context.Context, ownerID, id string) (core.Budget, error) {
	return s.store.GetBudget(ctx, ownerID, id)
}

// ListBudgets returns the owner's budgets for month in creation order.
// Concurrent misses for the same key share one store read.
func (s *BudgetService) ListBudgets(ctx context.Context, ownerID string, month core.MonthYear) ([]core.Budget, error) {
	if s.cache == nil {
		return s.store.ListBudgets(ctx, ownerID, month)
	}
	list, err := s.cache.GetOrLoad(ctx, budgetCacheKey(ownerID, month), func(ctx context.Context) ([]core.Budget, error) {
		return s.store.ListBudgets(ctx, ownerID, month)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(list), nil
}

func (s *BudgetService) invalidate(ownerID string, month core.MonthYear) {
	if s.cache != nil {
		s.cache.Delete(budgetCacheKey(ownerID, month))
	}
}

func normalizeBudget(b core.Budget) core.Budget {
	b.OwnerID = strings.TrimSpace(b.OwnerID)
	b.Category = core.NormalizeCategory(string(b.Category))
	return b
}
