// Package store declares the persistence ports used by the services.
// Adapters live in internal/storage (SQLite), store/memory and store/google.
package store

import (
	"context"
	"errors"
	"time"

	"budgetwatch/internal/core"
)

// ErrVersionConflict is returned by CompareAndSet when the stored version
// no longer matches the one the caller loaded.
var ErrVersionConflict = errors.New("version conflict")

type (
	// Entry is a value in the key-value store. Version 0 means the key is absent.
	Entry struct {
		Value   string
		Version int64
	}

	// InboxAlert is an alert delivered through the synchronous fallback,
	// kept until the client shows it.
	InboxAlert struct {
		ID        string     `json:"id"`
		OwnerID   string     `json:"owner_id"`
		Title     string     `json:"title"`
		Body      string     `json:"body"`
		CreatedAt time.Time  `json:"created_at"`
		ReadAt    *time.Time `json:"read_at,omitempty"`
	}
)

// Ports for outbound adapters.
type (
	ExpenseStore interface {
		// CreateExpense assigns ID and timestamps and returns the stored record.
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		// UpdateExpense replaces every mutable field of an existing record.
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, ownerID, id string) error
		GetExpense(ctx context.Context, ownerID, id string) (core.Expense, error)
		// ListExpenses returns every expense of the owner, oldest first.
		ListExpenses(ctx context.Context, ownerID string) ([]core.Expense, error)
	}

	BudgetStore interface {
		// CreateBudget fails with core.ErrDuplicateBudget when the owner
		// already has a budget for the same category and month.
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, ownerID, id string) error
		GetBudget(ctx context.Context, ownerID, id string) (core.Budget, error)
		// ListBudgets returns the owner's budgets for month in creation order.
		ListBudgets(ctx context.Context, ownerID string, month core.MonthYear) ([]core.Budget, error)
	}

	KeyValueStore interface {
		Get(ctx context.Context, key string) (Entry, error)
		Set(ctx context.Context, key, value string) error
		// CompareAndSet writes value only if the stored version equals
		// expectedVersion (0 = key must not exist) and returns the new version.
		CompareAndSet(ctx context.Context, key, value string, expectedVersion int64) (int64, error)
	}

	AlertInbox interface {
		AddAlert(ctx context.Context, a InboxAlert) (InboxAlert, error)
		ListAlerts(ctx context.Context, ownerID string, unreadOnly bool) ([]InboxAlert, error)
		MarkAlertRead(ctx context.Context, ownerID, id string) error
	}

	// Stores groups the adapters a backend provides.
	Stores struct {
		Expenses ExpenseStore
		Budgets  BudgetStore
		KV       KeyValueStore
		Inbox    AlertInbox
	}
)
