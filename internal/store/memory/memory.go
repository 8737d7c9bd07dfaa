package memory

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgetwatch/internal/core"
	"budgetwatch/internal/store"
)

// Store keeps every port in process memory. Records are kept in insertion
// order, which is also the creation order the budget policy relies on.
type Store struct {
	mu       sync.Mutex
	expenses []core.Expense
	budgets  []core.Budget
	kv       map[string]store.Entry
	inbox    []store.InboxAlert
	now      func() time.Time
}

var (
	_ store.ExpenseStore  = (*Store)(nil)
	_ store.BudgetStore   = (*Store)(nil)
	_ store.KeyValueStore = (*Store)(nil)
	_ store.AlertInbox    = (*Store)(nil)
)

func New() *Store {
	return &Store{
		kv:  make(map[string]store.Entry),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// NewFromFiles seeds budgets from base/seed_budgets.txt. Each line reads
// "owner,category,YYYY-MM,amount"; blank lines and # comments are skipped.
func NewFromFiles(base string) *Store {
	s := New()
	for i, line := range readLines(filepath.Join(base, "seed_budgets.txt")) {
		b, err := parseBudgetLine(line)
		if err != nil {
			slog.Warn("Skipping seed budget", "line", i+1, "error", err)
			continue
		}
		if _, err := s.CreateBudget(context.Background(), b); err != nil {
			slog.Warn("Skipping seed budget", "line", i+1, "error", err)
		}
	}
	return s
}

// Stores exposes the store through every port.
func (s *Store) Stores() store.Stores {
	return store.Stores{Expenses: s, Budgets: s, KV: s, Inbox: s}
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	e.ID = uuid.NewString()
	e.CreatedAt, e.UpdatedAt = now, now
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findExpense(e.OwnerID, e.ID)
	if i < 0 {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", e.ID, core.ErrNotFound)
	}
	e.CreatedAt = s.expenses[i].CreatedAt
	e.UpdatedAt = s.now()
	s.expenses[i] = e
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findExpense(ownerID, id)
	if i < 0 {
		return fmt.Errorf("delete expense %s: %w", id, core.ErrNotFound)
	}
	s.expenses = slices.Delete(s.expenses, i, i+1)
	return nil
}

func (s *Store) GetExpense(_ context.Context, ownerID, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findExpense(ownerID, id)
	if i < 0 {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, core.ErrNotFound)
	}
	return s.expenses[i], nil
}

func (s *Store) ListExpenses(_ context.Context, ownerID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) findExpense(ownerID, id string) int {
	return slices.IndexFunc(s.expenses, func(e core.Expense) bool {
		return e.ID == id && e.OwnerID == ownerID
	})
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflicts(b, "") {
		return core.Budget{}, fmt.Errorf("create budget: %w", core.ErrDuplicateBudget)
	}
	now := s.now()
	b.ID = uuid.NewString()
	b.CreatedAt, b.UpdatedAt = now, now
	s.budgets = append(s.budgets, b)
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findBudget(b.OwnerID, b.ID)
	if i < 0 {
		return core.Budget{}, fmt.Errorf("update budget %s: %w", b.ID, core.ErrNotFound)
	}
	if s.conflicts(b, b.ID) {
		return core.Budget{}, fmt.Errorf("update budget: %w", core.ErrDuplicateBudget)
	}
	b.CreatedAt = s.budgets[i].CreatedAt
	b.UpdatedAt = s.now()
	s.budgets[i] = b
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findBudget(ownerID, id)
	if i < 0 {
		return fmt.Errorf("delete budget %s: %w", id, core.ErrNotFound)
	}
	s.budgets = slices.Delete(s.budgets, i, i+1)
	return nil
}

func (s *Store) GetBudget(_ context.Context, ownerID, id string) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findBudget(ownerID, id)
	if i < 0 {
		return core.Budget{}, fmt.Errorf("get budget %s: %w", id, core.ErrNotFound)
	}
	return s.budgets[i], nil
}

func (s *Store) ListBudgets(_ context.Context, ownerID string, month core.MonthYear) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.OwnerID == ownerID && b.MonthYear == month {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) findBudget(ownerID, id string) int {
	return slices.IndexFunc(s.budgets, func(b core.Budget) bool {
		return b.ID == id && b.OwnerID == ownerID
	})
}

// conflicts reports whether another budget already covers b's owner, category and month.
func (s *Store) conflicts(b core.Budget, selfID string) bool {
	for _, other := range s.budgets {
		if other.ID != selfID && other.OwnerID == b.OwnerID &&
			other.Category == b.Category && other.MonthYear == b.MonthYear {
			return true
		}
	}
	return false
}

func (s *Store) Get(_ context.Context, key string) (store.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv[key], nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.kv[key]
	s.kv[key] = store.Entry{Value: value, Version: cur.Version + 1}
	return nil
}

func (s *Store) CompareAndSet(_ context.Context, key, value string, expectedVersion int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.kv[key]
	if cur.Version != expectedVersion {
		return 0, fmt.Errorf("compare and set %s at version %d: %w", key, expectedVersion, store.ErrVersionConflict)
	}
	next := store.Entry{Value: value, Version: expectedVersion + 1}
	s.kv[key] = next
	return next.Version, nil
}

func (s *Store) AddAlert(_ context.Context, a store.InboxAlert) (store.InboxAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = uuid.NewString()
	a.CreatedAt = s.now()
	a.ReadAt = nil
	s.inbox = append(s.inbox, a)
	return a, nil
}

func (s *Store) ListAlerts(_ context.Context, ownerID string, unreadOnly bool) ([]store.InboxAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.InboxAlert
	for _, a := range s.inbox {
		if a.OwnerID != ownerID || (unreadOnly && a.ReadAt != nil) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) MarkAlertRead(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.inbox {
		a := &s.inbox[i]
		if a.ID != id || a.OwnerID != ownerID {
			continue
		}
		if a.ReadAt == nil {
			now := s.now()
			a.ReadAt = &now
		}
		return nil
	}
	return fmt.Errorf("mark alert read %s: %w", id, core.ErrNotFound)
}

func parseBudgetLine(line string) (core.Budget, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 4 {
		return core.Budget{}, fmt.Errorf("expected 4 fields, got %d", len(parts))
	}
	month, err := core.ParseMonthYear(parts[2])
	if err != nil {
		return core.Budget{}, err
	}
	amount, err := core.ParseAmount(parts[3])
	if err != nil {
		return core.Budget{}, err
	}
	b := core.Budget{
		OwnerID:   strings.TrimSpace(parts[0]),
		Category:  core.NormalizeCategory(parts[1]),
		MonthYear: month,
		Amount:    amount,
	}
	return b, b.Validate()
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
