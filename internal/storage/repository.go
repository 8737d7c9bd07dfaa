package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetwatch/internal/core"
	"budgetwatch/internal/store"

	_ "modernc.org/sqlite"
)

// Fixed width so that timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var (
	_ store.ExpenseStore  = (*SQLiteRepository)(nil)
	_ store.BudgetStore   = (*SQLiteRepository)(nil)
	_ store.KeyValueStore = (*SQLiteRepository)(nil)
	_ store.AlertInbox    = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) stamp() string {
	return r.now().Format(timeLayout)
}

// CreateExpense implements store.ExpenseStore
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	now := r.stamp()
	row := expenseRow(e)
	row.ID = uuid.NewString()
	row.CreatedAt, row.UpdatedAt = now, now

	if err := r.queries.CreateExpense(ctx, row); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", row.ID,
		"owner_id", row.OwnerID,
		"amount", row.Amount,
		"category", row.Category,
		"occurred_on", row.OccurredOn)

	return toExpense(row)
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	row := expenseRow(e)
	row.UpdatedAt = r.stamp()

	n, err := r.queries.UpdateExpense(ctx, row)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if n == 0 {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", e.ID, core.ErrNotFound)
	}
	return r.GetExpense(ctx, e.OwnerID, e.ID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, ownerID, id string) error {
	n, err := r.queries.DeleteExpense(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete expense %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, ownerID, id string) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, ownerID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return toExpense(row)
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, ownerID string) ([]core.Expense, error) {
	rows, err := r.queries.ListExpensesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := toExpense(row)
		if err != nil {
			// A malformed row is skipped rather than failing the whole listing.
			slog.WarnContext(ctx, "Skipping malformed expense row", "id", row.ID, "error", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// CreateBudget implements store.BudgetStore
func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	now := r.stamp()
	row := budgetRow(b)
	row.ID = uuid.NewString()
	row.CreatedAt, row.UpdatedAt = now, now

	if err := r.queries.CreateBudget(ctx, row); err != nil {
		if isUniqueViolation(err) {
			return core.Budget{}, fmt.Errorf("create budget: %w", core.ErrDuplicateBudget)
		}
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved to SQLite",
		"id", row.ID,
		"owner_id", row.OwnerID,
		"category", row.Category,
		"month_year", row.MonthYear)

	return toBudget(row)
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	row := budgetRow(b)
	row.UpdatedAt = r.stamp()

	n, err := r.queries.UpdateBudget(ctx, row)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Budget{}, fmt.Errorf("update budget: %w", core.ErrDuplicateBudget)
		}
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	if n == 0 {
		return core.Budget{}, fmt.Errorf("update budget %s: %w", b.ID, core.ErrNotFound)
	}
	return r.GetBudget(ctx, b.OwnerID, b.ID)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, ownerID, id string) error {
	n, err := r.queries.DeleteBudget(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete budget %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, ownerID, id string) (core.Budget, error) {
	row, err := r.queries.GetBudget(ctx, ownerID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("get budget %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return toBudget(row)
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, ownerID string, month core.MonthYear) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgetsByMonth(ctx, ownerID, month.String())
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		b, err := toBudget(row)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed budget row", "id", row.ID, "error", err)
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// Get implements store.KeyValueStore
func (r *SQLiteRepository) Get(ctx context.Context, key string) (store.Entry, error) {
	kv, err := r.queries.GetKV(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Entry{}, nil
	}
	if err != nil {
		return store.Entry{}, fmt.Errorf("get %s: %w", key, err)
	}
	return store.Entry{Value: kv.Value, Version: kv.Version}, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key, value string) error {
	if err := r.queries.UpsertKV(ctx, key, value, r.stamp()); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) CompareAndSet(ctx context.Context, key, value string, expectedVersion int64) (int64, error) {
	var (
		n   int64
		err error
	)
	if expectedVersion == 0 {
		n, err = r.queries.InsertKVIfAbsent(ctx, key, value, r.stamp())
	} else {
		n, err = r.queries.UpdateKVIfVersion(ctx, key, value, r.stamp(), expectedVersion)
	}
	if err != nil {
		return 0, fmt.Errorf("compare and set %s: %w", key, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("compare and set %s at version %d: %w", key, expectedVersion, store.ErrVersionConflict)
	}
	return expectedVersion + 1, nil
}

// AddAlert implements store.AlertInbox
func (r *SQLiteRepository) AddAlert(ctx context.Context, a store.InboxAlert) (store.InboxAlert, error) {
	a.ID = uuid.NewString()
	a.CreatedAt = r.now()
	a.ReadAt = nil

	err := r.queries.CreateInboxAlert(ctx, AlertInbox{
		ID:        a.ID,
		OwnerID:   a.OwnerID,
		Title:     a.Title,
		Body:      a.Body,
		CreatedAt: a.CreatedAt.Format(timeLayout),
	})
	if err != nil {
		return store.InboxAlert{}, fmt.Errorf("add alert: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAlerts(ctx context.Context, ownerID string, unreadOnly bool) ([]store.InboxAlert, error) {
	rows, err := r.queries.ListInboxAlerts(ctx, ownerID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	out := make([]store.InboxAlert, 0, len(rows))
	for _, row := range rows {
		created, _ := time.Parse(timeLayout, row.CreatedAt)
		a := store.InboxAlert{
			ID:        row.ID,
			OwnerID:   row.OwnerID,
			Title:     row.Title,
			Body:      row.Body,
			CreatedAt: created,
		}
		if row.ReadAt.Valid {
			if readAt, err := time.Parse(timeLayout, row.ReadAt.String); err == nil {
				a.ReadAt = &readAt
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *SQLiteRepository) MarkAlertRead(ctx context.Context, ownerID, id string) error {
	n, err := r.queries.MarkInboxAlertRead(ctx, ownerID, id, r.stamp())
	if err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}
	if n > 0 {
		return nil
	}
	// Already read is fine; unknown is not.
	exists, err := r.queries.InboxAlertExists(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}
	if !exists {
		return fmt.Errorf("mark alert read %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func expenseRow(e core.Expense) Expense {
	return Expense{
		ID:          e.ID,
		OwnerID:     e.OwnerID,
		Description: e.Description,
		Amount:      e.Amount.String(),
		Category:    string(e.Category),
		OccurredOn:  e.OccurredOn.String(),
	}
}

func toExpense(row Expense) (core.Expense, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse amount %q: %w", row.Amount, err)
	}
	occurred, err := core.ParseDate(row.OccurredOn)
	if err != nil {
		return core.Expense{}, err
	}
	created, _ := time.Parse(timeLayout, row.CreatedAt)
	updated, _ := time.Parse(timeLayout, row.UpdatedAt)
	return core.Expense{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Description: row.Description,
		Amount:      amount,
		Category:    core.NormalizeCategory(row.Category),
		OccurredOn:  occurred,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}, nil
}

func budgetRow(b core.Budget) Budget {
	return Budget{
		ID:        b.ID,
		OwnerID:   b.OwnerID,
		Category:  string(b.Category),
		Amount:    b.Amount.String(),
		MonthYear: b.MonthYear.String(),
	}
}

func toBudget(row Budget) (core.Budget, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("parse amount %q: %w", row.Amount, err)
	}
	month, err := core.ParseMonthYear(row.MonthYear)
	if err != nil {
		return core.Budget{}, err
	}
	created, _ := time.Parse(timeLayout, row.CreatedAt)
	updated, _ := time.Parse(timeLayout, row.UpdatedAt)
	return core.Budget{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Category:  core.NormalizeCategory(row.Category),
		Amount:    amount,
		MonthYear: month,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
