package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL statements of the repository. Rows mirror the
// table columns; conversion to domain types happens in repository.go.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Expense struct {
	ID          string
	OwnerID     string
	Description string
	Amount      string
	Category    string
	OccurredOn  string
	CreatedAt   string
	UpdatedAt   string
}

type Budget struct {
	ID        string
	OwnerID   string
	Category  string
	Amount    string
	MonthYear string
	CreatedAt string
	UpdatedAt string
}

type KV struct {
	Key       string
	Value     string
	Version   int64
	UpdatedAt string
}

type AlertInbox struct {
	ID        string
	OwnerID   string
	Title     string
	Body      string
	CreatedAt string
	ReadAt    sql.NullString
}

const expenseColumns = `id, owner_id, description, amount, category, occurred_on, created_at, updated_at`

func scanExpense(row interface{ Scan(...any) error }) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.OwnerID, &e.Description, &e.Amount, &e.Category, &e.OccurredOn, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

const createExpense = `INSERT INTO expenses (` + expenseColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateExpense(ctx context.Context, arg Expense) error {
	_, err := q.db.ExecContext(ctx, createExpense,
		arg.ID, arg.OwnerID, arg.Description, arg.Amount, arg.Category, arg.OccurredOn, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const updateExpense = `UPDATE expenses
SET description = ?, amount = ?, category = ?, occurred_on = ?, updated_at = ?
WHERE id = ? AND owner_id = ?`

func (q *Queries) UpdateExpense(ctx context.Context, arg Expense) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateExpense,
		arg.Description, arg.Amount, arg.Category, arg.OccurredOn, arg.UpdatedAt, arg.ID, arg.OwnerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteExpense = `DELETE FROM expenses WHERE id = ? AND owner_id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, ownerID, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ? AND owner_id = ?`

func (q *Queries) GetExpense(ctx context.Context, ownerID, id string) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id, ownerID))
}

const listExpensesByOwner = `SELECT ` + expenseColumns + ` FROM expenses
WHERE owner_id = ?
ORDER BY occurred_on, created_at, rowid`

func (q *Queries) ListExpensesByOwner(ctx context.Context, ownerID string) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesByOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const budgetColumns = `id, owner_id, category, amount, month_year, created_at, updated_at`

func scanBudget(row interface{ Scan(...any) error }) (Budget, error) {
	var b Budget
	err := row.Scan(&b.ID, &b.OwnerID, &b.Category, &b.Amount, &b.MonthYear, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

const createBudget = `INSERT INTO budgets (` + budgetColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateBudget(ctx context.Context, arg Budget) error {
	_, err := q.db.ExecContext(ctx, createBudget,
		arg.ID, arg.OwnerID, arg.Category, arg.Amount, arg.MonthYear, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const updateBudget = `UPDATE budgets
SET category = ?, amount = ?, month_year = ?, updated_at = ?
WHERE id = ? AND owner_id = ?`

func (q *Queries) UpdateBudget(ctx context.Context, arg Budget) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateBudget,
		arg.Category, arg.Amount, arg.MonthYear, arg.UpdatedAt, arg.ID, arg.OwnerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteBudget = `DELETE FROM budgets WHERE id = ? AND owner_id = ?`

func (q *Queries) DeleteBudget(ctx context.Context, ownerID, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteBudget, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getBudget = `SELECT ` + budgetColumns + ` FROM budgets WHERE id = ? AND owner_id = ?`

func (q *Queries) GetBudget(ctx context.Context, ownerID, id string) (Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, getBudget, id, ownerID))
}

const listBudgetsByMonth = `SELECT ` + budgetColumns + ` FROM budgets
WHERE owner_id = ? AND month_year = ?
ORDER BY created_at, rowid`

func (q *Queries) ListBudgetsByMonth(ctx context.Context, ownerID, monthYear string) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgetsByMonth, ownerID, monthYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

const getKV = `SELECT key, value, version, updated_at FROM kv WHERE key = ?`

func (q *Queries) GetKV(ctx context.Context, key string) (KV, error) {
	var kv KV
	err := q.db.QueryRowContext(ctx, getKV, key).Scan(&kv.Key, &kv.Value, &kv.Version, &kv.UpdatedAt)
	return kv, err
}

const upsertKV = `INSERT INTO kv (key, value, version, updated_at) VALUES (?, ?, 1, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, version = kv.version + 1, updated_at = excluded.updated_at`

func (q *Queries) UpsertKV(ctx context.Context, key, value, updatedAt string) error {
	_, err := q.db.ExecContext(ctx, upsertKV, key, value, updatedAt)
	return err
}

const insertKVIfAbsent = `INSERT INTO kv (key, value, version, updated_at) VALUES (?, ?, 1, ?)
ON CONFLICT(key) DO NOTHING`

func (q *Queries) InsertKVIfAbsent(ctx context.Context, key, value, updatedAt string) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertKVIfAbsent, key, value, updatedAt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateKVIfVersion = `UPDATE kv SET value = ?, version = version + 1, updated_at = ?
WHERE key = ? AND version = ?`

func (q *Queries) UpdateKVIfVersion(ctx context.Context, key, value, updatedAt string, version int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateKVIfVersion, value, updatedAt, key, version)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const inboxColumns = `id, owner_id, title, body, created_at, read_at`

const createInboxAlert = `INSERT INTO alert_inbox (` + inboxColumns + `) VALUES (?, ?, ?, ?, ?, NULL)`

func (q *Queries) CreateInboxAlert(ctx context.Context, arg AlertInbox) error {
	_, err := q.db.ExecContext(ctx, createInboxAlert, arg.ID, arg.OwnerID, arg.Title, arg.Body, arg.CreatedAt)
	return err
}

const listInboxAlerts = `SELECT ` + inboxColumns + ` FROM alert_inbox
WHERE owner_id = ? AND (? = 0 OR read_at IS NULL)
ORDER BY created_at, rowid`

func (q *Queries) ListInboxAlerts(ctx context.Context, ownerID string, unreadOnly bool) ([]AlertInbox, error) {
	flag := 0
	if unreadOnly {
		flag = 1
	}
	rows, err := q.db.QueryContext(ctx, listInboxAlerts, ownerID, flag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []AlertInbox
	for rows.Next() {
		var a AlertInbox
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Title, &a.Body, &a.CreatedAt, &a.ReadAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const markInboxAlertRead = `UPDATE alert_inbox SET read_at = ?
WHERE id = ? AND owner_id = ? AND read_at IS NULL`

func (q *Queries) MarkInboxAlertRead(ctx context.Context, ownerID, id, readAt string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markInboxAlertRead, readAt, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const inboxAlertExists = `SELECT COUNT(*) FROM alert_inbox WHERE id = ? AND owner_id = ?`

func (q *Queries) InboxAlertExists(ctx context.Context, ownerID, id string) (bool, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, inboxAlertExists, id, ownerID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
