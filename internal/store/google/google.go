// Package google stores expenses in a Google Sheets spreadsheet. Budgets,
// history and the alert inbox are not kept here.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgetwatch/internal/core"
	"budgetwatch/internal/log"
	"budgetwatch/internal/store"
)

// Columns A:H, one expense per row. Row 1 is a header.
var header = []any{"ID", "Owner", "Date", "Description", "Amount", "Category", "Created", "Updated"}

const (
	colID = iota
	colOwner
	colDate
	colDescription
	colAmount
	colCategory
	colCreated
	colUpdated
	numCols
)

// valuesAPI is the subset of the Sheets values service the store uses.
type valuesAPI interface {
	Get(ctx context.Context, rng string) ([][]any, error)
	Append(ctx context.Context, rng string, rows [][]any) error
	Update(ctx context.Context, rng string, rows [][]any) error
	Clear(ctx context.Context, rng string) error
}

type Client struct {
	values valuesAPI
	sheet  string
	now    func() time.Time
	logger *log.Logger
}

var _ store.ExpenseStore = (*Client)(nil)

// NewFromEnv creates a client from service account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, spreadsheetID, sheetName string, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Expenses"
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(&serviceValues{svc: svc.Spreadsheets.Values, spreadsheetID: spreadsheetID}, sheetName, logger), nil
}

// New wraps an existing values API.
func New(values valuesAPI, sheetName string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{
		values: values,
		sheet:  sheetName,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.WithComponent(log.ComponentSheets),
	}
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// serviceValues adapts *gsheet.SpreadsheetsValuesService to valuesAPI.
type serviceValues struct {
	svc           *gsheet.SpreadsheetsValuesService
	spreadsheetID string
}

func (s *serviceValues) Get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := s.svc.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s *serviceValues) Append(ctx context.Context, rng string, rows [][]any) error {
	_, err := s.svc.Append(s.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func (s *serviceValues) Update(ctx context.Context, rng string, rows [][]any) error {
	_, err := s.svc.Update(s.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *serviceValues) Clear(ctx context.Context, rng string) error {
	_, err := s.svc.Clear(s.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (c *Client) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	rows, err := c.readAll(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	if len(rows) == 0 {
		if err := c.values.Update(ctx, c.rowRange(1), [][]any{header}); err != nil {
			return core.Expense{}, fmt.Errorf("write header in sheet %s: %w", c.sheet, err)
		}
	}

	now := c.now()
	e.ID = uuid.NewString()
	e.CreatedAt, e.UpdatedAt = now, now
	if err := c.values.Append(ctx, fmt.Sprintf("%s!A:H", c.sheet), [][]any{toRow(e)}); err != nil {
		return core.Expense{}, fmt.Errorf("append to sheet %s: %w", c.sheet, err)
	}
	return e, nil
}

func (c *Client) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	rows, err := c.readAll(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	idx, existing, ok := find(rows, e.OwnerID, e.ID)
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = c.now()
	if err := c.values.Update(ctx, c.rowRange(idx+1), [][]any{toRow(e)}); err != nil {
		return core.Expense{}, fmt.Errorf("update sheet %s: %w", c.sheet, err)
	}
	return e, nil
}

// DeleteExpense blanks the expense row. Blank rows are skipped on read.
func (c *Client) DeleteExpense(ctx context.Context, ownerID, id string) error {
	rows, err := c.readAll(ctx)
	if err != nil {
		return err
	}
	idx, _, ok := find(rows, ownerID, id)
	if !ok {
		return core.ErrNotFound
	}
	if err := c.values.Clear(ctx, c.rowRange(idx+1)); err != nil {
		return fmt.Errorf("clear row in sheet %s: %w", c.sheet, err)
	}
	return nil
}

func (c *Client) GetExpense(ctx context.Context, ownerID, id string) (core.Expense, error) {
	rows, err := c.readAll(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	_, e, ok := find(rows, ownerID, id)
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

// ListExpenses returns the owner's expenses in sheet order. Rows that do
// not parse are skipped with a warning.
func (c *Client) ListExpenses(ctx context.Context, ownerID string) ([]core.Expense, error) {
	rows, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Expense
	for i, row := range rows {
		cols := toStrings(row)
		if i == 0 || isBlank(cols) || safeGet(cols, colOwner) != ownerID {
			continue
		}
		e, err := parseRow(cols)
		if err != nil {
			c.logger.WarnContext(ctx, "Skipping unreadable expense row", "row", i+1, log.FieldError, err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (c *Client) readAll(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:H", c.sheet)
	rows, err := c.values.Get(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return rows, nil
}

func (c *Client) rowRange(row int) string {
	return fmt.Sprintf("%s!A%d:H%d", c.sheet, row, row)
}

// find returns the zero-based row index of the expense. Row 0 is the header.
func find(rows [][]any, ownerID, id string) (int, core.Expense, bool) {
	for i := 1; i < len(rows); i++ {
		cols := toStrings(rows[i])
		if safeGet(cols, colID) != id || safeGet(cols, colOwner) != ownerID {
			continue
		}
		e, err := parseRow(cols)
		if err != nil {
			return 0, core.Expense{}, false
		}
		return i, e, true
	}
	return 0, core.Expense{}, false
}

func toRow(e core.Expense) []any {
	return []any{
		e.ID,
		e.OwnerID,
		e.OccurredOn.String(),
		e.Description,
		e.Amount.String(),
		string(e.Category),
		e.CreatedAt.Format(time.RFC3339Nano),
		e.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func parseRow(cols []string) (core.Expense, error) {
	if len(cols) < colCategory+1 {
		return core.Expense{}, fmt.Errorf("expected %d columns, got %d", numCols, len(cols))
	}
	date, err := core.ParseDate(cols[colDate])
	if err != nil {
		return core.Expense{}, err
	}
	amount, ok := parseAmount(cols[colAmount])
	if !ok {
		return core.Expense{}, fmt.Errorf("%w: %q", core.ErrInvalidAmount, cols[colAmount])
	}
	e := core.Expense{
		ID:          cols[colID],
		OwnerID:     cols[colOwner],
		OccurredOn:  date,
		Description: cols[colDescription],
		Amount:      amount,
		Category:    core.NormalizeCategory(cols[colCategory]),
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, safeGet(cols, colCreated))
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, safeGet(cols, colUpdated))
	return e, nil
}

// parseAmount accepts plain numbers, a decimal comma and thousands
// separators as the sheet UI may reformat cells.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	// "12,50" is a decimal comma, "1,234" a thousands separator.
	if i := strings.Index(s, ","); i >= 0 && strings.Count(s, ",") == 1 && !strings.Contains(s, ".") && len(s)-i != 4 {
		s = s[:i] + "." + s[i+1:]
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func isBlank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}
