package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwatch/internal/alert"
	"budgetwatch/internal/history"
	"budgetwatch/internal/log"
	"budgetwatch/internal/notify"
	"budgetwatch/internal/services"
	"budgetwatch/internal/store/memory"
)

type testEnv struct {
	srv *Server
	mem *memory.Store
}

func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()

	now := time.Date(2024, 7, 15, 9, 0, 0, 0, time.UTC)
	logger := log.New(log.Config{Output: io.Discard, Format: "text"})
	mem := memory.New()

	budgets := services.NewBudgetService(mem, nil, logger)
	dispatcher := alert.NewDispatcher(nil, notify.NewInboxAlerter(mem), time.Second, logger)
	alerts := services.NewAlertService(mem, budgets, history.NewStore(mem, logger), dispatcher,
		services.AlertOptions{Now: func() time.Time { return now }}, logger)

	deps := Deps{
		Expenses:     services.NewExpenseService(mem, budgets, alerts, logger),
		Budgets:      budgets,
		Alerts:       alerts,
		Inbox:        mem,
		RateLimitRPM: 100,
		Logger:       logger,
	}
	if mutate != nil {
		mutate(&deps)
	}

	srv := NewServer(":0", deps)
	srv.now = func() time.Time { return now }
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, mem: mem}
}

func (e *testEnv) do(t *testing.T, method, path, owner, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if owner != "" {
		r.Header.Set(OwnerHeader, owner)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, r)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestExpenseSaveTriggersWarningIntoInbox(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPost, "/api/budgets", "u1", `{"category":"Groceries","amount":"100","month":"2024-07"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodPost, "/api/expenses", "u1", `{"description":"Market","amount":"85","category":"food","date":"2024-07-10"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("Location"))

	saved := decode[struct {
		Expense struct {
			ID       string `json:"id"`
			Category string `json:"category"`
			Date     string `json:"date"`
		} `json:"expense"`
		Alerts []struct {
			Title           string `json:"title"`
			ViaNotification bool   `json:"via_notification"`
		} `json:"alerts"`
	}](t, rr)
	assert.Equal(t, "Groceries", saved.Expense.Category)
	assert.Equal(t, "2024-07-10", saved.Expense.Date)
	require.Len(t, saved.Alerts, 1)
	assert.Equal(t, "Budget Warning: Groceries", saved.Alerts[0].Title)
	assert.False(t, saved.Alerts[0].ViaNotification)

	// The fallback put the alert in the inbox.
	rr = env.do(t, http.MethodGet, "/api/alerts?unread=1", "u1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	inbox := decode[struct {
		Alerts []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"alerts"`
	}](t, rr)
	require.Len(t, inbox.Alerts, 1)

	rr = env.do(t, http.MethodPost, "/api/alerts/"+inbox.Alerts[0].ID+"/read", "u1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/alerts?unread=1", "u1", "")
	assert.JSONEq(t, `{"alerts":[]}`, rr.Body.String())

	// Same day, same threshold: no second alert.
	rr = env.do(t, http.MethodPost, "/api/expenses", "u1", `{"description":"Bread","amount":"1","category":"Groceries","date":"2024-07-11"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"alerts":[]`)
}

func TestExpenseCRUD(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPost, "/api/expenses", "u1", `{"description":"Taxi","amount":"12,50","category":"transport"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[struct {
		Expense expenseJSON `json:"expense"`
	}](t, rr)
	assert.Equal(t, "2024-07-15", created.Expense.Date, "date defaults to today")
	assert.Equal(t, "12.5", created.Expense.Amount.String())
	id := created.Expense.ID

	rr = env.do(t, http.MethodGet, "/api/expenses/"+id, "u1", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/expenses/"+id, "someone-else", "")
	assert.Equal(t, http.StatusNotFound, rr.Code, "owners never see each other's expenses")

	rr = env.do(t, http.MethodPut, "/api/expenses/"+id, "u1", `{"description":"Taxi home","amount":"20","category":"Transport","date":"2024-07-14"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"description":"Taxi home"`)

	rr = env.do(t, http.MethodPut, "/api/expenses/"+id, "u1", `{"description":"Taxi","amount":"20","category":"Transport"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, "update needs the full record")

	rr = env.do(t, http.MethodGet, "/api/expenses?month=2024-07", "u1", "")
	list := decode[struct {
		Expenses []expenseJSON `json:"expenses"`
	}](t, rr)
	require.Len(t, list.Expenses, 1)

	rr = env.do(t, http.MethodGet, "/api/expenses?month=2024-06", "u1", "")
	assert.JSONEq(t, `{"expenses":[]}`, rr.Body.String())

	rr = env.do(t, http.MethodDelete, "/api/expenses/"+id, "u1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodDelete, "/api/expenses/"+id, "u1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPost, "/api/budgets", "u1", `{"category":"Housing","amount":"500","month":"2024-07"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	tests := []struct {
		name   string
		method string
		path   string
		owner  string
		body   string
		status int
	}{
		{"missing owner", http.MethodGet, "/api/expenses", "", "", http.StatusUnauthorized},
		{"zero amount", http.MethodPost, "/api/expenses", "u1", `{"description":"x","amount":"0","category":"Groceries"}`, http.StatusUnprocessableEntity},
		{"empty description", http.MethodPost, "/api/expenses", "u1", `{"description":" ","amount":"3","category":"Groceries"}`, http.StatusUnprocessableEntity},
		{"bad date", http.MethodPost, "/api/expenses", "u1", `{"description":"x","amount":"3","date":"15/07/2024"}`, http.StatusUnprocessableEntity},
		{"malformed body", http.MethodPost, "/api/expenses", "u1", `{"description":`, http.StatusBadRequest},
		{"duplicate budget", http.MethodPost, "/api/budgets", "u1", `{"category":"rent","amount":"300","month":"2024-07"}`, http.StatusConflict},
		{"bad month", http.MethodGet, "/api/budgets?month=2024-13", "u1", "", http.StatusUnprocessableEntity},
		{"unknown budget", http.MethodDelete, "/api/budgets/nope", "u1", "", http.StatusNotFound},
		{"unknown alert", http.MethodPost, "/api/alerts/nope/read", "u1", "", http.StatusNotFound},
		{"no notifier", http.MethodPost, "/api/notifications/permission", "u1", "", http.StatusServiceUnavailable},
		{"wrong method", http.MethodPatch, "/api/summary", "u1", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, tt.method, tt.path, tt.owner, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
}

func TestSummaryAndCheck(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, http.MethodPost, "/api/budgets", "u1", `{"category":"Dining Out","amount":"50","month":"2024-07"}`)
	env.do(t, http.MethodPost, "/api/expenses", "u1", `{"description":"Dinner","amount":"60","category":"Dining Out","date":"2024-07-02"}`)
	env.do(t, http.MethodPost, "/api/expenses", "u1", `{"description":"Bus","amount":"5","category":"Transport","date":"2024-07-03"}`)

	rr := env.do(t, http.MethodGet, "/api/summary?month=2024-07", "u1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	summary := decode[struct {
		MonthYear string `json:"month_year"`
		Total     string `json:"total"`
		Budgets   []struct {
			Category string `json:"category"`
			Exceeded bool   `json:"exceeded"`
		} `json:"budgets"`
	}](t, rr)
	assert.Equal(t, "2024-07", summary.MonthYear)
	assert.Equal(t, "65", summary.Total)
	require.Len(t, summary.Budgets, 1)
	assert.True(t, summary.Budgets[0].Exceeded)

	// The exceeded alert went out on save, so an explicit check is quiet.
	rr = env.do(t, http.MethodPost, "/api/alerts/check", "u1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	report := decode[services.Report](t, rr)
	assert.Equal(t, "2024-07-15", report.Today)
	assert.Empty(t, report.Alerts)
	require.Len(t, report.Summaries, 1)
}

type stubPermission struct{ granted bool }

func (p stubPermission) RequestPermission(context.Context, string) (bool, error) {
	return p.granted, nil
}

func TestRequestPermission(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Permission = stubPermission{granted: true} })

	rr := env.do(t, http.MethodPost, "/api/notifications/permission", "u1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"granted":true}`, rr.Body.String())
}

func TestHealthAndReadiness(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Ready = func(context.Context) error { return errors.New("database is locked") }
	})

	rr := env.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = env.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestWritesAreRateLimited(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.RateLimitRPM = 2 })

	body := `{"description":"Coffee","amount":"2","category":"Dining Out"}`
	for i := 0; i < 2; i++ {
		rr := env.do(t, http.MethodPost, "/api/expenses", "u1", body)
		require.Equal(t, http.StatusCreated, rr.Code)
	}
	rr := env.do(t, http.MethodPost, "/api/expenses", "u1", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	rr = env.do(t, http.MethodGet, "/api/expenses", "u1", "")
	assert.Equal(t, http.StatusOK, rr.Code, "reads are not limited")
}

func TestSuspiciousRequestsAreBlocked(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/.env", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
