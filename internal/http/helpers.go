package http

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budgetwatch/internal/alert"
	"budgetwatch/internal/core"
	"budgetwatch/internal/log"
	"budgetwatch/internal/services"
)

// expenseJSON is the wire form of core.Expense.
type expenseJSON struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    core.Category   `json:"category"`
	Date        string          `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type budgetJSON struct {
	ID        string          `json:"id"`
	Category  core.Category   `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Month     string          `json:"month"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type saveResultJSON struct {
	Expense expenseJSON               `json:"expense"`
	Alerts  []services.DeliveredAlert `json:"alerts"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount,
		Category:    e.Category,
		Date:        e.OccurredOn.String(),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toBudgetJSON(b core.Budget) budgetJSON {
	return budgetJSON{
		ID:        b.ID,
		Category:  b.Category,
		Amount:    b.Amount,
		Month:     b.MonthYear.String(),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func toSaveResultJSON(res services.SaveResult) saveResultJSON {
	alerts := res.Alerts
	if alerts == nil {
		alerts = []services.DeliveredAlert{}
	}
	return saveResultJSON{Expense: toExpenseJSON(res.Expense), Alerts: alerts}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidMonth,
	core.ErrInvalidDate,
	core.ErrInvalidDay,
	core.ErrInvalidCategory,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrEmptyOwner,
}

// errorFor maps a service error to its response: validation 422, missing
// 404, duplicate 409 and everything else 500. Only 500s are logged, with
// the cause kept out of the response body.
func errorFor(ctx context.Context, err error, operation string) *ResponseBuilder {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("not found")
	case errors.Is(err, core.ErrDuplicateBudget):
		return ConflictError(core.ErrDuplicateBudget.Error())
	case errors.Is(err, alert.ErrNoNotifier):
		return ServiceUnavailableError("notifications are not configured")
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return UnprocessableEntityError(err.Error())
		}
	}

	log.FromContext(ctx).ErrorContext(ctx, "Request failed",
		log.NewFields().WithOperation(operation).WithError(err).ToSlice()...)
	return InternalServerError("internal error")
}
