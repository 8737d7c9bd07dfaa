// Package alert decides which budget alerts fire and delivers them.
package alert

import (
	"fmt"

	"github.com/shopspring/decimal"

	"budgetwatch/internal/core"
)

// Request is an alert that has been decided but not yet delivered.
type Request struct {
	Kind         core.ThresholdKind `json:"kind"`
	OwnerID      string             `json:"owner_id"`
	MonthYear    core.MonthYear     `json:"-"`
	Category     core.Category      `json:"category"`
	Spent        decimal.Decimal    `json:"spent"`
	BudgetAmount decimal.Decimal    `json:"budget_amount"`
	Percentage   decimal.Decimal    `json:"percentage"`
	// Currency is appended to amounts in the exceeded message when set.
	Currency string `json:"currency,omitempty"`
}

func (r Request) Title() string {
	if r.Kind == core.ThresholdExceeded {
		return "Budget Exceeded: " + string(r.Category)
	}
	return "Budget Warning: " + string(r.Category)
}

func (r Request) Body() string {
	if r.Kind == core.ThresholdExceeded {
		return fmt.Sprintf("You've spent %s of your %s budget for %s.",
			r.money(r.Spent), r.money(r.BudgetAmount), r.Category)
	}
	return fmt.Sprintf("You've spent %s%% of your %s budget.", r.Percentage.StringFixed(0), r.Category)
}

func (r Request) money(d decimal.Decimal) string {
	if r.Currency == "" {
		return core.FormatAmount(d)
	}
	return core.FormatAmount(d) + " " + r.Currency
}
