package core

import "github.com/shopspring/decimal"

// CategorySpendingSummary compares one budget against the month's spending.
type CategorySpendingSummary struct {
	Category     Category        `json:"category"`
	Spent        decimal.Decimal `json:"spent"`
	BudgetAmount decimal.Decimal `json:"budget_amount"`
	Percentage   decimal.Decimal `json:"percentage"`
	Remaining    decimal.Decimal `json:"remaining"`
	Exceeded     bool            `json:"exceeded"`
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// MonthOverview is a compact summary for a specific month.
type MonthOverview struct {
	MonthYear  string                    `json:"month_year"`
	Total      decimal.Decimal           `json:"total"`
	ByCategory []CategoryAmount          `json:"by_category"`
	Budgets    []CategorySpendingSummary `json:"budgets"`
}

// ThresholdKind names the budget threshold an alert is about.
type ThresholdKind string

const (
	ThresholdWarning  ThresholdKind = "warning"
	ThresholdExceeded ThresholdKind = "exceeded"
)
