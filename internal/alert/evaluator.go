package alert

import (
	"github.com/shopspring/decimal"

	"budgetwatch/internal/core"
	"budgetwatch/internal/history"
)

// Thresholds in percent of the budget.
var (
	warningPercent  = decimal.NewFromInt(80)
	exceededPercent = decimal.NewFromInt(100)
)

// Result carries the alerts to send and the history that records them.
type Result struct {
	Alerts  []Request
	History history.Map
}

// Evaluate decides which alerts fire for month on today.
//
// Per category the exceeded check runs first; when it applies the warning
// check is skipped for that pass. A key already notified today never fires
// again on the same day. h is not modified.
func Evaluate(summaries []core.CategorySpendingSummary, h history.Map, month core.MonthYear, today core.Date, ownerID string) Result {
	res := Result{History: h}
	if res.History == nil {
		res.History = history.Map{}
	}

	for _, s := range summaries {
		kind, ok := threshold(s.Percentage)
		if !ok {
			continue
		}
		// Exceeded shadows warning even when exceeded was already sent today.
		if history.WasNotifiedToday(res.History, month, s.Category, kind, today) {
			continue
		}
		res.Alerts = append(res.Alerts, Request{
			Kind:         kind,
			OwnerID:      ownerID,
			MonthYear:    month,
			Category:     s.Category,
			Spent:        s.Spent,
			BudgetAmount: s.BudgetAmount,
			Percentage:   s.Percentage,
		})
		res.History = history.RecordNotified(res.History, month, s.Category, kind, today)
	}
	return res
}

func threshold(pct decimal.Decimal) (core.ThresholdKind, bool) {
	switch {
	case pct.GreaterThanOrEqual(exceededPercent):
		return core.ThresholdExceeded, true
	case pct.GreaterThanOrEqual(warningPercent):
		return core.ThresholdWarning, true
	default:
		return "", false
	}
}
