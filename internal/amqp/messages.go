package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetAlertMessage is a budget alert handed to the push gateway.
// Title and Body are rendered by the producer so consumers only relay them.
type BudgetAlertMessage struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"owner_id"`
	Kind         string          `json:"kind"`
	MonthYear    string          `json:"month_year"`
	Category     string          `json:"category"`
	Spent        decimal.Decimal `json:"spent"`
	BudgetAmount decimal.Decimal `json:"budget_amount"`
	Percentage   decimal.Decimal `json:"percentage"`
	Title        string          `json:"title"`
	Body         string          `json:"body"`
	Timestamp    time.Time       `json:"timestamp"`
}

// NewBudgetAlertMessage stamps a fresh message ID and timestamp.
func NewBudgetAlertMessage(ownerID, kind, monthYear, category, title, body string, spent, budget, pct decimal.Decimal) *BudgetAlertMessage {
	return &BudgetAlertMessage{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Kind:         kind,
		MonthYear:    monthYear,
		Category:     category,
		Spent:        spent,
		BudgetAmount: budget,
		Percentage:   pct,
		Title:        title,
		Body:         body,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
