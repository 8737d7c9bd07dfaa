package notify

import (
	"context"

	"budgetwatch/internal/alert"
	"budgetwatch/internal/amqp"
)

// Publisher is the part of amqp.Client the sender needs.
type Publisher interface {
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// AMQPSender hands alerts to a push gateway through RabbitMQ.
type AMQPSender struct {
	publisher Publisher
}

func NewAMQPSender(p Publisher) *AMQPSender {
	return &AMQPSender{publisher: p}
}

func (s *AMQPSender) Send(ctx context.Context, req alert.Request) error {
	return s.publisher.PublishBudgetAlert(ctx, ToMessage(req))
}

// ToMessage renders req into the wire message.
func ToMessage(req alert.Request) *amqp.BudgetAlertMessage {
	return amqp.NewBudgetAlertMessage(
		req.OwnerID,
		string(req.Kind),
		req.MonthYear.String(),
		string(req.Category),
		req.Title(),
		req.Body(),
		req.Spent,
		req.BudgetAmount,
		req.Percentage,
	)
}
