// Package worker consumes budget alerts published on AMQP and delivers them
// to the owner's chat.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budgetwatch/internal/amqp"
	"budgetwatch/internal/cache"
	"budgetwatch/internal/log"
	"budgetwatch/internal/notify"
	"budgetwatch/internal/store"
)

// TextSender delivers a rendered alert to an owner.
type TextSender interface {
	SendText(ctx context.Context, ownerID, title, body string) error
}

// AlertRelay forwards BudgetAlertMessages to a TextSender. Owners without a
// linked chat get the alert in their inbox instead.
type AlertRelay struct {
	sender TextSender
	inbox  store.AlertInbox
	seen   cache.Cache[bool]
	logger *log.Logger
}

// NewAlertRelay wires the relay. inbox and seen may be nil. seen remembers
// delivered message IDs so broker redeliveries are not sent twice.
func NewAlertRelay(sender TextSender, inbox store.AlertInbox, seen cache.Cache[bool], logger *log.Logger) *AlertRelay {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AlertRelay{sender: sender, inbox: inbox, seen: seen, logger: logger.WithComponent(log.ComponentNotify)}
}

// HandleBudgetAlert processes a single budget alert message from AMQP.
// Returning an error requeues the message.
func (r *AlertRelay) HandleBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
	fields := log.NewFields().
		WithOwner(msg.OwnerID, msg.MonthYear).
		WithAlert(msg.Kind, msg.Category, msg.Spent, msg.Percentage)

	if r.seen != nil {
		if _, ok := r.seen.Get(msg.ID); ok {
			r.logger.DebugContext(ctx, "Skipping redelivered alert", append(fields.ToSlice(), "id", msg.ID)...)
			return nil
		}
	}

	err := r.sender.SendText(ctx, msg.OwnerID, msg.Title, msg.Body)
	switch {
	case err == nil:
		fields[log.FieldChannel] = "telegram"
	case errors.Is(err, notify.ErrChatNotLinked) && r.inbox != nil:
		if _, ierr := r.inbox.AddAlert(ctx, store.InboxAlert{
			OwnerID:   msg.OwnerID,
			Title:     msg.Title,
			Body:      msg.Body,
			CreatedAt: msg.Timestamp,
		}); ierr != nil {
			return fmt.Errorf("store alert in inbox: %w", ierr)
		}
		fields[log.FieldChannel] = "inbox"
	case errors.Is(err, notify.ErrChatNotLinked):
		// Nobody to deliver to; requeueing would loop forever.
		r.logger.WarnContext(ctx, "Dropping alert for owner without chat", fields.ToSlice()...)
		r.remember(msg.ID)
		return nil
	default:
		r.logger.ErrorContext(ctx, "Failed to relay budget alert", fields.WithError(err).ToSlice()...)
		return fmt.Errorf("relay alert %s: %w", msg.ID, err)
	}

	r.remember(msg.ID)
	r.logger.InfoContext(ctx, "Relayed budget alert",
		append(fields.ToSlice(), "id", msg.ID, "age_ms", time.Since(msg.Timestamp).Milliseconds())...)
	return nil
}

func (r *AlertRelay) remember(id string) {
	if r.seen != nil {
		r.seen.Set(id, true)
	}
}
