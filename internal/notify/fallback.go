package notify

import (
	"context"
	"fmt"

	"budgetwatch/internal/alert"
	"budgetwatch/internal/log"
	"budgetwatch/internal/store"
)

// InboxAlerter keeps fallback alerts in the alert inbox; API clients poll
// it and show each unread item as a dialog.
type InboxAlerter struct {
	inbox store.AlertInbox
}

var (
	_ alert.Alerter = (*InboxAlerter)(nil)
	_ alert.Alerter = (*LogAlerter)(nil)
)

func NewInboxAlerter(inbox store.AlertInbox) *InboxAlerter {
	return &InboxAlerter{inbox: inbox}
}

func (a *InboxAlerter) ShowAlert(ctx context.Context, ownerID, title, body string) error {
	if _, err := a.inbox.AddAlert(ctx, store.InboxAlert{OwnerID: ownerID, Title: title, Body: body}); err != nil {
		return fmt.Errorf("add inbox alert: %w", err)
	}
	return nil
}

// LogAlerter writes alerts to the log. The one-shot CLI uses it since it has
// nobody to show a dialog to.
type LogAlerter struct {
	logger *log.Logger
}

func NewLogAlerter(logger *log.Logger) *LogAlerter {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LogAlerter{logger: logger.WithComponent(log.ComponentAlert)}
}

func (a *LogAlerter) ShowAlert(ctx context.Context, ownerID, title, body string) error {
	a.logger.WarnContext(ctx, title, log.FieldOwner, ownerID, "body", body)
	return nil
}
