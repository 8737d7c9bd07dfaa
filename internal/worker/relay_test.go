package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwatch/internal/amqp"
	"budgetwatch/internal/cache"
	"budgetwatch/internal/notify"
	"budgetwatch/internal/store/memory"
)

type fakeSender struct {
	calls int
	err   error
}

func (s *fakeSender) SendText(context.Context, string, string, string) error {
	s.calls++
	return s.err
}

func message() *amqp.BudgetAlertMessage {
	return amqp.NewBudgetAlertMessage("u1", "exceeded", "2024-07", "Groceries",
		"Budget Exceeded: Groceries", "You've spent 12,000 of your 10,000 budget for Groceries.",
		decimal.NewFromInt(12000), decimal.NewFromInt(10000), decimal.NewFromInt(120))
}

func TestRelayDeliversOnce(t *testing.T) {
	sender := &fakeSender{}
	relay := NewAlertRelay(sender, nil, cache.NewLRUCache[bool](16, time.Hour), nil)
	msg := message()

	require.NoError(t, relay.HandleBudgetAlert(context.Background(), msg))
	require.NoError(t, relay.HandleBudgetAlert(context.Background(), msg), "redelivery is acknowledged")
	assert.Equal(t, 1, sender.calls)
}

func TestRelayUnlinkedOwnerGoesToInbox(t *testing.T) {
	mem := memory.New()
	relay := NewAlertRelay(&fakeSender{err: notify.ErrChatNotLinked}, mem, nil, nil)
	msg := message()

	require.NoError(t, relay.HandleBudgetAlert(context.Background(), msg))

	inbox, err := mem.ListAlerts(context.Background(), "u1", true)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, msg.Title, inbox[0].Title)
	assert.Equal(t, msg.Body, inbox[0].Body)
}

func TestRelayUnlinkedWithoutInboxIsDropped(t *testing.T) {
	relay := NewAlertRelay(&fakeSender{err: notify.ErrChatNotLinked}, nil, nil, nil)
	assert.NoError(t, relay.HandleBudgetAlert(context.Background(), message()))
}

func TestRelaySendFailureRequeues(t *testing.T) {
	boom := errors.New("telegram unavailable")
	sender := &fakeSender{err: boom}
	relay := NewAlertRelay(sender, nil, cache.NewLRUCache[bool](16, time.Hour), nil)
	msg := message()

	err := relay.HandleBudgetAlert(context.Background(), msg)
	assert.ErrorIs(t, err, boom)

	// The retry goes through once the chat is reachable again.
	sender.err = nil
	require.NoError(t, relay.HandleBudgetAlert(context.Background(), msg))
	assert.Equal(t, 2, sender.calls)
}
