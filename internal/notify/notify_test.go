package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwatch/internal/alert"
	"budgetwatch/internal/amqp"
	"budgetwatch/internal/core"
	"budgetwatch/internal/store/memory"
)

var exceeded = alert.Request{
	Kind:         core.ThresholdExceeded,
	OwnerID:      "u1",
	MonthYear:    core.NewMonthYear(2024, time.July),
	Category:     core.Groceries,
	Spent:        decimal.NewFromInt(12000),
	BudgetAmount: decimal.NewFromInt(10000),
	Percentage:   decimal.NewFromInt(120),
}

type fakeBot struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	err     error
	updates chan tgbotapi.Update
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.err != nil {
		return tgbotapi.Message{}, b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return b.updates }
func (b *fakeBot) StopReceivingUpdates()                                          {}

func (b *fakeBot) messages() []tgbotapi.MessageConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), b.sent...)
}

type fakePublisher struct {
	msgs []*amqp.BudgetAlertMessage
	err  error
}

func (p *fakePublisher) PublishBudgetAlert(_ context.Context, msg *amqp.BudgetAlertMessage) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func TestPermissionGate(t *testing.T) {
	ctx := context.Background()
	gate := NewPermissionGate(memory.New())

	granted, err := gate.Granted(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, granted, "unknown owners are not granted")

	require.NoError(t, gate.Set(ctx, "u1", true))
	granted, _ = gate.Granted(ctx, "u1")
	assert.True(t, granted)

	require.NoError(t, gate.Set(ctx, "u1", false))
	granted, _ = gate.Granted(ctx, "u1")
	assert.False(t, granted)
}

func TestAMQPSurface(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	s := NewSurface(NewPermissionGate(memory.New()), NewAMQPSender(pub))

	granted, err := s.RequestPermission(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, granted)
	ok, _ := s.HasPermission(ctx, "u1")
	assert.True(t, ok)

	require.NoError(t, s.NotifyNow(ctx, exceeded))
	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.Equal(t, "u1", msg.OwnerID)
	assert.Equal(t, "exceeded", msg.Kind)
	assert.Equal(t, "2024-07", msg.MonthYear)
	assert.Equal(t, "Budget Exceeded: Groceries", msg.Title)
	assert.Equal(t, "You've spent 12,000 of your 10,000 budget for Groceries.", msg.Body)
	assert.NotEmpty(t, msg.ID)

	pub.err = errors.New("broker down")
	assert.Error(t, s.NotifyNow(ctx, exceeded))
}

func TestTelegramRequiresLinkedChat(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	bot := &fakeBot{}
	tg := NewTelegramSender(bot, kv, nil)
	s := NewSurface(NewPermissionGate(kv), tg)

	granted, err := s.RequestPermission(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, granted, "no chat linked yet")
	assert.ErrorIs(t, s.NotifyNow(ctx, exceeded), ErrChatNotLinked)

	require.NoError(t, tg.LinkChat(ctx, "u1", 4242))
	granted, err = s.RequestPermission(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, granted)

	require.NoError(t, s.NotifyNow(ctx, exceeded))
	sent := bot.messages()
	require.Len(t, sent, 1)
	assert.EqualValues(t, 4242, sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, sent[0].ParseMode)
	assert.True(t, strings.HasPrefix(sent[0].Text, "*Budget Exceeded: Groceries*\n"))
	assert.Contains(t, sent[0].Text, `12,000 of your 10,000 budget for Groceries\.`)
}

func TestTelegramSendError(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	tg := NewTelegramSender(&fakeBot{err: errors.New("forbidden")}, kv, nil)
	require.NoError(t, tg.LinkChat(ctx, "u1", 1))
	assert.Error(t, tg.Send(ctx, exceeded))
}

func TestTelegramListenLinksChat(t *testing.T) {
	kv := memory.New()
	bot := &fakeBot{updates: make(chan tgbotapi.Update, 2)}
	tg := NewTelegramSender(bot, kv, nil)

	command := func(text string, chatID int64) tgbotapi.Update {
		return tgbotapi.Update{Message: &tgbotapi.Message{
			Text:     text,
			Chat:     &tgbotapi.Chat{ID: chatID},
			Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len("/start")}},
		}}
	}
	bot.updates <- command("/start", 7)
	bot.updates <- command("/start alice", 99)
	close(bot.updates)

	tg.Listen(context.Background())

	linked, err := tg.Linked(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, linked)
	id, err := tg.chatID(context.Background(), "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 99, id)
	assert.Len(t, bot.messages(), 2, "both commands get a reply")
}

func TestInboxAlerter(t *testing.T) {
	ctx := context.Background()
	inbox := memory.New()
	a := NewInboxAlerter(inbox)

	require.NoError(t, a.ShowAlert(ctx, "u1", exceeded.Title(), exceeded.Body()))
	list, err := inbox.ListAlerts(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Budget Exceeded: Groceries", list[0].Title)
}

func TestDispatcherFallsBackToInbox(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	gate := NewPermissionGate(kv)
	pub := &fakePublisher{err: errors.New("broker down")}
	d := alert.NewDispatcher(NewSurface(gate, NewAMQPSender(pub)), NewInboxAlerter(kv), time.Second, nil)

	require.NoError(t, gate.Set(ctx, "u1", true))
	assert.False(t, d.Dispatch(ctx, exceeded))

	list, _ := kv.ListAlerts(ctx, "u1", true)
	assert.Len(t, list, 1)
}
