package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"budgetwatch/internal/alert"
	"budgetwatch/internal/log"
	"budgetwatch/internal/store"
)

const chatPrefix = "telegram_chat:"

// ErrChatNotLinked is returned when the owner has no Telegram chat on record.
var ErrChatNotLinked = errors.New("telegram chat not linked")

// BotAPI is the subset of *tgbotapi.BotAPI used here.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TelegramSender delivers alerts to the chat an owner linked with
// "/start <owner id>".
type TelegramSender struct {
	api    BotAPI
	kv     store.KeyValueStore
	logger *log.Logger
}

var (
	_ Sender = (*TelegramSender)(nil)
	_ Linker = (*TelegramSender)(nil)
)

// NewTelegramBot connects to the Bot API with token.
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	return bot, nil
}

func NewTelegramSender(api BotAPI, kv store.KeyValueStore, logger *log.Logger) *TelegramSender {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &TelegramSender{api: api, kv: kv, logger: logger.WithComponent(log.ComponentTelegram)}
}

func (s *TelegramSender) Send(ctx context.Context, req alert.Request) error {
	return s.SendText(ctx, req.OwnerID, req.Title(), req.Body())
}

// SendText honours ctx only up to the call: the Bot API client has no context support.
func (s *TelegramSender) SendText(ctx context.Context, ownerID, title, body string) error {
	chatID, err := s.chatID(ctx, ownerID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	text := "*" + tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, title) + "*\n" +
		tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, body)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

func (s *TelegramSender) Linked(ctx context.Context, ownerID string) (bool, error) {
	_, err := s.chatID(ctx, ownerID)
	if errors.Is(err, ErrChatNotLinked) {
		return false, nil
	}
	return err == nil, err
}

// LinkChat records chatID as the destination for owner.
func (s *TelegramSender) LinkChat(ctx context.Context, ownerID string, chatID int64) error {
	if err := s.kv.Set(ctx, chatPrefix+ownerID, strconv.FormatInt(chatID, 10)); err != nil {
		return fmt.Errorf("link telegram chat: %w", err)
	}
	return nil
}

func (s *TelegramSender) chatID(ctx context.Context, ownerID string) (int64, error) {
	entry, err := s.kv.Get(ctx, chatPrefix+ownerID)
	if err != nil {
		return 0, fmt.Errorf("read telegram chat: %w", err)
	}
	if entry.Version == 0 || entry.Value == "" {
		return 0, ErrChatNotLinked
	}
	id, err := strconv.ParseInt(entry.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: corrupt chat id %q", ErrChatNotLinked, entry.Value)
	}
	return id, nil
}

// Listen long-polls the bot for "/start <owner id>" and links the sending
// chat to that owner. It returns when ctx is done.
func (s *TelegramSender) Listen(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.api.GetUpdatesChan(u)
	defer s.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.handleUpdate(ctx, update)
		}
	}
}

func (s *TelegramSender) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	m := update.Message
	if m == nil || !m.IsCommand() || m.Command() != "start" {
		return
	}
	ownerID := strings.TrimSpace(m.CommandArguments())
	if ownerID == "" {
		s.reply(m.Chat.ID, "Open the link from the app to connect budget alerts.")
		return
	}
	if err := s.LinkChat(ctx, ownerID, m.Chat.ID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to link telegram chat", log.FieldOwner, ownerID, log.FieldError, err)
		s.reply(m.Chat.ID, "Could not connect budget alerts, please try again.")
		return
	}
	s.logger.InfoContext(ctx, "Linked telegram chat", log.FieldOwner, ownerID, "chat_id", m.Chat.ID)
	s.reply(m.Chat.ID, "Budget alerts connected. Enable notifications in the app to receive them here.")
}

func (s *TelegramSender) reply(chatID int64, text string) {
	if _, err := s.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		s.logger.Warn("Failed to reply on telegram", log.FieldError, err)
	}
}
