// Command budgetwatch-relay consumes budget alerts from AMQP and delivers
// them to each owner's linked Telegram chat. It also links chats: an owner
// sends "/start <owner id>" to the bot.
package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"budgetwatch/internal/amqp"
	"budgetwatch/internal/backend"
	"budgetwatch/internal/cache"
	"budgetwatch/internal/cli"
	"budgetwatch/internal/log"
	"budgetwatch/internal/notify"
	"budgetwatch/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig()
	logger.Info("Starting budgetwatch-relay")

	if cfg.AMQPURL == "" || strings.TrimSpace(cfg.TelegramToken) == "" {
		logger.Error("The relay needs AMQP_URL and TELEGRAM_TOKEN")
		os.Exit(1)
	}
	if cfg.DataBackend == "memory" {
		logger.Warn("Memory backend does not share chat links or the inbox with the server")
	}

	// The relay reads chat links and writes the inbox; it never publishes.
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	backendCfg.Notifier = backend.NoNotifier
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer res.Close()

	bot, err := notify.NewTelegramBot(cfg.TelegramToken)
	if err != nil {
		logger.Error("Failed to initialize Telegram bot", log.FieldError, err)
		os.Exit(1)
	}
	sender := notify.NewTelegramSender(bot, res.Stores.KV, logger)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	seen := cache.NewLRUCache[bool](10000, 24*time.Hour)
	caches := cache.NewManager(logger)
	caches.Register(seen)
	caches.StartCleanup(time.Hour)
	defer caches.Stop()

	relay := worker.NewAlertRelay(sender, res.Stores.Inbox, seen, logger)

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, nil)

	go sender.Listen(ctx)

	logger.Info("Consuming budget alerts", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	if err := amqpClient.ConsumeBudgetAlerts(ctx, relay.HandleBudgetAlert); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Relay stopped gracefully")
}
