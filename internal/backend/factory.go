package backend

import (
	"context"
	"errors"
	"fmt"

	"budgetwatch/internal/amqp"
	"budgetwatch/internal/log"
	"budgetwatch/internal/notify"
	"budgetwatch/internal/storage"
	"budgetwatch/internal/store"
	gsheet "budgetwatch/internal/store/google"
	"budgetwatch/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger

	newBot    func(token string) (notify.BotAPI, error)
	newSheets func(ctx context.Context, spreadsheetID, sheetName string, logger *log.Logger) (store.ExpenseStore, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		newBot: func(token string) (notify.BotAPI, error) {
			return notify.NewTelegramBot(token)
		},
		newSheets: func(ctx context.Context, id, name string, logger *log.Logger) (store.ExpenseStore, error) {
			return gsheet.NewFromEnv(ctx, id, name, logger)
		},
	}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case SheetsBackend:
		result, err = f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		result, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := f.attachNotifier(result, config); err != nil {
		result.Close()
		return nil, err
	}
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Stores:  store.Stores{Expenses: repo, Budgets: repo, KV: repo, Inbox: repo},
		Ping:    repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

// createSheetsBackend reads and writes expenses in Google Sheets and keeps
// everything else in SQLite.
func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	sheets, err := f.newSheets(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName, f.logger)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleSheetName,
		"db_path", config.SQLiteDBPath)

	return &BackendResult{
		Stores:  store.Stores{Expenses: sheets, Budgets: repo, KV: repo, Inbox: repo},
		Ping:    repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data" // Default directory
	}

	mem := memory.NewFromFiles(dataDir)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{Stores: mem.Stores()}, nil
}

// attachNotifier builds the notification surface. An unreachable broker is
// not fatal: alerts then fall back to the inbox.
func (f *DefaultFactory) attachNotifier(result *BackendResult, config Config) error {
	gate := notify.NewPermissionGate(result.Stores.KV)

	switch config.Notifier {
	case AMQPNotifier:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, alerts will use the inbox", log.FieldError, err)
			return nil
		}
		result.Notifier = notify.NewSurface(gate, notify.NewAMQPSender(client))
		result.Cleanup = chain(result.Cleanup, client.Close)
		f.logger.Info("Initialized AMQP notifier", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)

	case TelegramNotifier:
		bot, err := f.newBot(config.TelegramToken)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}
		sender := notify.NewTelegramSender(bot, result.Stores.KV, f.logger)
		result.Notifier = notify.NewSurface(gate, sender)
		result.Telegram = sender
		f.logger.Info("Initialized Telegram notifier")

	case NoNotifier:
		f.logger.Info("No notifier configured, alerts will use the inbox")
	}
	return nil
}

func chain(first, second CleanupFunc) CleanupFunc {
	if first == nil {
		return second
	}
	return func() error {
		return errors.Join(second(), first())
	}
}
