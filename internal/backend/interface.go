package backend

import (
	"context"

	"budgetwatch/internal/alert"
	"budgetwatch/internal/notify"
	"budgetwatch/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the stores, the optional notification surface and
// a cleanup function releasing whatever was opened.
type BackendResult struct {
	Stores store.Stores
	// Notifier is nil when NOTIFIER=none; alerts then go to the inbox.
	Notifier alert.Notifier
	// Telegram is set for the telegram notifier so the caller can run Listen.
	Telegram *notify.TelegramSender
	// Ping checks the database behind the stores; nil for the memory backend.
	Ping    func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Close runs Cleanup if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific. The sheets backend keeps budgets, history and the
	// inbox here too.
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Memory backend specific
	DataDirectory string

	// Notification surface
	Notifier      NotifierType
	AMQPURL       string
	AMQPExchange  string
	AMQPQueue     string
	TelegramToken string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// NotifierType selects the notification surface.
type NotifierType string

const (
	NoNotifier       NotifierType = "none"
	AMQPNotifier     NotifierType = "amqp"
	TelegramNotifier NotifierType = "telegram"
)

func (nt NotifierType) IsValid() bool {
	switch nt {
	case NoNotifier, AMQPNotifier, TelegramNotifier:
		return true
	default:
		return false
	}
}
