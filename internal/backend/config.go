package backend

import (
	"fmt"

	"budgetwatch/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	notifier := NotifierType(appConfig.Notifier)
	if notifier == "" {
		notifier = NoNotifier
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,

		// Memory backend seeds budgets from the default data directory
		DataDirectory: "data",

		Notifier:      notifier,
		AMQPURL:       appConfig.AMQPURL,
		AMQPExchange:  appConfig.AMQPExchange,
		AMQPQueue:     appConfig.AMQPQueue,
		TelegramToken: appConfig.TelegramToken,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}

	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sheets backend")
		}

	case MemoryBackend:
		// DataDirectory will default to "data" if empty
	}

	if !c.Notifier.IsValid() {
		return fmt.Errorf("invalid notifier: %s", c.Notifier)
	}
	switch c.Notifier {
	case AMQPNotifier:
		if c.AMQPURL == "" {
			return fmt.Errorf("AMQP URL is required for amqp notifier")
		}
	case TelegramNotifier:
		if c.TelegramToken == "" {
			return fmt.Errorf("Telegram token is required for telegram notifier")
		}
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, SheetsBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
