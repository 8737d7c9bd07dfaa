package cli

import (
	"context"
	"fmt"
	"time"

	"budgetwatch/internal/alert"
	"budgetwatch/internal/backend"
	"budgetwatch/internal/cache"
	"budgetwatch/internal/config"
	"budgetwatch/internal/core"
	"budgetwatch/internal/history"
	"budgetwatch/internal/log"
	"budgetwatch/internal/notify"
	"budgetwatch/internal/services"
	"budgetwatch/internal/store"
)

// App is the wired service graph shared by the binaries.
type App struct {
	Backend    *backend.BackendResult
	Dispatcher *alert.Dispatcher
	Budgets    *services.BudgetService
	Expenses   *services.ExpenseService
	Alerts     *services.AlertService
	Caches     *cache.Manager
}

// FallbackFunc picks the synchronous alerter for a set of stores.
type FallbackFunc func(stores store.Stores, logger *log.Logger) alert.Alerter

// InboxFallback stores fallback alerts in the inbox for API clients to show.
func InboxFallback(stores store.Stores, logger *log.Logger) alert.Alerter {
	if stores.Inbox == nil {
		return notify.NewLogAlerter(logger)
	}
	return notify.NewInboxAlerter(stores.Inbox)
}

// LogFallback writes fallback alerts to the log.
func LogFallback(_ store.Stores, logger *log.Logger) alert.Alerter {
	return notify.NewLogAlerter(logger)
}

// NewApp opens the configured backend and wires the services on top of it.
// Call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger, fallback FallbackFunc) (*App, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	budgetCache := cache.NewLRUCache[[]core.Budget](cfg.BudgetCacheSize, cfg.BudgetCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(budgetCache)

	dispatcher := alert.NewDispatcher(res.Notifier, fallback(res.Stores, logger), cfg.AlertIOTimeout, logger)
	budgets := services.NewBudgetService(res.Stores.Budgets, budgetCache, logger)
	alerts := services.NewAlertService(
		res.Stores.Expenses,
		budgets,
		history.NewStore(res.Stores.KV, logger),
		dispatcher,
		services.AlertOptions{
			Location:  cfg.Location(),
			IOTimeout: cfg.AlertIOTimeout,
			Retries:   cfg.AlertRetries,
			Currency:  cfg.Currency,
		},
		logger,
	)

	return &App{
		Backend:    res,
		Dispatcher: dispatcher,
		Budgets:    budgets,
		Expenses:   services.NewExpenseService(res.Stores.Expenses, budgets, alerts, logger),
		Alerts:     alerts,
		Caches:     caches,
	}, nil
}

// StartBackground sweeps expired cache entries and, with the telegram
// notifier, listens for chat links until ctx is cancelled.
func (a *App) StartBackground(ctx context.Context, sweepInterval time.Duration) {
	a.Caches.StartCleanup(sweepInterval)
	if a.Backend.Telegram != nil {
		go a.Backend.Telegram.Listen(ctx)
	}
}

// Close releases the backend. Call StopBackground first if it was started.
func (a *App) Close() error {
	return a.Backend.Close()
}

// StopBackground stops the cache sweeper started by StartBackground.
func (a *App) StopBackground() {
	a.Caches.Stop()
}
