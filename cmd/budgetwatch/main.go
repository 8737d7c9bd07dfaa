package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetwatch/internal/cli"
	apphttp "budgetwatch/internal/http"
	"budgetwatch/internal/log"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig()

	app, err := cli.NewApp(context.Background(), cfg, logger, cli.InboxFallback)
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Expenses:     app.Expenses,
		Budgets:      app.Budgets,
		Alerts:       app.Alerts,
		Permission:   app.Dispatcher,
		Inbox:        app.Backend.Stores.Inbox,
		Ready:        app.Backend.Ping,
		Location:     cfg.Location(),
		RateLimitRPM: cfg.RateLimitRPM,
		Logger:       logger,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})
	app.StartBackground(ctx, 10*time.Minute)

	logger.Info("Starting budgetwatch server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"notifier", cfg.Notifier,
		"timezone", cfg.AlertTimezone)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		app.StopBackground()
		_ = app.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	app.StopBackground()
	if err := app.Close(); err != nil {
		logger.Error("Failed to close backend", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
