package alert

import (
	"context"
	"errors"
	"time"

	"budgetwatch/internal/log"
)

// DefaultTimeout bounds every call to a delivery channel.
const DefaultTimeout = 10 * time.Second

// ErrNoNotifier is returned by RequestPermission when no notification
// surface is configured.
var ErrNoNotifier = errors.New("no notification surface configured")

type (
	// Notifier is the push notification surface.
	Notifier interface {
		HasPermission(ctx context.Context, ownerID string) (bool, error)
		RequestPermission(ctx context.Context, ownerID string) (bool, error)
		// NotifyNow delivers immediately, without scheduling.
		NotifyNow(ctx context.Context, req Request) error
	}

	// Alerter is the synchronous fallback shown to the user directly.
	Alerter interface {
		ShowAlert(ctx context.Context, ownerID, title, body string) error
	}
)

// Dispatcher delivers alerts through the notifier when allowed and falls back
// to the alerter otherwise. An alert handed to Dispatch is never dropped
// silently: if both channels fail it is written to the error log in full.
type Dispatcher struct {
	notifier Notifier
	fallback Alerter
	timeout  time.Duration
	logger   *log.Logger
}

// NewDispatcher builds a dispatcher. notifier may be nil, in which case every
// alert takes the fallback path.
func NewDispatcher(notifier Notifier, fallback Alerter, timeout time.Duration, logger *log.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Dispatcher{
		notifier: notifier,
		fallback: fallback,
		timeout:  timeout,
		logger:   logger.WithComponent(log.ComponentNotify),
	}
}

// Dispatch reports true when the notification surface delivered req and
// false when the fallback was used.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) bool {
	fields := log.NewFields().
		WithOperation(log.OpDispatch).
		WithOwner(req.OwnerID, req.MonthYear.String()).
		WithAlert(string(req.Kind), string(req.Category), req.Spent, req.Percentage)

	if d.notify(ctx, req, fields) {
		d.logger.InfoContext(ctx, "Budget alert delivered", append(fields.ToSlice(), log.FieldChannel, "notification")...)
		return true
	}

	if d.fallback != nil {
		fctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := d.fallback.ShowAlert(fctx, req.OwnerID, req.Title(), req.Body())
		cancel()
		if err == nil {
			d.logger.InfoContext(ctx, "Budget alert delivered", append(fields.ToSlice(), log.FieldChannel, "fallback")...)
			return false
		}
		fields.WithError(err)
	}

	d.logger.ErrorContext(ctx, "Budget alert could not be shown",
		append(fields.ToSlice(), "title", req.Title(), "body", req.Body())...)
	return false
}

func (d *Dispatcher) notify(ctx context.Context, req Request, fields log.LogFields) bool {
	if d.notifier == nil {
		return false
	}

	pctx, cancel := context.WithTimeout(ctx, d.timeout)
	granted, err := d.notifier.HasPermission(pctx, req.OwnerID)
	cancel()
	if err != nil {
		d.logger.WarnContext(ctx, "Permission check failed, using fallback",
			append(fields.ToSlice(), log.FieldError, err)...)
		return false
	}
	if !granted {
		d.logger.DebugContext(ctx, "Notification permission not granted, using fallback", fields.ToSlice()...)
		return false
	}

	nctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.notifier.NotifyNow(nctx, req); err != nil {
		d.logger.WarnContext(ctx, "Notification delivery failed, using fallback",
			append(fields.ToSlice(), log.FieldError, err)...)
		return false
	}
	return true
}

// RequestPermission asks the notification surface to enable delivery for owner.
func (d *Dispatcher) RequestPermission(ctx context.Context, ownerID string) (bool, error) {
	if d.notifier == nil {
		return false, ErrNoNotifier
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.notifier.RequestPermission(ctx, ownerID)
}
