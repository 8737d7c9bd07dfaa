package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetwatch/internal/alert"
	"budgetwatch/internal/core"
	"budgetwatch/internal/history"
	"budgetwatch/internal/log"
	"budgetwatch/internal/spending"
	"budgetwatch/internal/store"
)

type (
	// BudgetLister returns an owner's budgets for a month in creation order.
	BudgetLister interface {
		ListBudgets(ctx context.Context, ownerID string, month core.MonthYear) ([]core.Budget, error)
	}

	// AlertDispatcher delivers one alert and reports whether the
	// notification surface took it.
	AlertDispatcher interface {
		Dispatch(ctx context.Context, req alert.Request) bool
	}
)

// AlertOptions tunes the pipeline.
type AlertOptions struct {
	// Location decides which calendar day and month "now" falls in.
	Location *time.Location
	// IOTimeout bounds every store call.
	IOTimeout time.Duration
	// Retries is the number of history commit attempts.
	Retries  int
	Currency string
	Now      func() time.Time
}

// DeliveredAlert is an alert together with the channel that carried it.
type DeliveredAlert struct {
	Alert           alert.Request `json:"alert"`
	Title           string        `json:"title"`
	Body            string        `json:"body"`
	ViaNotification bool          `json:"via_notification"`
}

// Report describes one pass of the pipeline.
type Report struct {
	OwnerID   string                         `json:"owner_id"`
	MonthYear string                         `json:"month_year"`
	Today     string                         `json:"today"`
	Summaries []core.CategorySpendingSummary `json:"summaries"`
	Alerts    []DeliveredAlert               `json:"alerts"`
}

// AlertService runs the budget alert pipeline: load budgets and expenses,
// aggregate, evaluate against history, dispatch and persist history.
type AlertService struct {
	expenses   store.ExpenseStore
	budgets    BudgetLister
	history    *history.Store
	dispatcher AlertDispatcher
	opts       AlertOptions
	locks      *ownerLocks
	logger     *log.Logger
}

func NewAlertService(expenses store.ExpenseStore, budgets BudgetLister, hist *history.Store, dispatcher AlertDispatcher, opts AlertOptions, logger *log.Logger) *AlertService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.IOTimeout <= 0 {
		opts.IOTimeout = alert.DefaultTimeout
	}
	if opts.Retries < 1 {
		opts.Retries = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AlertService{
		expenses:   expenses,
		budgets:    budgets,
		history:    hist,
		dispatcher: dispatcher,
		opts:       opts,
		locks:      newOwnerLocks(),
		logger:     logger.WithComponent(log.ComponentAlert),
	}
}

// Check runs one pipeline pass for owner. It is detached from ctx's
// cancellation so a caller that goes away does not lose the history update.
// Passes for the same owner run one at a time.
//
// An error means the inputs could not be loaded and nothing was evaluated.
// Failures after evaluation are logged and never returned: every decided
// alert has been dispatched by then.
func (s *AlertService) Check(ctx context.Context, ownerID string) (Report, error) {
	ctx = context.WithoutCancel(ctx)

	release, err := s.locks.acquire(ctx, ownerID)
	if err != nil {
		return Report{}, fmt.Errorf("acquire alert slot: %w", err)
	}
	defer release()

	today := core.DateOf(s.opts.Now(), s.opts.Location)
	month := today.MonthYear()
	report := Report{OwnerID: ownerID, MonthYear: month.String(), Today: today.String()}
	fields := log.NewFields().WithOwner(ownerID, month.String())

	var (
		budgets  []core.Budget
		expenses []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ctx, cancel := context.WithTimeout(gctx, s.opts.IOTimeout)
		defer cancel()
		var err error
		budgets, err = s.budgets.ListBudgets(ctx, ownerID, month)
		if err != nil {
			return fmt.Errorf("load budgets: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		ctx, cancel := context.WithTimeout(gctx, s.opts.IOTimeout)
		defer cancel()
		var err error
		expenses, err = s.expenses.ListExpenses(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "Skipping budget alert evaluation", fields.WithError(err).ToSlice()...)
		return report, err
	}

	report.Summaries = spending.Aggregate(expenses, budgets, month)
	if len(report.Summaries) == 0 {
		return report, nil
	}

	hctx, cancel := context.WithTimeout(ctx, s.opts.IOTimeout)
	snap, err := s.history.Load(hctx, ownerID)
	cancel()
	if err != nil {
		s.logger.WarnContext(ctx, "Notification history unavailable, treating as empty",
			log.NewFields().WithOwner(ownerID, month.String()).WithError(err).ToSlice()...)
	}

	res := alert.Evaluate(report.Summaries, snap.History, month, today, ownerID)
	s.logger.DebugContext(ctx, "Evaluated budgets",
		append(fields.WithOperation(log.OpEvaluate).ToSlice(), "summaries", len(report.Summaries), "alerts", len(res.Alerts))...)
	if len(res.Alerts) == 0 {
		return report, nil
	}

	for _, req := range res.Alerts {
		req.Currency = s.opts.Currency
		delivered := s.dispatcher.Dispatch(ctx, req)
		report.Alerts = append(report.Alerts, DeliveredAlert{
			Alert:           req,
			Title:           req.Title(),
			Body:            req.Body(),
			ViaNotification: delivered,
		})
	}

	cctx, cancel := context.WithTimeout(ctx, s.opts.IOTimeout)
	defer cancel()
	if err := s.history.Commit(cctx, ownerID, snap, res.History, s.opts.Retries); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist notification history",
			log.NewFields().WithOwner(ownerID, month.String()).WithOperation(log.OpPersist).WithError(err).ToSlice()...)
	}
	return report, nil
}
