package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgetwatch/internal/core"
	"budgetwatch/internal/log"
	"budgetwatch/internal/middleware/ratelimit"
	"budgetwatch/internal/middleware/security"
	"budgetwatch/internal/middleware/trace"
	"budgetwatch/internal/services"
	"budgetwatch/internal/store"
)

// PermissionRequester asks the notification surface to enable delivery.
type PermissionRequester interface {
	RequestPermission(ctx context.Context, ownerID string) (bool, error)
}

// Deps holds everything the handlers call into.
type Deps struct {
	Expenses   *services.ExpenseService
	Budgets    *services.BudgetService
	Alerts     *services.AlertService
	Permission PermissionRequester
	Inbox      store.AlertInbox

	// Ready reports whether the backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error

	// Location decides which month "current" means for default month parameters.
	Location     *time.Location
	RateLimitRPM int
	Logger       *log.Logger
}

type Server struct {
	http.Server
	deps        Deps
	logger      *log.Logger
	now         func() time.Time
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}

	detector := security.NewDetector()
	s := &Server{
		deps:        deps,
		logger:      deps.Logger.WithComponent(log.ComponentHTTP),
		now:         time.Now,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitRPM}),
		detector:    detector,
		tracer:      trace.NewMiddleware(deps.Logger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("GET /api/budgets/{id}", s.handleGetBudget)
	mux.HandleFunc("PUT /api/budgets/{id}", s.handleUpdateBudget)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/alerts", s.handleListAlerts)
	mux.HandleFunc("POST /api/alerts/{id}/read", s.handleMarkAlertRead)
	mux.HandleFunc("POST /api/alerts/check", s.handleCheckAlerts)
	mux.HandleFunc("POST /api/notifications/permission", s.handleRequestPermission)

	// Writes are rate limited per client IP; reads are not.
	limited := s.rateLimiter.Middleware(detector.ExtractClientIP, isWrite, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(headers.Middleware(detector.Middleware(limited))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func isWrite(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)

		m := s.tracer.GetMetrics()
		s.logger.Info("HTTP server stopped",
			"total_requests", m.TotalRequests,
			"server_errors", m.ServerErrors,
			"avg_response_us", m.AverageResponseTime,
			"rate_limited", s.rateLimiter.GetMetrics().TotalHits,
			"blocked_requests", s.detector.GetMetrics().BlockedRequests)
	})
	return shutdownErr
}

// today is the current calendar date in the configured location.
func (s *Server) today() core.Date {
	return core.DateOf(s.now(), s.deps.Location)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			ServiceUnavailableError("not ready").Write(w)
			return
		}
	}
	NewResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}
