package http

import (
	"net/http"

	"budgetwatch/internal/alert"
	"budgetwatch/internal/log"
	"budgetwatch/internal/store"
)

// handleSummary returns totals, the category breakdown and budget progress.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	owner, errResp := RequireOwner(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	month, err := ParseMonthParam(r.URL.Query(), s.today())
	if err != nil {
		UnprocessableEntityError("month must be YYYY-MM").Write(w)
		return
	}

	overview, err := s.deps.Expenses.Overview(r.Context(), owner, month)
	if err != nil {
		errorFor(r.Context(), err, "summary").Write(w)
		return
	}
	NewResponse().JSON(overview).Write(w)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	owner, errResp := RequireOwner(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	if s.deps.Inbox == nil {
		ServiceUnavailableError("alert inbox is not configured").Write(w)
		return
	}

	alerts, err := s.deps.Inbox.ListAlerts(r.Context(), owner, ParseBoolParam(r.URL.Query(), "unread"))
	if err != nil {
		errorFor(r.Context(), err, "list_alerts").Write(w)
		return
	}
	if alerts == nil {
		alerts = []store.InboxAlert{}
	}
	NewResponse().JSON(map[string]any{"alerts": alerts}).Write(w)
}

func (s *Server) handleMarkAlertRead(w http.ResponseWriter, r *http.Request) {
	owner, errResp := RequireOwner(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	if s.deps.Inbox == nil {
		ServiceUnavailableError("alert inbox is not configured").Write(w)
		return
	}
	if err := s.deps.Inbox.MarkAlertRead(r.Context(), owner, r.PathValue("id")); err != nil {
		errorFor(r.Context(), err, "mark_alert_read").Write(w)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

// handleCheckAlerts runs one pipeline pass outside the expense save path.
func (s *Server) handleCheckAlerts(w http.ResponseWriter, r *http.Request) {
	owner, errResp := RequireOwner(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	report, err := s.deps.Alerts.Check(r.Context(), owner)
	if err != nil {
		errorFor(r.Context(), err, "check_alerts").Write(w)
		return
	}
	NewResponse().JSON(report).Write(w)
}

func (s *Server) handleRequestPermission(w http.ResponseWriter, r *http.Request) {
	owner, errResp := RequireOwner(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	if s.deps.Permission == nil {
		errorFor(r.Context(), alert.ErrNoNotifier, "request_permission").Write(w)
		return
	}

	granted, err := s.deps.Permission.RequestPermission(r.Context(), owner)
	if err != nil {
		errorFor(r.Context(), err, "request_permission").Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Notification permission requested",
		log.FieldOwner, owner, "granted", granted)
	NewResponse().JSON(map[string]bool{"granted": granted}).Write(w)
}
