package http

import (
	"net/http"
	"net/url"

	"budgetwatch/internal/core"
	"budgetwatch/internal/log"
)

func (s *Server) budgetFromBody(p *RequestBodyParser, owner string) (core.Budget, *ResponseBuilder) {
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.Budget{}, UnprocessableEntityError("amount must be a number greater than zero")
	}
	month, err := ParseMonthParam(url.Values{"month": {p.Get("month")}}, s.today())
	if err != nil {
		return core.Budget{}, UnprocessableEntityError("month must be YYYY-MM")
	}
	return core.Budget{
		OwnerID:   owner,
		Category:  core.Category(p.Get("category")),
		Amount:    amount,
		MonthYear: month,
	}, nil
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	owner, errResp := RequireOwner(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	p, errResp := parseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	b, errResp := s.budgetFromBody(p, owner)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	created, err := s.deps.Budgets.CreateBudget(r.Context(), b)
	if err != nil {
		errorFor(r.Context(), err, "create_budget").Write(w)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/budgets/"+created.ID).
		JSON(toBudgetJSON(created)).
		Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	owner, errResp := RequireOwner(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	p, errResp := parseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	b, errResp := s.budgetFromBody(p, owner)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	b.ID = r.PathValue("id")

	updated, err := s.deps.Budgets.UpdateBudget(r.Context(), b)
	if err != nil {
		errorFor(r.Context(), err, "update_budget").Write(w)
		return
	}
	NewResponse().JSON(toBudgetJSON(updated)).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	owner, errResp := RequireOwner(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	id := r.PathValue("id")
	if err := s.deps.Budgets.DeleteBudget(r.Context(), owner, id); err != nil {
		errorFor(r.Context(), err, "delete_budget").Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Budget deleted",
		log.FieldOwner, owner, log.FieldBudgetID, id)
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	owner, errResp := RequireOwner(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	b, err := s.deps.Budgets.GetBudget(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		errorFor(r.Context(), err, "get_budget").Write(w)
		return
	}
	NewResponse().JSON(toBudgetJSON(b)).Write(w)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
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

	budgets, err := s.deps.Budgets.ListBudgets(r.Context(), owner, month)
	if err != nil {
		errorFor(r.Context(), err, "list_budgets").Write(w)
		return
	}
	out := make([]budgetJSON, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetJSON(b))
	}
	NewResponse().JSON(map[string]any{"month": month.String(), "budgets": out}).Write(w)
}
