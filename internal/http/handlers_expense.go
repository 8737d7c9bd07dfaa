package http

import (
	"net/http"

	"budgetwatch/internal/core"
	"budgetwatch/internal/log"
)

// expenseFromBody reads the editable expense fields. A missing date means
// today only when allowDefaultDate is set.
func (s *Server) expenseFromBody(p *RequestBodyParser, owner string, allowDefaultDate bool) (core.Expense, *ResponseBuilder) {
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.Expense{}, UnprocessableEntityError("amount must be a number greater than zero")
	}

	date := s.today()
	if raw := p.Get("date"); raw != "" {
		if date, err = core.ParseDate(raw); err != nil {
			return core.Expense{}, UnprocessableEntityError("date must be YYYY-MM-DD")
		}
	} else if !allowDefaultDate {
		return core.Expense{}, UnprocessableEntityError("date is required")
	}

	return core.Expense{
		OwnerID:     owner,
		Description: p.Get("description"),
		Amount:      amount,
		Category:    core.Category(p.Get("category")),
		OccurredOn:  date,
	}, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
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
	exp, errResp := s.expenseFromBody(p, owner, true)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	res, err := s.deps.Expenses.CreateExpense(r.Context(), exp)
	if err != nil {
		errorFor(r.Context(), err, "create_expense").Write(w)
		return
	}

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+res.Expense.ID).
		JSON(toSaveResultJSON(res)).
		Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
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
	exp, errResp := s.expenseFromBody(p, owner, false)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	exp.ID = r.PathValue("id")

	res, err := s.deps.Expenses.UpdateExpense(r.Context(), exp)
	if err != nil {
		errorFor(r.Context(), err, "update_expense").Write(w)
		return
	}
	NewResponse().JSON(toSaveResultJSON(res)).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	owner, errResp := RequireOwner(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	id := r.PathValue("id")
	if err := s.deps.Expenses.DeleteExpense(r.Context(), owner, id); err != nil {
		errorFor(r.Context(), err, "delete_expense").Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Expense deleted",
		log.FieldOwner, owner, log.FieldExpenseID, id)
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	owner, errResp := RequireOwner(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	exp, err := s.deps.Expenses.GetExpense(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		errorFor(r.Context(), err, "get_expense").Write(w)
		return
	}
	NewResponse().JSON(toExpenseJSON(exp)).Write(w)
}

// handleListExpenses lists one month, the current one unless month is given.
// all=1 returns every expense instead.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	owner, errResp := RequireOwner(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	var month *core.MonthYear
	if !ParseBoolParam(r.URL.Query(), "all") {
		m, err := ParseMonthParam(r.URL.Query(), s.today())
		if err != nil {
			UnprocessableEntityError("month must be YYYY-MM").Write(w)
			return
		}
		month = &m
	}

	expenses, err := s.deps.Expenses.ListExpenses(r.Context(), owner, month)
	if err != nil {
		errorFor(r.Context(), err, "list_expenses").Write(w)
		return
	}
	out := make([]expenseJSON, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseJSON(e))
	}
	NewResponse().JSON(map[string]any{"expenses": out}).Write(w)
}
