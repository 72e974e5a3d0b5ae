package handlers

import (
	"github.com/gin-gonic/gin"

	"sports_club_backend/internal/services"
)

// ExpenseHandler holds the expense service.
type ExpenseHandler struct {
	expenseService services.ExpenseService
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(es services.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: es}
}

func (h *ExpenseHandler) Register(d *Dispatcher) {
	d.Register("recordExpense", Action{Fn: h.RecordExpense, Mutating: true})
	d.Register("getExpenses", Action{Fn: h.GetExpenses})
}

func (h *ExpenseHandler) RecordExpense(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	var req services.RecordExpenseRequest
	if err := p.Bind(&req); err != nil {
		return nil, err
	}
	return h.expenseService.RecordExpense(c.Request.Context(), rc, req)
}

func (h *ExpenseHandler) GetExpenses(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error) {
	return h.expenseService.GetExpenses(rc, services.ExpenseFilter{
		SinceID:   p.Param("sinceId"),
		StartDate: p.Param("startDate"),
		EndDate:   p.Param("endDate"),
		Category:  p.Param("category"),
	})
}
