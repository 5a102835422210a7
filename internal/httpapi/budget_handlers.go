package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"walletwatch/internal/model"
	"walletwatch/internal/service"
)

type budgetRequest struct {
	Type      *model.BudgetType `json:"type"`
	Amount    *decimal.Decimal  `json:"amount"`
	StartDate *apiTime          `json:"startDate"`
	EndDate   *apiTime          `json:"endDate"`
}

func (a *API) budgetInput(req budgetRequest) service.BudgetInput {
	return service.BudgetInput{
		Type:      req.Type,
		Amount:    req.Amount,
		StartDate: req.StartDate.in(a.deps.Location),
		EndDate:   req.EndDate.in(a.deps.Location),
	}
}

func (a *API) listBudgets(c *gin.Context) {
	budgets, err := a.deps.Budgets.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, budgets)
}

func (a *API) createBudget(c *gin.Context) {
	var req budgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	budget, err := a.deps.Budgets.Create(c.Request.Context(), currentUser(c).ID, a.budgetInput(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, budget)
}

func (a *API) getBudget(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	budget, err := a.deps.Budgets.Get(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, budget)
}

func (a *API) updateBudget(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req budgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	budget, err := a.deps.Budgets.Update(c.Request.Context(), currentUser(c).ID, id, a.budgetInput(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, budget)
}

func (a *API) deleteBudget(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := a.deps.Budgets.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) budgetUsage(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	usage, err := a.deps.Budgets.BudgetUsage(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}
