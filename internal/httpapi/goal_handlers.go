package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"walletwatch/internal/model"
	"walletwatch/internal/service"
)

type goalRequest struct {
	Title         *string           `json:"title"`
	TargetAmount  *decimal.Decimal  `json:"targetAmount"`
	CurrentAmount *decimal.Decimal  `json:"currentAmount"`
	Deadline      *apiTime          `json:"deadline"`
	Status        *model.GoalStatus `json:"status"`
}

func (a *API) goalInput(req goalRequest) service.GoalInput {
	return service.GoalInput{
		Title:         req.Title,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		Deadline:      req.Deadline.in(a.deps.Location),
		Status:        req.Status,
	}
}

func (a *API) listGoals(c *gin.Context) {
	goals, err := a.deps.Goals.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, goals)
}

func (a *API) createGoal(c *gin.Context) {
	var req goalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	goal, err := a.deps.Goals.Create(c.Request.Context(), currentUser(c).ID, a.goalInput(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, goal)
}

func (a *API) getGoal(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	goal, err := a.deps.Goals.Get(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (a *API) updateGoal(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req goalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	goal, err := a.deps.Goals.Update(c.Request.Context(), currentUser(c).ID, id, a.goalInput(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (a *API) deleteGoal(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := a.deps.Goals.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
