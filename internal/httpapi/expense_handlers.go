package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"walletwatch/internal/model"
	"walletwatch/internal/service"
)

type expenseRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Category    *model.Category  `json:"category"`
	Description *string          `json:"description"`
	SpentAt     *apiTime         `json:"spentAt"`
}

func (a *API) expenseInput(req expenseRequest) service.ExpenseInput {
	return service.ExpenseInput{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		SpentAt:     req.SpentAt.in(a.deps.Location),
	}
}

// listExpenses returns every expense, or with ?category= the expenses of
// that category between the optional from/to dates.
func (a *API) listExpenses(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c).ID

	category := c.Query("category")
	if category == "" {
		expenses, err := a.deps.Expenses.List(ctx, userID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, expenses)
		return
	}

	start := time.Time{}
	end := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	if raw := c.Query("from"); raw != "" {
		var from apiTime
		if err := from.parse(raw); err != nil {
			badRequest(c, err)
			return
		}
		start = *from.in(a.deps.Location)
	}
	if raw := c.Query("to"); raw != "" {
		var to apiTime
		if err := to.parse(raw); err != nil {
			badRequest(c, err)
			return
		}
		end = *to.in(a.deps.Location)
		if to.dateOnly {
			end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
	}

	expenses, err := a.deps.Expenses.ListByCategory(ctx, userID, model.Category(category), start, end)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, expenses)
}

func (a *API) createExpense(c *gin.Context) {
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	expense, err := a.deps.Expenses.Create(c.Request.Context(), currentUser(c).ID, a.expenseInput(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, expense)
}

// expenseSummary groups the spend of ?month=YYYY-MM, the current month by default.
func (a *API) expenseSummary(c *gin.Context) {
	month := time.Now().In(a.deps.Location)
	if raw := c.Query("month"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01", raw, a.deps.Location)
		if err != nil {
			badRequest(c, fmt.Errorf("invalid month %q: use YYYY-MM", raw))
			return
		}
		month = parsed
	}
	summary, err := a.deps.Expenses.MonthlySummary(c.Request.Context(), currentUser(c).ID, month)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (a *API) getExpense(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	expense, err := a.deps.Expenses.Get(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, expense)
}

func (a *API) updateExpense(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	expense, err := a.deps.Expenses.Update(c.Request.Context(), currentUser(c).ID, id, a.expenseInput(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, expense)
}

func (a *API) deleteExpense(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := a.deps.Expenses.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
