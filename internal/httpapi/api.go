package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	applog "walletwatch/internal/log"
	"walletwatch/internal/service"
)

// Deps are the collaborators the HTTP layer needs. Google may be nil when
// OAuth is not configured.
type Deps struct {
	Auth          *service.AuthService
	Google        *service.GoogleAuth
	Expenses      *service.ExpenseService
	Budgets       *service.BudgetService
	Goals         *service.GoalService
	Notifications *service.NotificationService
	Logger        *slog.Logger
	Location      *time.Location
	AppURL        string
	SecureCookie  bool
	// Health reports whether the store is reachable.
	Health func(ctx context.Context) error
	// AuthRate is the number of register/login attempts allowed per IP per minute.
	AuthRate int
}

// API exposes the JSON endpoints over gin.
type API struct {
	deps    Deps
	limiter *ipRateLimiter
	logger  *slog.Logger
}

func New(deps Deps) *API {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.AuthRate <= 0 {
		deps.AuthRate = 5
	}
	return &API{
		deps:    deps,
		limiter: newIPRateLimiter(deps.AuthRate, time.Minute),
		logger:  applog.WithComponent(deps.Logger, applog.ComponentHTTP),
	}
}

// Router builds the gin engine with every route registered.
func (a *API) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), applog.Middleware(a.deps.Logger))

	r.GET("/healthz", a.health)

	authGroup := r.Group("/auth")
	authGroup.POST("/register", a.limiter.middleware(), a.register)
	authGroup.POST("/login", a.limiter.middleware(), a.login)
	authGroup.POST("/logout", a.logout)
	if a.deps.Google != nil {
		authGroup.GET("/google", a.googleRedirect)
		authGroup.GET("/google/callback", a.googleCallback)
	}

	private := r.Group("")
	private.Use(a.requireSession())

	private.GET("/me", a.me)
	private.PUT("/me/telegram", a.linkTelegram)

	private.GET("/expenses", a.listExpenses)
	private.POST("/expenses", a.createExpense)
	private.GET("/expenses/summary", a.expenseSummary)
	private.GET("/expenses/:id", a.getExpense)
	private.PUT("/expenses/:id", a.updateExpense)
	private.DELETE("/expenses/:id", a.deleteExpense)

	private.GET("/budgets", a.listBudgets)
	private.POST("/budgets", a.createBudget)
	private.GET("/budgets/:id", a.getBudget)
	private.PUT("/budgets/:id", a.updateBudget)
	private.DELETE("/budgets/:id", a.deleteBudget)
	private.GET("/budgets/:id/usage", a.budgetUsage)

	private.GET("/goals", a.listGoals)
	private.POST("/goals", a.createGoal)
	private.GET("/goals/:id", a.getGoal)
	private.PUT("/goals/:id", a.updateGoal)
	private.DELETE("/goals/:id", a.deleteGoal)

	private.GET("/notifications", a.listNotifications)
	private.GET("/reports", a.listReports)

	return r
}

func (a *API) health(c *gin.Context) {
	if a.deps.Health != nil {
		if err := a.deps.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
