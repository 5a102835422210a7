package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	applog "walletwatch/internal/log"
	"walletwatch/internal/model"
	"walletwatch/internal/service"
)

type registerRequest struct {
	Name     string           `json:"name"`
	Email    string           `json:"email" binding:"required"`
	Password string           `json:"password" binding:"required"`
	Income   *decimal.Decimal `json:"income"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type telegramRequest struct {
	ChatID *int64 `json:"chatId"`
}

func (a *API) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	input := service.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password}
	if req.Income != nil {
		input.Income = *req.Income
	}

	user, err := a.deps.Auth.Register(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	if !a.startSession(c, user) {
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (a *API) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := a.deps.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	if !a.startSession(c, user) {
		return
	}
	c.JSON(http.StatusOK, user)
}

func (a *API) startSession(c *gin.Context, user *model.User) bool {
	session, err := a.deps.Auth.CreateSession(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, err)
		return false
	}
	a.setSessionCookie(c, session)
	return true
}

func (a *API) logout(c *gin.Context) {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		if err := a.deps.Auth.Logout(c.Request.Context(), token); err != nil {
			a.logger.WarnContext(c.Request.Context(), "Delete session", applog.FieldError, err)
		}
	}
	a.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

func (a *API) googleRedirect(c *gin.Context) {
	url, err := a.deps.Google.AuthURL()
	if err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (a *API) googleCallback(c *gin.Context) {
	user, err := a.deps.Google.Callback(c.Request.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		a.logger.WarnContext(c.Request.Context(), "Google login failed", applog.FieldError, err)
		writeError(c, err)
		return
	}
	if !a.startSession(c, user) {
		return
	}
	c.Redirect(http.StatusFound, strings.TrimRight(a.deps.AppURL, "/")+"/")
}

func (a *API) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (a *API) linkTelegram(c *gin.Context) {
	var req telegramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := a.deps.Auth.LinkTelegram(c.Request.Context(), currentUser(c).ID, req.ChatID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
