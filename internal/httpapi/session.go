package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"walletwatch/internal/model"
	"walletwatch/internal/service"
)

const (
	SessionCookie = "sessionId"
	userKey       = "user"
	sessionKey    = "session"
)

func (a *API) setSessionCookie(c *gin.Context, session *model.Session) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, session.Token, maxAge, "/", "", a.deps.SecureCookie, true)
}

func (a *API) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", a.deps.SecureCookie, true)
}

// requireSession rejects requests without a valid session cookie and
// refreshes the cookie when the session was renewed.
func (a *API) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": service.ErrUnauthorized.Error()})
			return
		}

		user, session, err := a.deps.Auth.Authenticate(c.Request.Context(), token)
		if errors.Is(err, service.ErrUnauthorized) {
			a.clearSessionCookie(c)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}

		a.setSessionCookie(c, session)
		c.Set(userKey, user)
		c.Set(sessionKey, session)
		c.Next()
	}
}

func currentUser(c *gin.Context) *model.User {
	return c.MustGet(userKey).(*model.User)
}
