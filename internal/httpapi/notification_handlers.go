package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"walletwatch/internal/model"
)

func (a *API) listNotifications(c *gin.Context) {
	a.writeNotifications(c, model.NotificationType(c.Query("type")))
}

// listReports returns the monthly report history.
func (a *API) listReports(c *gin.Context) {
	a.writeNotifications(c, model.NotificationReport)
}

func (a *API) writeNotifications(c *gin.Context, kind model.NotificationType) {
	list, err := a.deps.Notifications.List(c.Request.Context(), currentUser(c).ID, kind)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
