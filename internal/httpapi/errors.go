package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"walletwatch/internal/service"
)

var validationErrors = []error{
	service.ErrInvalidAmount,
	service.ErrNegativeAmount,
	service.ErrInvalidWindow,
	service.ErrZeroBudgetAmount,
	service.ErrInvalidCategory,
	service.ErrInvalidBudgetType,
	service.ErrDescriptionTooLong,
	service.ErrTitleRequired,
	service.ErrInvalidStatus,
	service.ErrInvalidType,
	service.ErrInvalidEmail,
	service.ErrWeakPassword,
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrBudgetConflict), errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrInvalidState):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrMissingFields):
		return http.StatusBadRequest
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// idParam parses the :id path segment; it writes a 404 and returns false
// for anything that is not a positive integer.
func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrNotFound.Error()})
		return 0, false
	}
	return uint(id), true
}
