package appErrors

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"uploadgate/internal/logger"
)

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *AppError `json:"error"`
}

// HandleError writes err to the gin response with its mapped HTTP status.
// Unknown error values are hidden behind a generic 500.
func HandleError(c *gin.Context, err error) {
	var appErr *AppError
	if !As(err, &appErr) {
		appErr = InternalError(err)
	}

	if appErr.HTTPCode >= http.StatusInternalServerError {
		logger.Error("server error", "code", appErr.Code, "error", appErr.Error(), "path", c.Request.URL.Path)
	}

	c.JSON(appErr.HTTPCode, ErrorResponse{Success: false, Error: appErr})
}
