package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"twoziq/internal/errors"
	"twoziq/internal/logger"
)

// ErrorHandler recovers panics and converts handler errors into the typed
// error envelope. Handlers attach errors with c.Error and abort.
func ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		if recovered != nil {
			logger.Error("panic recovered",
				"error", recovered,
				"stack", string(debug.Stack()),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
			appErr := errors.NewAppError(errors.ErrCodeInternal, "Internal server error", nil).
				WithRequestID(RequestID(c))
			writeError(c, appErr)
		}
	})
}

// HandleErrors drains errors attached by handlers after the chain runs.
func HandleErrors(c *gin.Context) {
	c.Next()
	if len(c.Errors) > 0 {
		err := c.Errors.Last().Err
		appErr := errors.WrapError(err, errors.ErrCodeInternal, "Internal server error")
		if appErr.RequestID == "" {
			appErr = appErr.WithRequestID(RequestID(c))
		}
		logError(c, appErr)
		writeError(c, appErr)
	}
}

func writeError(c *gin.Context, err *errors.AppError) {
	c.JSON(err.HTTPStatus(), errors.NewErrorResponse(err, c.Request.URL.Path))
	c.Abort()
}

func logError(c *gin.Context, err *errors.AppError) {
	fields := map[string]interface{}{
		"error_code": err.Code,
		"severity":   err.Severity,
		"request_id": err.RequestID,
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"ip":         c.ClientIP(),
	}
	if err.Details != "" {
		fields["details"] = err.Details
	}
	if err.Cause != nil {
		fields["cause"] = err.Cause.Error()
	}

	log := logger.WithFields(fields)
	switch err.Severity {
	case errors.SeverityCritical, errors.SeverityHigh:
		log.Error(err.Message)
	case errors.SeverityMedium:
		log.Warn(err.Message)
	default:
		log.Info(err.Message)
	}
}
