package logging

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/file-hosting-api/internal/constants"
)

// GinLogger logs one line per request. 5xx responses are logged at error,
// 4xx at warn.
func GinLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(constants.ContextKeyRequestID),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			logger.Error("request", attrs...)
		case status >= 400:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	}
}
