package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/file-hosting-api/internal/constants"
	apierrors "github.com/yukikurage/file-hosting-api/internal/errors"
)

const requestIDHeader = "X-Request-ID"

// RequestID reuses the caller's X-Request-ID or generates one, and echoes
// it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		c.Set(constants.ContextKeyRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// Recovery turns a panic into a 500 with the standard error body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		slog.Error("panic recovered", "error", recovered,
			"request_id", c.GetString(constants.ContextKeyRequestID))
		apierrors.RespondWithError(c, apierrors.ErrInternalError)
	})
}
