package middleware

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/file-hosting-api/internal/constants"
	apierrors "github.com/yukikurage/file-hosting-api/internal/errors"
	"github.com/yukikurage/file-hosting-api/internal/identity"
)

// RequireAuth resolves the bearer token through the identity provider and
// stores the subject id and token in the context. Requests without a valid
// token never reach the next handler.
func RequireAuth(provider identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			apierrors.Unauthorized(c, "Access token required")
			return
		}

		token, ok := parseBearer(header)
		if !ok {
			apierrors.Unauthorized(c, "Invalid authorization header")
			return
		}

		subject, err := provider.Resolve(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidToken) {
				apierrors.Unauthorized(c, "Invalid or expired token")
				return
			}
			slog.ErrorContext(c.Request.Context(), "Token resolution failed",
				"error", err, "request_id", c.GetString(constants.ContextKeyRequestID))
			apierrors.InternalError(c, "Authentication failed")
			return
		}

		// Store subject ID in context for easy access in handlers
		c.Set(constants.ContextKeySubjectID, subject.ID)
		c.Set(constants.ContextKeyAccessToken, token)
		c.Next()
	}
}

// BearerToken returns the token from a well-formed Authorization header, or "".
func BearerToken(c *gin.Context) string {
	token, ok := parseBearer(c.GetHeader("Authorization"))
	if !ok {
		return ""
	}
	return token
}

// GetSubjectID retrieves the identity provider subject id from context
func GetSubjectID(c *gin.Context) (string, bool) {
	id := c.GetString(constants.ContextKeySubjectID)
	return id, id != ""
}

// GetAccessToken retrieves the bearer token from context
func GetAccessToken(c *gin.Context) string {
	return c.GetString(constants.ContextKeyAccessToken)
}

func parseBearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
