package middleware

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/file-hosting-api/internal/access"
	"github.com/yukikurage/file-hosting-api/internal/constants"
	apierrors "github.com/yukikurage/file-hosting-api/internal/errors"
	"github.com/yukikurage/file-hosting-api/internal/models"
	"github.com/yukikurage/file-hosting-api/internal/services"
)

// ProfileResolver maps a subject id to its profile.
type ProfileResolver interface {
	ResolveProfile(ctx context.Context, subjectID string) (*models.Profile, error)
}

// RequireAdmin must run after RequireAuth. It resolves the caller's profile
// and stores it in the context when the role is admin.
func RequireAdmin(resolver ProfileResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		subjectID, ok := GetSubjectID(c)
		if !ok {
			apierrors.Unauthorized(c, "Access token required")
			return
		}

		profile, err := resolver.ResolveProfile(c.Request.Context(), subjectID)
		if err != nil {
			if errors.Is(err, services.ErrProfileNotFound) {
				apierrors.Forbidden(c, "Admin access required")
				return
			}
			slog.ErrorContext(c.Request.Context(), "Admin check failed",
				"error", err, "request_id", c.GetString(constants.ContextKeyRequestID))
			apierrors.InternalError(c, "Failed to verify permissions")
			return
		}

		if !access.IsAdmin(profile) {
			apierrors.Forbidden(c, "Admin access required")
			return
		}

		c.Set(constants.ContextKeyProfile, profile)
		c.Next()
	}
}

// GetProfile retrieves the profile stored by RequireAdmin
func GetProfile(c *gin.Context) (*models.Profile, bool) {
	v, exists := c.Get(constants.ContextKeyProfile)
	if !exists {
		return nil, false
	}
	profile, ok := v.(*models.Profile)
	return profile, ok && profile != nil
}
