package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/file-hosting-api/internal/dto"
	apierrors "github.com/yukikurage/file-hosting-api/internal/errors"
	"github.com/yukikurage/file-hosting-api/internal/middleware"
	"github.com/yukikurage/file-hosting-api/internal/models"
	"github.com/yukikurage/file-hosting-api/internal/services"
)

// AdminHandler serves the account management routes. RequireAdmin has
// already run for every route.
type AdminHandler struct {
	adminService *services.AdminService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// ListUsers returns every profile, newest first.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	profiles, err := h.adminService.ListUsers(c.Request.Context())
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to fetch users", "error", err)
		apierrors.InternalError(c, "Failed to fetch users")
		return
	}

	c.JSON(http.StatusOK, profiles)
}

// CreateUser registers an account with the requested role.
func (h *AdminHandler) CreateUser(c *gin.Context) {
	type CreateUserRequest struct {
		Email    string      `json:"email"`
		Password string      `json:"password"`
		Username string      `json:"username"`
		Role     models.Role `json:"role"`
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithError(c, apierrors.ErrInvalidInput)
		return
	}

	profile, err := h.adminService.CreateUser(c.Request.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		Role:     req.Role,
	})
	if err != nil {
		respondAuthError(c, err, "Failed to create user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    dto.ToUserDTO(*profile),
	})
}

// DeleteUser removes another user's profile and identity subject.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	targetID, ok := parseID(c, "Invalid user ID")
	if !ok {
		return
	}

	caller, _ := middleware.GetProfile(c)
	if err := h.adminService.DeleteUser(c.Request.Context(), caller, targetID); err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			apierrors.NotFound(c, "User not found")
		case errors.Is(err, services.ErrCannotDeleteSelf):
			apierrors.BadRequest(c, "Cannot delete your own account")
		default:
			slog.ErrorContext(c.Request.Context(), "Failed to delete user", "userid", targetID, "error", err)
			apierrors.Respond(c, apierrors.Wrap(apierrors.KindUpstream, "Failed to delete user", err))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User deleted successfully",
	})
}
